package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/classify"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

const (
	// ApprovalPrefix names approval requests.
	ApprovalPrefix = "approval_"

	StatusPending          = "pending"
	StatusAwaitingApproval = "awaiting_approval"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
)

// DefaultTriggers is the fixed keyword set that sends a plan to a human.
// High recall by intent: an unnecessary request is cheaper than an
// unapproved sensitive action.
var DefaultTriggers = []string{
	"payment", "finance", "expense", "purchase",
	"email", "communication", "send", "reply",
	"new contact", "new person", "financial",
	"transfer", "bill", "invoice", "subscription",
}

// GateConfig tunes the approval gate.
type GateConfig struct {
	Triggers []string
	// Expiry is how long a request waits for a decision.
	Expiry time.Duration
	// EnforceExpiry rejects plans whose request expired undecided.
	EnforceExpiry bool
}

// DefaultGateConfig returns the stock policy: fixed triggers, seven day
// expiry, enforced.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Triggers:      DefaultTriggers,
		Expiry:        7 * 24 * time.Hour,
		EnforceExpiry: true,
	}
}

// Gate decides whether plans need human approval and applies decisions.
type Gate struct {
	env    Env
	config GateConfig
}

// NewGate returns a gate. Zero config fields take their defaults.
func NewGate(env Env, config GateConfig) *Gate {
	def := DefaultGateConfig()
	if len(config.Triggers) == 0 {
		config.Triggers = def.Triggers
	}
	if config.Expiry <= 0 {
		config.Expiry = def.Expiry
	}
	return &Gate{env: env, config: config}
}

// Requires returns the trigger keywords found in content. An empty result
// means the plan may be auto-approved. The answer depends on content alone.
func (g *Gate) Requires(content string) []string {
	return classify.Matches(strings.ToLower(content), g.config.Triggers)
}

// Halted reports whether a plan is waiting on a human decision.
func Halted(doc core.Document) bool {
	return strings.EqualFold(doc.Header.String("status"), StatusAwaitingApproval)
}

// RequestName returns the approval request identity for a plan.
func RequestName(plan core.Ref) string {
	return ApprovalPrefix + plan.Identity()
}

// Run triages new plans, then applies recorded decisions.
func (g *Gate) Run(ctx context.Context) (Report, error) {
	rep, err := g.Triage(ctx)
	if err != nil {
		return rep, err
	}
	dec, err := g.ProcessDecisions(ctx)
	rep.Merge(dec)
	return rep, err
}

// Triage routes every Plans document that is not already halted: trigger
// content gets an approval request and the plan halts; anything else is
// approved and moved to Approved.
func (g *Gate) Triage(ctx context.Context) (Report, error) {
	var rep Report

	refs, err := core.Collect(ctx, g.env.Store, core.StagePlans, "")
	if err != nil {
		return rep, err
	}
	for _, ref := range refs {
		if err := g.triageOne(ctx, &rep, ref); err != nil {
			if ferr := g.env.Fail(ctx, &rep, "approval_gate", "APPROVAL_ERROR", ref, err); ferr != nil {
				return rep, ferr
			}
		}
	}
	return rep, nil
}

func (g *Gate) triageOne(ctx context.Context, rep *Report, ref core.Ref) error {
	doc, err := core.Load(ctx, g.env.Store, ref)
	if err != nil {
		return err
	}
	if Halted(doc) || HasCompletionMarker(doc.Raw) {
		return nil
	}

	keywords := g.Requires(doc.Raw)
	if len(keywords) == 0 {
		return g.autoApprove(ctx, rep, doc)
	}

	now := g.env.Now()
	requestID := RequestName(ref)
	content, err := g.renderRequest(doc, keywords, now)
	if err != nil {
		return err
	}
	reqRef, created, err := core.Derive(ctx, g.env.Store, core.StagePendingApproval, requestID, content)
	if err != nil {
		return err
	}
	if _, err := core.Update(ctx, g.env.Store, doc, core.Header{
		"status":      StatusAwaitingApproval,
		"approval_id": requestID,
	}); err != nil {
		return err
	}
	if !created {
		return nil
	}

	rep.Created = append(rep.Created, reqRef)
	return g.env.Record(ctx, audit.StatusCompleted, "APPROVAL_REQUESTED",
		fmt.Sprintf("Approval requested for %s", ref.Name),
		map[string]any{
			"plan":     ref.Name,
			"request":  reqRef.Name,
			"keywords": keywords,
		})
}

// autoApprove moves the plan before stamping it, so a failed move never
// leaves an approved header in Plans.
func (g *Gate) autoApprove(ctx context.Context, rep *Report, doc core.Document) error {
	moved, err := core.Transition(ctx, g.env.Store, doc.Ref, core.StageApproved, core.KeepName)
	if err != nil {
		return err
	}
	rep.Moved = append(rep.Moved, moved)
	name := doc.Ref.Name
	doc.Ref = moved
	if _, err := core.Update(ctx, g.env.Store, doc, core.Header{
		"status":      StatusApproved,
		"approved_at": stamp(g.env.Now()),
		"approved_by": "auto",
	}); err != nil {
		return err
	}
	return g.env.Record(ctx, audit.StatusCompleted, "PLAN_AUTO_APPROVED",
		fmt.Sprintf("Auto-approved %s", name),
		map[string]any{"plan": moved.Name})
}

func (g *Gate) renderRequest(plan core.Document, keywords []string, now time.Time) (string, error) {
	header := core.Header{
		"title":      "Approval Request for " + plan.Ref.Identity(),
		"plan_id":    plan.Ref.Identity(),
		"status":     StatusPending,
		"keywords":   keywords,
		"created":    stamp(now),
		"expires_at": stamp(now.Add(g.config.Expiry)),
		"decision":   "",
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Approval Request: %s\n\n", plan.Ref.Identity())
	b.WriteString("## Plan Summary\n")
	b.WriteString(Summary(plan.Body, 500))
	b.WriteString("\n\n## Why\n")
	fmt.Fprintf(&b, "Matched: %s\n\n", strings.Join(keywords, ", "))
	b.WriteString("## Decide\n")
	b.WriteString("Set `decision: approved` or `decision: rejected` in the header,\n")
	b.WriteString("or run `employee approve|reject " + plan.Ref.Identity() + "`.\n")
	b.WriteString("Moving this file into Approved or Rejected works as well.\n\n")
	if g.config.EnforceExpiry {
		fmt.Fprintf(&b, "Undecided requests are rejected after %s.\n", humanDuration(g.config.Expiry))
	}
	return core.Render(header, b.String())
}

// Decision reads the human verdict recorded on a request: "approved",
// "rejected" or "".
func Decision(doc core.Document) string {
	for _, key := range []string{"decision", "status"} {
		switch strings.ToLower(doc.Header.String(key)) {
		case "approved", "approve", "yes":
			return StatusApproved
		case "rejected", "reject", "no":
			return StatusRejected
		}
	}
	return ""
}

// Decide records a human verdict on a pending request. id is the plan or
// request identity. The plan itself moves on the next ProcessDecisions.
func (g *Gate) Decide(ctx context.Context, id, decision, by string) (core.Ref, error) {
	switch decision {
	case StatusApproved, StatusRejected:
	default:
		return core.Ref{}, fmt.Errorf("decision must be %q or %q, got %q", StatusApproved, StatusRejected, decision)
	}
	if !strings.HasPrefix(id, ApprovalPrefix) {
		id = ApprovalPrefix + id
	}
	ref := core.Ref{Stage: core.StagePendingApproval, Name: core.FileName(id)}
	req, err := core.Load(ctx, g.env.Store, ref)
	if err != nil {
		return core.Ref{}, err
	}

	updates := core.Header{"decision": decision}
	if by != "" {
		updates["decided_by"] = by
	}
	if _, err := core.Update(ctx, g.env.Store, req, updates); err != nil {
		return core.Ref{}, err
	}
	return ref, g.env.Record(ctx, audit.StatusCompleted, "APPROVAL_DECISION_RECORDED",
		fmt.Sprintf("Request %s marked %s", ref.Name, decision),
		map[string]any{"request": ref.Name, "decision": decision, "decided_by": by})
}

// ProcessDecisions applies decided requests: the plan moves to Approved or
// Rejected, then the request is deleted. Undecided requests past their
// expiry are rejected when expiry is enforced. Requests a human moved into
// Approved or Rejected count as decided.
func (g *Gate) ProcessDecisions(ctx context.Context) (Report, error) {
	var rep Report

	for _, stage := range []core.Stage{core.StagePendingApproval, core.StageApproved, core.StageRejected} {
		refs, err := core.Collect(ctx, g.env.Store, stage, ApprovalPrefix+"*"+core.Extension)
		if err != nil {
			return rep, err
		}
		for _, ref := range refs {
			if err := g.decideOne(ctx, &rep, ref); err != nil {
				if ferr := g.env.Fail(ctx, &rep, "approval_gate", "APPROVAL_ERROR", ref, err); ferr != nil {
					return rep, ferr
				}
			}
		}
	}
	return rep, nil
}

func (g *Gate) decideOne(ctx context.Context, rep *Report, ref core.Ref) error {
	req, err := core.Load(ctx, g.env.Store, ref)
	if err != nil {
		return err
	}

	planID := req.Header.String("plan_id")
	if planID == "" {
		planID = strings.TrimPrefix(ref.Identity(), ApprovalPrefix)
	}
	planRef := core.Ref{Stage: core.StagePlans, Name: core.FileName(planID)}

	decision := Decision(req)
	switch ref.Stage {
	case core.StageApproved:
		decision = StatusApproved
	case core.StageRejected:
		decision = StatusRejected
	}

	reason := "decision"
	if decision == "" {
		if !g.config.EnforceExpiry || !g.expired(req) {
			if _, err := g.env.Store.Read(ctx, planRef); err == nil || !core.Skippable(err) {
				return err
			}
			// The plan left Plans without a decision (completed or removed).
			return g.supersede(ctx, rep, req, planRef)
		}
		decision, reason = StatusRejected, "expired"
	}

	plan, err := core.Load(ctx, g.env.Store, planRef)
	if core.Skippable(err) {
		return g.supersede(ctx, rep, req, planRef)
	}
	if err != nil {
		return err
	}

	target := core.StageApproved
	if decision == StatusRejected {
		target = core.StageRejected
	}
	updates := core.Header{
		"status":     decision,
		"decided_at": stamp(g.env.Now()),
	}
	if by := req.Header.String("decided_by"); by != "" {
		updates["decided_by"] = by
	} else if reason == "expired" {
		updates["decided_by"] = "expiry"
	}
	moved, err := core.Transition(ctx, g.env.Store, plan.Ref, target, core.KeepName)
	if err != nil {
		return err
	}
	rep.Moved = append(rep.Moved, moved)
	plan.Ref = moved
	if _, err := core.Update(ctx, g.env.Store, plan, updates); err != nil {
		return err
	}

	if err := g.env.Store.Delete(ctx, ref); err != nil && !core.Skippable(err) {
		return err
	}
	rep.Deleted = append(rep.Deleted, ref)

	actionType := "APPROVAL_APPROVED"
	switch {
	case reason == "expired":
		actionType = "APPROVAL_EXPIRED"
	case decision == StatusRejected:
		actionType = "APPROVAL_REJECTED"
	}
	return g.env.Record(ctx, audit.StatusCompleted, actionType,
		fmt.Sprintf("Plan %s %s", moved.Name, decision),
		map[string]any{
			"plan":     moved.Name,
			"request":  ref.Name,
			"decision": decision,
			"reason":   reason,
		})
}

// supersede drops a request whose plan is no longer waiting in Plans.
func (g *Gate) supersede(ctx context.Context, rep *Report, req core.Document, planRef core.Ref) error {
	if err := g.env.Store.Delete(ctx, req.Ref); err != nil {
		return err
	}
	rep.Deleted = append(rep.Deleted, req.Ref)
	return g.env.Record(ctx, audit.StatusCompleted, "APPROVAL_SUPERSEDED",
		fmt.Sprintf("Request %s dropped: %s is no longer awaiting approval", req.Ref.Name, planRef.Name),
		map[string]any{"request": req.Ref.Name, "plan": planRef.Name})
}

func (g *Gate) expired(req core.Document) bool {
	deadline, ok := req.Header.Time("expires_at")
	if !ok {
		created, ok := req.Header.Time("created")
		if !ok {
			return false
		}
		deadline = created.Add(g.config.Expiry)
	}
	return g.env.Now().After(deadline)
}

func humanDuration(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}
