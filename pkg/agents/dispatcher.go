package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

// Policy decides which of the matching agents handle a document.
type Policy string

const (
	// Overlapping runs every matching agent.
	Overlapping Policy = "overlapping"
	// Exclusive runs only the first matching agent in registration order.
	Exclusive Policy = "exclusive"
)

// ParsePolicy accepts "overlapping" or "exclusive" ("" means overlapping).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case "", Overlapping:
		return Overlapping, nil
	case Exclusive:
		return Exclusive, nil
	}
	return "", fmt.Errorf("unknown dispatch policy %q", s)
}

// InboxTag files planned documents no agent wanted.
const InboxTag = "inbox"

// Dispatcher routes NeedsAction documents to the stage agents and files the
// handled ones in Done.
type Dispatcher struct {
	env    workflow.Env
	policy Policy
	gate   *workflow.Gate
	agents []Agent
}

// NewDispatcher returns a dispatcher over agents, consulted in the order
// given. gate, when not nil, triages the plans the agents produced.
func NewDispatcher(env workflow.Env, policy Policy, gate *workflow.Gate, agents ...Agent) *Dispatcher {
	if policy == "" {
		policy = Overlapping
	}
	return &Dispatcher{env: env, policy: policy, gate: gate, agents: agents}
}

// Agents returns the registered agents.
func (d *Dispatcher) Agents() []Agent {
	return d.agents
}

// Select returns the agents that handle doc under the dispatcher's policy.
func (d *Dispatcher) Select(doc core.Document) []Agent {
	var out []Agent
	for _, a := range d.agents {
		if !a.Matches(doc) {
			continue
		}
		out = append(out, a)
		if d.policy == Exclusive {
			break
		}
	}
	return out
}

// Run dispatches one listing of NeedsAction, runs the periodic agent work,
// then triages new plans.
func (d *Dispatcher) Run(ctx context.Context) (workflow.Report, error) {
	var rep workflow.Report

	refs, err := core.Collect(ctx, d.env.Store, core.StageNeedsAction, "")
	if err != nil {
		return rep, err
	}
	for _, ref := range refs {
		if err := d.dispatch(ctx, &rep, ref); err != nil {
			return rep, err
		}
	}

	for _, a := range d.agents {
		p, ok := a.(Periodic)
		if !ok {
			continue
		}
		out, err := p.Periodic(ctx)
		rep.Merge(out)
		if err != nil {
			ref := core.Ref{Stage: core.StagePlans, Name: a.Name()}
			if ferr := d.env.Fail(ctx, &rep, a.Name(), a.ErrorType(), ref, err); ferr != nil {
				return rep, ferr
			}
		}
	}

	if d.gate != nil {
		out, err := d.gate.Triage(ctx)
		rep.Merge(out)
		if err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// dispatch handles one intake document. Only errors that must stop the batch
// are returned.
func (d *Dispatcher) dispatch(ctx context.Context, rep *workflow.Report, ref core.Ref) error {
	doc, err := core.Load(ctx, d.env.Store, ref)
	if err != nil {
		return d.env.Fail(ctx, rep, "dispatcher", "DISPATCH_ERROR", ref, err)
	}
	if workflow.Excluded(doc) {
		rep.Skipped++
		return nil
	}

	selected := d.Select(doc)
	if len(selected) == 0 {
		if !workflow.Planned(doc) {
			return nil
		}
		return d.file(ctx, rep, doc, InboxTag, []string{InboxTag})
	}

	var handledBy []string
	failed := false
	for _, a := range selected {
		out, err := a.Handle(ctx, doc)
		rep.Merge(out)
		if err == nil {
			handledBy = append(handledBy, a.Name())
			continue
		}
		failed = true
		if errors.Is(err, ErrExecutionDirective) {
			if err := d.hold(ctx, rep, doc, err); err != nil {
				return err
			}
			continue
		}
		if ferr := d.env.Fail(ctx, rep, a.Name(), a.ErrorType(), ref, err); ferr != nil {
			return ferr
		}
	}
	if failed {
		return nil
	}

	tag := ""
	if len(selected) == 1 {
		tag = selected[0].Tag()
	}
	return d.file(ctx, rep, doc, tag, handledBy)
}

// file records who handled the intake document and moves it to Done.
func (d *Dispatcher) file(ctx context.Context, rep *workflow.Report, doc core.Document, tag string, handledBy []string) error {
	done, err := core.Transition(ctx, d.env.Store, doc.Ref, core.StageDone, core.ProcessedName(tag, d.env.Now()))
	if err != nil {
		return d.env.Fail(ctx, rep, "dispatcher", "DISPATCH_ERROR", doc.Ref, err)
	}
	rep.Moved = append(rep.Moved, done)
	filed := doc
	filed.Ref = done
	if _, err := core.Update(ctx, d.env.Store, filed, core.Header{"processed_by": strings.Join(handledBy, ",")}); err != nil {
		return d.env.Fail(ctx, rep, "dispatcher", "DISPATCH_ERROR", done, err)
	}
	return d.env.Record(ctx, audit.StatusCompleted, "TASK_PROCESSED",
		fmt.Sprintf("Processed %s", doc.Ref.Name),
		map[string]any{
			"document":     doc.Ref.Name,
			"done":         done.Name,
			"processed_by": handledBy,
		})
}

// hold parks a document whose output was blocked so later cycles leave it for
// a human.
func (d *Dispatcher) hold(ctx context.Context, rep *workflow.Report, doc core.Document, cause error) error {
	_, err := core.Update(ctx, d.env.Store, doc, core.Header{
		"hold":        true,
		"hold_reason": cause.Error(),
	})
	if err != nil {
		return d.env.Fail(ctx, rep, "dispatcher", "DISPATCH_ERROR", doc.Ref, err)
	}
	rep.Failed++
	d.env.Log().Warn("document held for review", "document", doc.Ref.Name, "reason", cause)
	return nil
}
