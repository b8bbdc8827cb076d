package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/classify"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// PlanPrefix names plans derived from intake documents.
const PlanPrefix = "plan_"

const summaryLimit = 200

// PlanGenerator turns intake documents into plans.
type PlanGenerator struct {
	env        Env
	classifier *classify.Classifier
}

// NewPlanGenerator returns a generator using classifier (the default rule
// list when nil).
func NewPlanGenerator(env Env, classifier *classify.Classifier) *PlanGenerator {
	if classifier == nil {
		classifier = classify.New()
	}
	return &PlanGenerator{env: env, classifier: classifier}
}

// Excluded reports whether an intake document must not be planned.
func Excluded(doc core.Document) bool {
	h := doc.Header
	return h.Bool("hold") || h.Bool("skip_plan") || strings.EqualFold(h.String("status"), "on_hold")
}

// Planned reports whether the intake document already has a plan.
func Planned(doc core.Document) bool {
	return doc.Header.String("plan_id") != ""
}

// PlanName returns the plan identity for an intake document.
func PlanName(intake core.Ref) string {
	return PlanPrefix + intake.Identity()
}

// Run plans every eligible NeedsAction document.
func (g *PlanGenerator) Run(ctx context.Context) (Report, error) {
	var rep Report

	refs, err := core.Collect(ctx, g.env.Store, core.StageNeedsAction, "")
	if err != nil {
		return rep, err
	}

	for _, ref := range refs {
		if err := g.planOne(ctx, &rep, ref); err != nil {
			if ferr := g.env.Fail(ctx, &rep, "plan_generator", "PLAN_ERROR", ref, err); ferr != nil {
				return rep, ferr
			}
		}
	}
	return rep, nil
}

func (g *PlanGenerator) planOne(ctx context.Context, rep *Report, ref core.Ref) error {
	doc, err := core.Load(ctx, g.env.Store, ref)
	if err != nil {
		return err
	}
	if Excluded(doc) || Planned(doc) {
		rep.Skipped++
		return nil
	}

	planID := PlanName(ref)
	existing, err := core.Locate(ctx, g.env.Store, planID)
	if err != nil {
		return err
	}

	category, keyword := g.classifier.Explain(doc.Raw)
	if len(existing) == 0 {
		content, err := g.render(doc, category, keyword)
		if err != nil {
			return err
		}
		planRef, created, err := core.Derive(ctx, g.env.Store, core.StagePlans, planID, content)
		if err != nil {
			return err
		}
		if created {
			rep.Created = append(rep.Created, planRef)
			if err := g.env.Record(ctx, audit.StatusCompleted, "PLAN_CREATED",
				fmt.Sprintf("Created plan %s for %s", planRef.Name, ref.Name),
				map[string]any{
					"plan":           planRef.Name,
					"source":         ref.Name,
					"classification": string(category),
				}); err != nil {
				return err
			}
		}
	}

	// Marking the intake keeps re-runs from planning it again.
	_, err = core.Update(ctx, g.env.Store, doc, core.Header{"plan_id": planID})
	return err
}

func (g *PlanGenerator) render(doc core.Document, category classify.Category, keyword string) (string, error) {
	now := g.env.Now()
	header := core.Header{
		"title":          "Plan for " + doc.Ref.Identity(),
		"created":        stamp(now),
		"item_id":        doc.Ref.Identity(),
		"origin":         doc.Ref.String(),
		"classification": string(category),
		"status":         "pending",
	}

	reason := "no rule matched"
	if keyword != "" {
		reason = fmt.Sprintf("matched %q", keyword)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Plan for %s\n\n", doc.Ref.Identity())
	b.WriteString("## Item Summary\n")
	b.WriteString(Summary(doc.Body, summaryLimit))
	b.WriteString("\n\n## Classification\n")
	fmt.Fprintf(&b, "%s (%s)\n\n", category, reason)
	b.WriteString("## Action Steps\n")
	b.WriteString("1. Review the item summary\n")
	b.WriteString("2. Hand off to the matching stage agent\n")
	b.WriteString("3. Record the outcome in the audit log\n")
	b.WriteString("4. Mark the status as completed in the header once finished\n")

	return core.Render(header, b.String())
}

// Summary returns the first limit runes of text, trimmed, with an ellipsis
// when truncated.
func Summary(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
