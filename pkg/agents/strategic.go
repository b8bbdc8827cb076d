package agents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

const (
	BriefingPrefix      = "briefing_"
	StrategicPlanPrefix = "strategic_plan_"

	// GoalsSurface is the owner-maintained goals file at the vault root.
	GoalsSurface = "Business_Goals.md"
)

// Cadence is how often the strategic review runs.
type Cadence string

const (
	Weekly Cadence = "weekly"
	Daily  Cadence = "daily"
)

// HighValueThreshold is the dollar amount above which an expense is listed
// as an optimization opportunity.
const HighValueThreshold = 100.0

var (
	dollarAmount = regexp.MustCompile(`\$([0-9][0-9,]*\.?[0-9]*)`)
	costWords    = []string{"subscription", "monthly", "recurring", "annual"}
)

// Opportunity is one cost optimization finding.
type Opportunity struct {
	Kind        string
	Record      string
	Amount      float64
	Description string
}

// Strategic writes the periodic business review. It is schedule driven and
// never claims intake documents.
type Strategic struct {
	env     workflow.Env
	surface core.Surface
	cadence Cadence
}

// NewStrategic returns the strategic agent. surface supplies the business
// goals; cadence defaults to Weekly.
func NewStrategic(env workflow.Env, surface core.Surface, cadence Cadence) *Strategic {
	if cadence != Daily {
		cadence = Weekly
	}
	return &Strategic{env: env, surface: surface, cadence: cadence}
}

func (s *Strategic) Name() string               { return "strategic" }
func (s *Strategic) Tag() string                { return "" }
func (s *Strategic) ErrorType() string          { return "STRATEGIC_PROCESSING_ERROR" }
func (s *Strategic) Matches(core.Document) bool { return false }

func (s *Strategic) Handle(ctx context.Context, doc core.Document) (workflow.Report, error) {
	return workflow.Report{}, nil
}

// Period is the key of the current review period: 2026-W42 or 20261015.
func (s *Strategic) Period() string {
	now := s.env.Now()
	if s.cadence == Daily {
		return dayKey(now)
	}
	year, week := now.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Opportunities scans Accounting for recurring costs and high value expenses.
func (s *Strategic) Opportunities(ctx context.Context) ([]Opportunity, int, error) {
	refs, err := core.Collect(ctx, s.env.Store, core.StageAccounting, "")
	if err != nil {
		return nil, 0, err
	}
	var out []Opportunity
	for _, ref := range refs {
		raw, err := s.env.Store.Read(ctx, ref)
		if core.Skippable(err) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		lower := strings.ToLower(raw)
		for _, w := range costWords {
			if strings.Contains(lower, w) {
				out = append(out, Opportunity{
					Kind:        "subscription_review",
					Record:      ref.Name,
					Description: fmt.Sprintf("Review %s for potential cancellation or optimization", ref.Name),
				})
				break
			}
		}
		for _, m := range dollarAmount.FindAllStringSubmatch(lower, -1) {
			amount, err := strconv.ParseFloat(strings.TrimRight(strings.ReplaceAll(m[1], ",", ""), "."), 64)
			if err != nil || amount <= HighValueThreshold {
				continue
			}
			out = append(out, Opportunity{
				Kind:        "high_value_expense",
				Record:      ref.Name,
				Amount:      amount,
				Description: fmt.Sprintf("High-value expense of $%.2f in %s", amount, ref.Name),
			})
		}
	}
	return out, len(refs), nil
}

// Periodic claims the period by creating its briefing, then writes the
// strategic plan. A period already claimed is left alone.
func (s *Strategic) Periodic(ctx context.Context) (workflow.Report, error) {
	var rep workflow.Report
	now := s.env.Now()
	period := s.Period()

	goals := "No business goals defined"
	if s.surface != nil {
		text, err := s.surface.ReadSurface(ctx, GoalsSurface)
		switch {
		case err == nil:
			goals = text
		case !errors.Is(err, core.ErrNotFound):
			return rep, err
		}
	}
	completed, err := core.Count(ctx, s.env.Store, core.StageDone, "")
	if err != nil {
		return rep, err
	}
	opps, records, err := s.Opportunities(ctx)
	if err != nil {
		return rep, err
	}

	briefing, err := s.renderBriefing(period, goals, completed, records, len(opps))
	if err != nil {
		return rep, err
	}
	bref, created, err := core.Derive(ctx, s.env.Store, core.StageBriefings, BriefingPrefix+period, briefing)
	if err != nil || !created {
		return rep, err
	}
	rep.Created = append(rep.Created, bref)

	plan, err := s.renderPlan(period, goals, completed, records, opps)
	if err != nil {
		return rep, err
	}
	pref, created, err := core.Derive(ctx, s.env.Store, core.StagePlans, StrategicPlanPrefix+period, plan)
	if err != nil {
		return rep, err
	}
	if created {
		rep.Created = append(rep.Created, pref)
	}

	s.env.Log().Info("strategic review written", "period", period, "opportunities", len(opps), "at", stamp(now))
	return rep, s.env.Record(ctx, audit.StatusCompleted, "STRATEGIC_PLAN_CREATED",
		fmt.Sprintf("Created strategic analysis for %s", period),
		map[string]any{
			"period":                     period,
			"briefing":                   bref.Name,
			"plan":                       pref.Name,
			"completed_tasks":            completed,
			"optimization_opportunities": len(opps),
		})
}

func (s *Strategic) renderBriefing(period, goals string, completed, records, opps int) (string, error) {
	header := core.Header{
		"title":   "Briefing " + period,
		"created": stamp(s.env.Now()),
		"period":  period,
		"cadence": string(s.cadence),
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Briefing: %s\n\n", period)
	b.WriteString("## Goals\n")
	b.WriteString(excerpt(goals, 500))
	b.WriteString("\n\n## Numbers\n")
	fmt.Fprintf(&b, "- Documents in Done: %d\n", completed)
	fmt.Fprintf(&b, "- Accounting records: %d\n", records)
	fmt.Fprintf(&b, "- Cost opportunities: %d\n", opps)
	fmt.Fprintf(&b, "\nSee %s%s in Plans for recommendations.\n", StrategicPlanPrefix, period)
	return core.Render(header, b.String())
}

func (s *Strategic) renderPlan(period, goals string, completed, records int, opps []Opportunity) (string, error) {
	header := core.Header{
		"title":         "Strategic Analysis and Plan",
		"created":       stamp(s.env.Now()),
		"analysis_type": "strategic",
		"period":        period,
		"status":        "pending",
	}

	var b strings.Builder
	b.WriteString("# Strategic Analysis & Plan\n\n")
	b.WriteString("## Business Performance Overview\n")
	fmt.Fprintf(&b, "- **Goals Status**: %s\n", excerpt(goals, 200))
	fmt.Fprintf(&b, "- **Tasks Completed**: %d\n", completed)
	fmt.Fprintf(&b, "- **Accounting Records**: %d\n", records)
	fmt.Fprintf(&b, "- **Opportunities Identified**: %d\n\n", len(opps))
	b.WriteString("## Cost Optimization Opportunities\n")
	if len(opps) == 0 {
		b.WriteString("- None\n")
	}
	for i, o := range opps {
		fmt.Fprintf(&b, "\n### Opportunity %d: %s\n", i+1, o.Kind)
		fmt.Fprintf(&b, "- **Item**: %s\n", o.Record)
		fmt.Fprintf(&b, "- **Description**: %s\n", o.Description)
	}
	b.WriteString("\n## Recommendations\n")
	b.WriteString("1. Implement the identified cost optimizations\n")
	b.WriteString("2. Review goal alignment for the next period\n")
	b.WriteString("3. Schedule the next strategic review\n")
	return core.Render(header, b.String())
}
