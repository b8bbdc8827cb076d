package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

const (
	ProjectPlanPrefix = "project_plan_"
	BottleneckPrefix  = "bottleneck_report_"
)

// OperationsKeywords select project and scheduling intake.
var OperationsKeywords = []string{"project", "task", "deadline", "schedule", "bottleneck", "workflow", "process", "operation", "timeline", "milestone", "deliverable"}

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// StaleAfter is how long a high priority project may go without an update
// before the bottleneck report lists it.
const StaleAfter = 3 * 24 * time.Hour

var (
	priorityField = regexp.MustCompile(`(?i)priority:\s*([a-z]+)`)
	datePattern   = regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)
)

var deadlineLayouts = []string{"2006-01-02", "1/2/2006", "1-2-2006", "1/2/06", "1-2-06"}

// Project is what the operations agent extracts from an intake document.
type Project struct {
	Name        string
	Description string
	Priority    string
	Deadline    string
}

// ExtractProject reads priority and the first deadline-looking date.
func ExtractProject(name, body string) Project {
	p := Project{
		Name:        name,
		Description: excerpt(body, 200),
		Priority:    PriorityMedium,
	}
	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "urgent"), strings.Contains(lower, "high priority"):
			p.Priority = PriorityHigh
		case strings.Contains(lower, "low priority"):
			p.Priority = PriorityLow
		default:
			if m := priorityField.FindStringSubmatch(line); m != nil {
				switch strings.ToLower(m[1]) {
				case "high", "urgent", "critical":
					p.Priority = PriorityHigh
				case "low":
					p.Priority = PriorityLow
				}
			}
		}
		if p.Deadline == "" && (strings.Contains(lower, "deadline") || strings.Contains(lower, "due")) {
			p.Deadline = datePattern.FindString(line)
		}
	}
	return p
}

// ParseDeadline understands ISO and month/day/year dates.
func ParseDeadline(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Operations plans projects and watches active ones for bottlenecks.
type Operations struct {
	keywordMatcher
	env workflow.Env
}

func NewOperations(env workflow.Env) *Operations {
	return &Operations{keywordMatcher: OperationsKeywords, env: env}
}

func (o *Operations) Name() string      { return "operations" }
func (o *Operations) Tag() string       { return "ops" }
func (o *Operations) ErrorType() string { return "OPERATIONS_PROCESSING_ERROR" }

func (o *Operations) Handle(ctx context.Context, doc core.Document) (workflow.Report, error) {
	var rep workflow.Report
	id := doc.Ref.Identity()
	p := ExtractProject(id, doc.Body)
	if v := strings.ToLower(doc.Header.String("priority")); v == PriorityHigh || v == PriorityLow {
		p.Priority = v
	}
	if d := doc.Header.String("deadline"); d != "" && p.Deadline == "" {
		p.Deadline = d
	}

	plan, err := o.renderPlan(p)
	if err != nil {
		return rep, err
	}
	planRef, created, err := core.Derive(ctx, o.env.Store, core.StagePlans, ProjectPlanPrefix+id, plan)
	if err != nil {
		return rep, err
	}
	if created {
		rep.Created = append(rep.Created, planRef)
	}

	record, err := o.renderProject(p)
	if err != nil {
		return rep, err
	}
	projRef, projCreated, err := core.Derive(ctx, o.env.Store, core.StageActiveProjects, id, record)
	if err != nil {
		return rep, err
	}
	if projCreated {
		rep.Created = append(rep.Created, projRef)
	}
	if !created && !projCreated {
		return rep, nil
	}

	return rep, o.env.Record(ctx, audit.StatusCompleted, "PROJECT_PLAN_CREATED",
		fmt.Sprintf("Created project plan for %s", id),
		map[string]any{
			"project_name": id,
			"priority":     p.Priority,
			"deadline":     p.Deadline,
		})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (o *Operations) renderPlan(p Project) (string, error) {
	header := core.Header{
		"title":         "Project Plan: " + p.Name,
		"created":       stamp(o.env.Now()),
		"project_name":  p.Name,
		"priority":      p.Priority,
		"deadline":      orDefault(p.Deadline, "Not specified"),
		"status":        "pending",
		"original_task": p.Name,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Project Plan: %s\n\n", p.Name)
	fmt.Fprintf(&b, "## Project Overview\n%s\n\n", p.Description)
	fmt.Fprintf(&b, "## Priority\n%s\n\n", strings.ToUpper(p.Priority))
	fmt.Fprintf(&b, "## Deadline\n%s\n\n", orDefault(p.Deadline, "To be determined"))
	b.WriteString("## Recommended Actions\n")
	b.WriteString("1. Break down into specific tasks\n")
	b.WriteString("2. Assign resources if needed\n")
	b.WriteString("3. Set up progress tracking\n")
	b.WriteString("4. Monitor for potential bottlenecks\n\n")
	b.WriteString("## Risk Assessment\n")
	fmt.Fprintf(&b, "- Timeline: %s\n", orDefault(p.Deadline, "No deadline set"))
	b.WriteString("- Resource requirements: [To be determined]\n")
	b.WriteString("- Dependencies: [To be identified]\n")
	return core.Render(header, b.String())
}

func (o *Operations) renderProject(p Project) (string, error) {
	now := o.env.Now()
	header := core.Header{
		"title":    "Active Project: " + p.Name,
		"created":  stamp(now),
		"updated":  stamp(now),
		"status":   "planned",
		"priority": p.Priority,
		"deadline": orDefault(p.Deadline, "Not specified"),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Active Project: %s\n\n", p.Name)
	fmt.Fprintf(&b, "## Description\n%s\n\n", p.Description)
	b.WriteString("## Status\nPlanned, awaiting approval\n")
	return core.Render(header, b.String())
}

// Bottlenecks is the finding set of one bottleneck scan.
type Bottlenecks struct {
	Overdue []string
	Stale   []string
}

func (b Bottlenecks) Count() int {
	return len(b.Overdue) + len(b.Stale)
}

// Scan inspects ActiveProjects for overdue deadlines and high priority
// projects without a recent update.
func (o *Operations) Scan(ctx context.Context) (Bottlenecks, error) {
	var found Bottlenecks
	now := o.env.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	refs, err := core.Collect(ctx, o.env.Store, core.StageActiveProjects, "")
	if err != nil {
		return found, err
	}
	for _, ref := range refs {
		doc, err := core.Load(ctx, o.env.Store, ref)
		if core.Skippable(err) {
			continue
		}
		if err != nil {
			return found, err
		}
		if strings.EqualFold(doc.Header.String("status"), "completed") {
			continue
		}

		if d := doc.Header.String("deadline"); d != "" {
			if due, ok := ParseDeadline(d); ok && due.Before(today) {
				found.Overdue = append(found.Overdue, fmt.Sprintf("%s: Deadline %s", ref.Name, d))
			}
		}

		if strings.EqualFold(doc.Header.String("priority"), PriorityHigh) {
			last, ok := doc.Header.Time("updated")
			if !ok {
				last, ok = doc.Header.Time("created")
			}
			if ok && now.Sub(last) > StaleAfter {
				found.Stale = append(found.Stale, fmt.Sprintf("%s: Last updated %s", ref.Name, stamp(last)))
			}
		}
	}
	return found, nil
}

// Periodic writes the daily bottleneck report when there are findings.
func (o *Operations) Periodic(ctx context.Context) (workflow.Report, error) {
	var rep workflow.Report
	now := o.env.Now()
	id := BottleneckPrefix + dayKey(now)

	done, err := claimed(ctx, o.env.Store, id)
	if err != nil || done {
		return rep, err
	}
	found, err := o.Scan(ctx)
	if err != nil || found.Count() == 0 {
		return rep, err
	}

	header := core.Header{
		"title":       "Operations Bottleneck Report",
		"created":     stamp(now),
		"report_type": "bottleneck_analysis",
		"status":      "active",
	}
	var b strings.Builder
	b.WriteString("# Operations Bottleneck Report\n\n")
	b.WriteString("## Overdue Projects\n")
	b.WriteString(bullet(found.Overdue))
	b.WriteString("\n## High Priority Unchanged Projects\n")
	b.WriteString(bullet(found.Stale))
	b.WriteString("\n## Recommendations\n")
	b.WriteString("1. Review overdue projects for timeline adjustments\n")
	b.WriteString("2. Check status of high priority unchanged projects\n")
	b.WriteString("3. Consider reassigning or escalating blocked projects\n")
	content, err := core.Render(header, b.String())
	if err != nil {
		return rep, err
	}

	ref, created, err := core.Derive(ctx, o.env.Store, core.StagePlans, id, content)
	if err != nil || !created {
		return rep, err
	}
	rep.Created = append(rep.Created, ref)
	return rep, o.env.Record(ctx, audit.StatusCompleted, "BOTTLENECK_REPORT_CREATED",
		"Created bottleneck analysis report",
		map[string]any{"report": ref.Name, "bottlenecks_found": found.Count()})
}
