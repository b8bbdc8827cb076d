package workflow

import (
	"context"
	_ "embed"
	"errors"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

const (
	// DashboardSurface is the rendered status view at the vault root.
	DashboardSurface = "Dashboard.md"
	// TemplateSurface, when present, overrides the built-in template.
	TemplateSurface = "Dashboard.template.md"
)

//go:embed templates/dashboard.md
var defaultTemplate string

// DefaultTemplate returns the built-in dashboard template.
func DefaultTemplate() string {
	return defaultTemplate
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Snapshot is the dashboard projection. It is recomputed on every call.
type Snapshot struct {
	Date              time.Time `json:"date"`
	NeedsAction       int       `json:"needs_action_count"`
	InProgress        int       `json:"in_progress_count"`
	PendingApproval   int       `json:"approval_count"`
	DoneToday         int       `json:"done_today_count"`
	AIMode            string    `json:"ai_mode"`
	ConnectedServices string    `json:"connected_services"`
}

// Renderer produces the text for one placeholder.
type Renderer func(Snapshot) string

// DefaultRenderers maps placeholder keys to their values.
func DefaultRenderers() map[string]Renderer {
	return map[string]Renderer{
		"date":               func(s Snapshot) string { return s.Date.Format("2006-01-02 15:04:05") },
		"needs_action_count": func(s Snapshot) string { return strconv.Itoa(s.NeedsAction) },
		"in_progress_count":  func(s Snapshot) string { return strconv.Itoa(s.InProgress) },
		"approval_count":     func(s Snapshot) string { return strconv.Itoa(s.PendingApproval) },
		"done_today_count":   func(s Snapshot) string { return strconv.Itoa(s.DoneToday) },
		"ai_mode":            func(s Snapshot) string { return s.AIMode },
		"connected_services": func(s Snapshot) string { return s.ConnectedServices },
	}
}

// StatusSource supplies the AI fields of the snapshot.
type StatusSource interface {
	IsConnected() bool
	Info() string
}

// Dashboard projects stage counts into the status surface.
type Dashboard struct {
	env       Env
	surface   core.Surface
	status    StatusSource
	renderers map[string]Renderer
}

// NewDashboard returns a projector writing to surface. status may be nil.
func NewDashboard(env Env, surface core.Surface, status StatusSource) *Dashboard {
	return &Dashboard{
		env:       env,
		surface:   surface,
		status:    status,
		renderers: DefaultRenderers(),
	}
}

// Snapshot counts documents per stage as they are right now.
func (d *Dashboard) Snapshot(ctx context.Context) (Snapshot, error) {
	now := d.env.Now()
	snap := Snapshot{
		Date:              now,
		AIMode:            "DRY_RUN",
		ConnectedServices: "None",
	}
	if d.status != nil {
		snap.ConnectedServices = d.status.Info()
		if d.status.IsConnected() {
			snap.AIMode = "LIVE"
		}
	}

	counts := []struct {
		stage core.Stage
		glob  string
		dst   *int
	}{
		{core.StageNeedsAction, "", &snap.NeedsAction},
		{core.StagePlans, "", &snap.InProgress},
		{core.StagePendingApproval, "", &snap.PendingApproval},
		{core.StageDone, "*" + now.Format("20060102") + "*" + core.Extension, &snap.DoneToday},
	}
	for _, c := range counts {
		n, err := core.Count(ctx, d.env.Store, c.stage, c.glob)
		if err != nil {
			return Snapshot{}, err
		}
		*c.dst = n
	}
	return snap, nil
}

// RenderResult is a rendered dashboard plus the placeholders that did not
// line up with the renderer set.
type RenderResult struct {
	Content string
	// Missing lists renderer keys the template never references.
	Missing []string
	// Unknown lists template placeholders with no renderer; they are left
	// in the output verbatim.
	Unknown []string
}

// Render substitutes every known placeholder in tpl.
func (d *Dashboard) Render(tpl string, snap Snapshot) RenderResult {
	seen := make(map[string]bool)
	var unknown []string

	content := placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		seen[key] = true
		r, ok := d.renderers[key]
		if !ok {
			if !slices.Contains(unknown, key) {
				unknown = append(unknown, key)
			}
			return m
		}
		return r(snap)
	})

	var missing []string
	for key := range d.renderers {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	slices.Sort(missing)

	return RenderResult{Content: content, Missing: missing, Unknown: unknown}
}

// Run recomputes the snapshot and rewrites the dashboard surface.
func (d *Dashboard) Run(ctx context.Context) (RenderResult, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return RenderResult{}, err
	}

	tpl, err := d.surface.ReadSurface(ctx, TemplateSurface)
	if errors.Is(err, core.ErrNotFound) {
		tpl, err = defaultTemplate, nil
	}
	if err != nil {
		return RenderResult{}, err
	}

	res := d.Render(tpl, snap)
	if len(res.Missing) > 0 || len(res.Unknown) > 0 {
		d.env.Log().Warn("dashboard template mismatch", "missing", res.Missing, "unknown", res.Unknown)
	}
	if err := d.surface.WriteSurface(ctx, DashboardSurface, res.Content); err != nil {
		return res, err
	}
	d.env.Log().Debug("dashboard updated",
		"needs_action", snap.NeedsAction,
		"in_progress", snap.InProgress,
		"approval", snap.PendingApproval,
		"done_today", snap.DoneToday)
	return res, nil
}
