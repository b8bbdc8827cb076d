// Package workflow implements the stage machine's components: plan
// generation, the approval gate, the completion sweep and the dashboard
// projection.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// Env bundles what every component needs.
type Env struct {
	Store  core.DocumentStore
	Audit  audit.Recorder
	Logger *slog.Logger
	Clock  func() time.Time
}

// Now returns the current time from Clock, or time.Now.
func (e Env) Now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Log returns Logger, or slog.Default.
func (e Env) Log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Record writes an audit entry. Only failures that must stop the run are
// returned; anything else is logged.
func (e Env) Record(ctx context.Context, status audit.Status, actionType, description string, details map[string]any) error {
	if e.Audit == nil {
		return nil
	}
	err := e.Audit.Record(ctx, audit.Entry{
		ActionType:  actionType,
		Description: description,
		Status:      status,
		Details:     details,
	})
	if err == nil {
		return nil
	}
	if core.Fatal(err) {
		return err
	}
	e.Log().Warn("audit write failed", "action_type", actionType, "error", err)
	return nil
}

// Fail handles a per-document failure at the document boundary.
//
// Vanished documents are skipped silently. Collisions are skipped and audited
// as CollisionType(actionType); other failures are audited under actionType.
// Either way the batch goes on. A non-nil return means the batch must stop
// (storage failure or cancellation).
func (e Env) Fail(ctx context.Context, rep *Report, component, actionType string, ref core.Ref, err error) error {
	if core.Fatal(err) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		rep.Skipped++
		e.Log().Debug("document vanished, skipping", "component", component, "ref", ref.String())
		return nil
	case errors.Is(err, core.ErrAlreadyExists):
		rep.Skipped++
		e.Log().Warn("name collision, skipping", "component", component, "ref", ref.String(), "error", err)
		return e.Record(ctx, audit.StatusError, CollisionType(actionType),
			fmt.Sprintf("%s: %s collides with an existing document", component, ref.Name),
			map[string]any{
				"document": ref.Name,
				"stage":    ref.Stage.Dir(),
				"error":    err.Error(),
			})
	}

	rep.Failed++
	perr := &core.ProcessingError{Component: component, Document: ref.Name, Err: err}
	e.Log().Error("processing failed", "component", component, "ref", ref.String(), "error", err)
	return e.Record(ctx, audit.StatusError, actionType, perr.Error(), map[string]any{
		"document": ref.Name,
		"stage":    ref.Stage.Dir(),
		"error":    err.Error(),
	})
}

// CollisionType derives the collision action type from a component's error
// type: APPROVAL_ERROR becomes APPROVAL_COLLISION.
func CollisionType(actionType string) string {
	base := strings.TrimSuffix(actionType, "_ERROR")
	base = strings.TrimSuffix(base, "_PROCESSING")
	return base + "_COLLISION"
}

// Report summarizes what a component run changed.
type Report struct {
	Created []core.Ref
	Moved   []core.Ref
	Deleted []core.Ref
	Skipped int
	Failed  int
}

// Merge folds o into r.
func (r *Report) Merge(o Report) {
	r.Created = append(r.Created, o.Created...)
	r.Moved = append(r.Moved, o.Moved...)
	r.Deleted = append(r.Deleted, o.Deleted...)
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Changed reports whether the run touched the vault.
func (r Report) Changed() bool {
	return len(r.Created)+len(r.Moved)+len(r.Deleted) > 0
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("created", len(r.Created)),
		slog.Int("moved", len(r.Moved)),
		slog.Int("deleted", len(r.Deleted)),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
	)
}

func stamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
