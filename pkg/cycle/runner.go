// Package cycle drives the workflow: one cycle runs every component once, in
// a fixed order, under a cross-process lock.
package cycle

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

// DefaultInterval is the pause between cycles in continuous mode.
const DefaultInterval = 300 * time.Second

// Step is one component run inside a cycle.
type Step struct {
	Name string
	Run  func(ctx context.Context) (workflow.Report, error)
}

// Result is the outcome of one cycle.
type Result struct {
	Report workflow.Report
	// Locked is set when another process held the cycle lock and the cycle
	// was skipped.
	Locked   bool
	Duration time.Duration
}

// Runner executes cycles.
type Runner struct {
	env      workflow.Env
	steps    []Step
	lock     *Lock
	status   workflow.StatusSource
	interval time.Duration
	trigger  lifecycle.Source

	mu    sync.Mutex
	stats runnerStats
}

// Option configures a Runner.
type Option func(*Runner)

// WithLock guards every cycle with the lock file at path.
func WithLock(path string) Option {
	return func(r *Runner) {
		r.lock = NewLock(path)
	}
}

// WithInterval sets the continuous mode pause.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTrigger wakes continuous mode early on every event from src.
func WithTrigger(src lifecycle.Source) Option {
	return func(r *Runner) {
		r.trigger = src
	}
}

// WithStatus reports the AI mode in system audit entries.
func WithStatus(s workflow.StatusSource) Option {
	return func(r *Runner) {
		r.status = s
	}
}

// NewRunner returns a runner over steps, executed in order.
func NewRunner(env workflow.Env, steps []Step, opts ...Option) *Runner {
	r := &Runner{
		env:      env,
		steps:    steps,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lock returns the cycle lock, nil when the runner is unlocked.
func (r *Runner) Lock() *Lock {
	return r.lock
}

func (r *Runner) systemDetails() map[string]any {
	mode, services := "DRY_RUN", "None"
	if r.status != nil {
		services = r.status.Info()
		if r.status.IsConnected() {
			mode = "LIVE"
		}
	}
	return map[string]any{"ai_mode": mode, "connected_services": services}
}

// Cycle runs every step once. Per-document failures never surface here; a
// returned error is a *core.CycleError, already audited as CYCLE_ERROR.
//
// Cancelling ctx does not interrupt a cycle: every step runs and the
// maintenance entry is written. Callers stop between cycles.
func (r *Runner) Cycle(ctx context.Context) (res Result, err error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	if r.lock != nil {
		ok, lerr := r.lock.TryAcquire()
		if lerr != nil {
			return res, r.fail(ctx, &core.CycleError{Step: "lock", Err: lerr})
		}
		if !ok {
			res.Locked = true
			r.markLocked()
			r.env.Log().Info("another instance holds the cycle lock, skipping", "lock", r.lock.Path())
			return res, nil
		}
		defer func() {
			if rerr := r.lock.Release(); rerr != nil {
				r.env.Log().Warn("cycle lock release failed", "error", rerr)
			}
		}()
	}

	step := "start"
	defer func() {
		if recovered := recover(); recovered != nil {
			perr := fmt.Errorf("panic: %v", recovered)
			r.env.Log().Error("cycle panic", "step", step, "error", perr, "stack", string(debug.Stack()))
			err = r.fail(ctx, &core.CycleError{Step: step, Err: perr})
		}
		res.Duration = time.Since(start)
		r.finish(res, err)
	}()

	for _, s := range r.steps {
		step = s.Name
		rep, serr := s.Run(ctx)
		res.Report.Merge(rep)
		if serr != nil {
			return res, r.fail(ctx, &core.CycleError{Step: s.Name, Err: serr})
		}
		r.env.Log().Debug("step finished", "step", s.Name, "report", rep)
	}

	step = "maintenance"
	details := r.systemDetails()
	details["created"] = len(res.Report.Created)
	details["moved"] = len(res.Report.Moved)
	details["deleted"] = len(res.Report.Deleted)
	details["skipped"] = res.Report.Skipped
	details["failed"] = res.Report.Failed
	if aerr := r.env.Record(ctx, audit.StatusCompleted, "SYSTEM_MAINTENANCE", "Cycle completed", details); aerr != nil {
		return res, &core.CycleError{Step: step, Err: aerr}
	}
	r.env.Log().Info("cycle completed", "report", res.Report, "duration", time.Since(start))
	return res, nil
}

// fail audits a cycle error. The returned error is the cycle error itself,
// or the audit failure when that is the more severe of the two.
func (r *Runner) fail(ctx context.Context, cerr *core.CycleError) error {
	r.env.Log().Error("cycle failed", "step", cerr.Step, "error", cerr.Err)
	aerr := r.env.Record(ctx, audit.StatusError, "CYCLE_ERROR", cerr.Error(),
		map[string]any{"step": cerr.Step, "error": cerr.Err.Error()})
	if aerr != nil && !core.Fatal(cerr) {
		return &core.CycleError{Step: "audit", Err: aerr}
	}
	return cerr
}

// RunOnce runs a single cycle bracketed by SYSTEM_START and SYSTEM_STOP.
func (r *Runner) RunOnce(ctx context.Context) error {
	if err := r.begin(ctx, "once"); err != nil {
		return err
	}
	_, err := r.Cycle(ctx)
	if serr := r.end(ctx, "once"); serr != nil && err == nil {
		err = serr
	}
	return err
}

// RunContinuous runs cycles until ctx is done or a storage failure occurs.
// Between cycles it waits for the interval or a trigger event, whichever
// comes first. Cancellation is only observed between cycles.
func (r *Runner) RunContinuous(ctx context.Context) error {
	if err := r.begin(ctx, "continuous"); err != nil {
		return err
	}
	defer func() {
		_ = r.end(ctx, "continuous")
	}()

	var wake <-chan lifecycle.Event
	if r.trigger != nil {
		if err := r.trigger.Start(ctx); err != nil {
			return fmt.Errorf("failed to start trigger: %w", err)
		}
		wake = r.trigger.Events()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case e, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			r.env.Log().Info("cycle triggered by vault change", "event", e.String())
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if _, err := r.Cycle(ctx); err != nil && core.Fatal(err) {
			return err
		}
		timer.Reset(r.interval)
	}
}

func (r *Runner) begin(ctx context.Context, mode string) error {
	r.setRunning(mode)
	details := r.systemDetails()
	details["mode"] = mode
	if mode == "continuous" {
		details["interval"] = r.interval.String()
	}
	return r.env.Record(ctx, audit.StatusCompleted, "SYSTEM_START", "AI Employee started", details)
}

func (r *Runner) end(ctx context.Context, mode string) error {
	cycles := r.setStopped()
	return r.env.Record(context.WithoutCancel(ctx), audit.StatusCompleted, "SYSTEM_STOP", "AI Employee stopped",
		map[string]any{"mode": mode, "cycles": cycles})
}
