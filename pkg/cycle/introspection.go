package cycle

import (
	"time"

	"github.com/aretw0/introspection"
)

type runnerStats struct {
	mode       string
	running    bool
	cycles     int
	failures   int
	lockedOut  int
	lastCycle  *time.Time
	lastError  string
	lastResult Result
}

// RunnerState exposes the runner for observability.
type RunnerState struct {
	Mode      string     `json:"mode,omitempty"`
	Running   bool       `json:"running"`
	Interval  string     `json:"interval"`
	Cycles    int        `json:"cycles"`
	Failures  int        `json:"failures"`
	LockedOut int        `json:"locked_out"`
	LastCycle *time.Time `json:"last_cycle,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Created   int        `json:"last_created"`
	Moved     int        `json:"last_moved"`
	Deleted   int        `json:"last_deleted"`
	Skipped   int        `json:"last_skipped"`
	Failed    int        `json:"last_failed"`
	Duration  string     `json:"last_duration,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Runner) State() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := RunnerState{
		Mode:      r.stats.mode,
		Running:   r.stats.running,
		Interval:  r.interval.String(),
		Cycles:    r.stats.cycles,
		Failures:  r.stats.failures,
		LockedOut: r.stats.lockedOut,
		LastCycle: r.stats.lastCycle,
		LastError: r.stats.lastError,
	}
	if r.stats.lastCycle != nil {
		rep := r.stats.lastResult.Report
		st.Created = len(rep.Created)
		st.Moved = len(rep.Moved)
		st.Deleted = len(rep.Deleted)
		st.Skipped = rep.Skipped
		st.Failed = rep.Failed
		st.Duration = r.stats.lastResult.Duration.String()
	}
	return st
}

// ComponentType implements introspection.Component.
func (r *Runner) ComponentType() string {
	return "runner"
}

var _ introspection.Introspectable = (*Runner)(nil)
var _ introspection.Component = (*Runner)(nil)

func (r *Runner) finish(res Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.stats.cycles++
	r.stats.lastCycle = &now
	r.stats.lastResult = res
	r.stats.lastError = ""
	if err != nil {
		r.stats.failures++
		r.stats.lastError = err.Error()
	}
}

func (r *Runner) markLocked() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.lockedOut++
}

func (r *Runner) setRunning(mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.mode = mode
	r.stats.running = true
}

func (r *Runner) setStopped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.running = false
	return r.stats.cycles
}
