package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

var completionMarkers = []string{"status: completed", "completed: true"}

// HasCompletionMarker reports whether content declares the work finished.
func HasCompletionMarker(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range completionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Sweeper files finished work into Done.
type Sweeper struct {
	env Env
}

func NewSweeper(env Env) *Sweeper {
	return &Sweeper{env: env}
}

var sweepStages = []core.Stage{core.StageApproved, core.StagePlans}

// Run moves every Approved or Plans document carrying the completion marker
// to Done, then moves the artifacts sharing its stem along with it.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	var rep Report

	var finished []core.Ref
	for _, stage := range sweepStages {
		refs, err := core.Collect(ctx, s.env.Store, stage, "")
		if err != nil {
			return rep, err
		}
		for _, ref := range refs {
			raw, err := s.env.Store.Read(ctx, ref)
			if err != nil {
				if ferr := s.env.Fail(ctx, &rep, "completion_sweeper", "SWEEP_ERROR", ref, err); ferr != nil {
					return rep, ferr
				}
				continue
			}
			if HasCompletionMarker(raw) {
				finished = append(finished, ref)
			}
		}
	}

	for _, ref := range finished {
		if err := s.complete(ctx, &rep, ref); err != nil {
			if ferr := s.env.Fail(ctx, &rep, "completion_sweeper", "SWEEP_ERROR", ref, err); ferr != nil {
				return rep, ferr
			}
		}
	}
	return rep, nil
}

func (s *Sweeper) complete(ctx context.Context, rep *Report, ref core.Ref) error {
	rename := core.CompletedName(s.env.Now())

	done, err := core.Transition(ctx, s.env.Store, ref, core.StageDone, rename)
	if err != nil {
		return err
	}
	rep.Moved = append(rep.Moved, done)

	var related []string
	stem := ref.Stem()
	for _, stage := range sweepStages {
		refs, err := core.Collect(ctx, s.env.Store, stage, "")
		if err != nil {
			return err
		}
		for _, other := range refs {
			if other.Stem() != stem {
				continue
			}
			moved, err := core.Transition(ctx, s.env.Store, other, core.StageDone, rename)
			if err != nil {
				if ferr := s.env.Fail(ctx, rep, "completion_sweeper", "SWEEP_ERROR", other, err); ferr != nil {
					return ferr
				}
				continue
			}
			rep.Moved = append(rep.Moved, moved)
			related = append(related, moved.Name)
		}
	}

	return s.env.Record(ctx, audit.StatusCompleted, "TASK_COMPLETED",
		fmt.Sprintf("Moved %s to Done", ref.Name),
		map[string]any{
			"document": ref.Name,
			"done":     done.Name,
			"related":  related,
		})
}
