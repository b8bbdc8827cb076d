// Package lifecycle adapts vault change events to the lifecycle event model
// so they can wake the cycle runner.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// Filter decides whether an event is forwarded.
type Filter func(core.Event) bool

// IntakeCreated passes only new documents in NeedsAction. Rewrites and moves
// done by the cycle itself never trigger another cycle.
func IntakeCreated(e core.Event) bool {
	return e.Type == core.EventCreate && e.Ref.Stage == core.StageNeedsAction
}

// Watcher opens a stream of vault events bound to ctx.
type Watcher interface {
	Watch(ctx context.Context, stages ...core.Stage) (<-chan core.Event, error)
}

// Source emits vault events as lifecycle events.
type Source struct {
	events <-chan core.Event
	open   func(ctx context.Context) (<-chan core.Event, error)
	filter Filter
	out    chan lifecycle.Event
}

var _ lifecycle.Source = (*Source)(nil)

// NewSource bridges events. A nil filter forwards everything.
func NewSource(events <-chan core.Event, filter Filter) *Source {
	return &Source{
		events: events,
		filter: filter,
		out:    make(chan lifecycle.Event),
	}
}

// WatchSource defers w.Watch until the source is started, so the watcher
// lives exactly as long as the context handed to Start.
func WatchSource(w Watcher, filter Filter, stages ...core.Stage) *Source {
	return &Source{
		open: func(ctx context.Context) (<-chan core.Event, error) {
			return w.Watch(ctx, stages...)
		},
		filter: filter,
		out:    make(chan lifecycle.Event),
	}
}

func (s *Source) Events() <-chan lifecycle.Event {
	return s.out
}

// Start runs the bridge until ctx is done or the upstream channel closes.
// The output channel is closed on exit.
func (s *Source) Start(ctx context.Context) error {
	if s.events == nil && s.open != nil {
		events, err := s.open(ctx)
		if err != nil {
			return err
		}
		s.events = events
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if s.filter != nil && !s.filter(e) {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
