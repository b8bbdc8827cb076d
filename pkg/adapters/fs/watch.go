package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// Watch reports document changes in the given stages until ctx is done.
// Bursts are coalesced: each file yields at most one event per quiet window.
// The returned channel is closed when the watcher stops.
func (s *Store) Watch(ctx context.Context, stages ...core.Stage) (<-chan core.Event, error) {
	if len(stages) == 0 {
		stages = []core.Stage{core.StageNeedsAction}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, stage := range stages {
		if err := watcher.Add(s.stageDir(stage)); err != nil {
			_ = watcher.Close()
			return nil, classify("watch", stage.Dir(), err)
		}
	}

	events := make(chan core.Event)
	s.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer s.setWatcherActive(false)
		defer watcher.Close()
		return s.watchLoop(ctx, watcher, events)
	}, lifecycle.WithErrorHandler(func(err error) {
		s.config.Logger.Error("watcher failed", "error", err)
	}))

	return events, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- core.Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if s.config.Logger.Enabled(ctx, slog.LevelDebug) {
				s.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				s.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()

	pending := make(map[string]core.Event)
	timer := time.NewTimer(s.config.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			e, ok := s.mapEvent(event)
			if !ok {
				continue
			}
			s.config.Logger.Debug("event received", "event", e.String())
			pending[e.Ref.String()] = e
			timer.Reset(s.config.Debounce)

		case <-timer.C:
			keys := make([]string, 0, len(pending))
			for k := range pending {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				select {
				case out <- pending[k]:
				case <-ctx.Done():
					return nil
				}
			}
			clear(pending)
			s.recordEvent()

		case wErr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			s.config.Logger.Error("fsnotify error", "error", wErr)
		}
	}
}

// mapEvent turns a raw notification into a document event, dropping temp
// files, hidden files and anything outside a stage directory.
func (s *Store) mapEvent(event fsnotify.Event) (core.Event, bool) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, TempFilePrefix) ||
		!strings.HasSuffix(name, core.Extension) {
		return core.Event{}, false
	}
	stage, ok := core.StageForDir(filepath.Base(filepath.Dir(event.Name)))
	if !ok {
		return core.Event{}, false
	}

	var typ core.EventType
	switch {
	case event.Has(fsnotify.Create):
		typ = core.EventCreate
	case event.Has(fsnotify.Write):
		typ = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		typ = core.EventDelete
	default:
		return core.Event{}, false
	}

	return core.Event{
		Type:      typ,
		Ref:       core.Ref{Stage: stage, Name: name},
		Timestamp: time.Now().Unix(),
	}, true
}
