package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	Creates       int        `json:"creates"`
	Writes        int        `json:"writes"`
	Moves         int        `json:"moves"`
	Deletes       int        `json:"deletes"`
	Races         int        `json:"races"`
	WatcherActive bool       `json:"watcher_active"`
	LastEvent     *time.Time `json:"last_event,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()

	return StoreState{
		Path:          s.Path,
		SystemDir:     s.config.SystemDir,
		Creates:       s.stats.Creates,
		Writes:        s.stats.Writes,
		Moves:         s.stats.Moves,
		Deletes:       s.stats.Deletes,
		Races:         s.stats.Races,
		WatcherActive: s.watcherActive,
		LastEvent:     s.lastEvent,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.watcherActive = active
}

func (s *Store) recordEvent() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	now := time.Now()
	s.lastEvent = &now
}
