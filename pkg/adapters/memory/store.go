// Package memory provides an in-memory DocumentStore with the same semantics
// as the filesystem adapter. It backs component tests.
package memory

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// Store keeps documents in maps keyed by stage and name.
type Store struct {
	mu      sync.RWMutex
	docs    map[core.Stage]map[string]string
	surface map[string]string

	// FailOn, when set, injects an error into a mutation. It receives the
	// operation name ("create", "write", "move", "delete") and the ref.
	FailOn func(op string, ref core.Ref) error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		docs:    make(map[core.Stage]map[string]string),
		surface: make(map[string]string),
	}
}

func (s *Store) fail(op string, ref core.Ref) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn(op, ref)
}

func checkRef(ref core.Ref) error {
	if !ref.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", ref.Stage)
	}
	if ref.Name == "" || strings.HasPrefix(ref.Name, ".") || strings.ContainsAny(ref.Name, `/\`) {
		return fmt.Errorf("invalid document name %q", ref.Name)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, stage core.Stage, name, content string) (core.Ref, error) {
	if err := ctx.Err(); err != nil {
		return core.Ref{}, err
	}
	if name == "" {
		return core.Ref{}, fmt.Errorf("invalid document name %q", name)
	}
	ref := core.Ref{Stage: stage, Name: core.FileName(name)}
	if err := checkRef(ref); err != nil {
		return core.Ref{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("create", ref); err != nil {
		return core.Ref{}, err
	}
	if _, ok := s.docs[stage][ref.Name]; ok {
		return core.Ref{}, fmt.Errorf("create %s: %w", ref, core.ErrAlreadyExists)
	}
	if s.docs[stage] == nil {
		s.docs[stage] = make(map[string]string)
	}
	s.docs[stage][ref.Name] = content
	return ref, nil
}

func (s *Store) Read(ctx context.Context, ref core.Ref) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.docs[ref.Stage][ref.Name]
	if !ok {
		return "", fmt.Errorf("read %s: %w", ref, core.ErrNotFound)
	}
	return content, nil
}

func (s *Store) Write(ctx context.Context, ref core.Ref, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("write", ref); err != nil {
		return err
	}
	if _, ok := s.docs[ref.Stage][ref.Name]; !ok {
		return fmt.Errorf("write %s: %w", ref, core.ErrNotFound)
	}
	s.docs[ref.Stage][ref.Name] = content
	return nil
}

func (s *Store) Move(ctx context.Context, ref core.Ref, target core.Stage, rename core.RenameFunc) (core.Ref, error) {
	if err := ctx.Err(); err != nil {
		return core.Ref{}, err
	}
	if rename == nil {
		rename = core.KeepName
	}
	dst := core.Ref{Stage: target, Name: rename(ref.Name)}
	if err := checkRef(dst); err != nil {
		return core.Ref{}, err
	}
	if dst == ref {
		return ref, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("move", ref); err != nil {
		return core.Ref{}, err
	}
	content, ok := s.docs[ref.Stage][ref.Name]
	if !ok {
		return core.Ref{}, fmt.Errorf("move %s: %w", ref, core.ErrNotFound)
	}
	if _, taken := s.docs[target][dst.Name]; taken {
		return core.Ref{}, fmt.Errorf("move %s -> %s: %w", ref, dst, core.ErrAlreadyExists)
	}
	if s.docs[target] == nil {
		s.docs[target] = make(map[string]string)
	}
	delete(s.docs[ref.Stage], ref.Name)
	s.docs[target][dst.Name] = content
	return dst, nil
}

func (s *Store) List(ctx context.Context, stage core.Stage, glob string) (iter.Seq[core.Ref], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !stage.Valid() {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	if glob == "" {
		glob = "*" + core.Extension
	}
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid glob %q", glob)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []core.Ref
	for name := range s.docs[stage] {
		if ok, _ := doublestar.Match(glob, name); ok {
			refs = append(refs, core.Ref{Stage: stage, Name: name})
		}
	}
	slices.SortFunc(refs, func(a, b core.Ref) int { return strings.Compare(a.Name, b.Name) })
	return slices.Values(refs), nil
}

func (s *Store) Delete(ctx context.Context, ref core.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("delete", ref); err != nil {
		return err
	}
	if _, ok := s.docs[ref.Stage][ref.Name]; !ok {
		return fmt.Errorf("delete %s: %w", ref, core.ErrNotFound)
	}
	delete(s.docs[ref.Stage], ref.Name)
	return nil
}

func (s *Store) ReadSurface(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.surface[name]
	if !ok {
		return "", fmt.Errorf("read %s: %w", name, core.ErrNotFound)
	}
	return content, nil
}

func (s *Store) WriteSurface(ctx context.Context, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface[name] = content
	return nil
}

// Names returns the sorted document names of a stage.
func (s *Store) Names(stage core.Stage) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.docs[stage]))
	for name := range s.docs[stage] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var (
	_ core.DocumentStore = (*Store)(nil)
	_ core.Surface       = (*Store)(nil)
)
