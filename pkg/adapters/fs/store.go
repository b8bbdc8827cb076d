package fs

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// DefaultSystemDir holds runtime state (config, cycle lock) inside the vault.
const DefaultSystemDir = ".employee"

// Store implements core.DocumentStore on a vault directory. Each stage is a
// subdirectory; a document's stage is wherever its file currently lives.
type Store struct {
	Path   string
	config Config

	// mu serializes mutations from this process. Cross-process exclusion is
	// the cycle lock's job.
	mu sync.Mutex

	statsMu       sync.RWMutex
	stats         opStats
	watcherActive bool
	lastEvent     *time.Time
}

type opStats struct {
	Creates int
	Writes  int
	Moves   int
	Deletes int
	Races   int
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	MustExist bool
	Logger    *slog.Logger
	SystemDir string        // e.g. ".employee"
	Debounce  time.Duration // quiet window for watch events
}

// NewStore creates a new filesystem-backed store.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	return &Store{Path: config.Path, config: config}
}

// Initialize creates the vault, its stage directories and the system dir.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", s.Path)
		}
		if err != nil {
			return classify("stat", s.Path, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", s.Path)
		}
	}

	dirs := []string{s.SystemPath()}
	for _, stage := range core.Stages() {
		dirs = append(dirs, s.stageDir(stage))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return classify("mkdir", dir, err)
		}
	}
	return nil
}

// SystemPath returns the absolute path of the system directory.
func (s *Store) SystemPath() string {
	return filepath.Join(s.Path, s.config.SystemDir)
}

func (s *Store) stageDir(stage core.Stage) string {
	return filepath.Join(s.Path, stage.Dir())
}

func (s *Store) refPath(ref core.Ref) (string, error) {
	if !ref.Stage.Valid() {
		return "", fmt.Errorf("unknown stage %q", ref.Stage)
	}
	if err := checkLeaf(ref.Name); err != nil {
		return "", err
	}
	return filepath.Join(s.stageDir(ref.Stage), ref.Name), nil
}

func checkLeaf(name string) error {
	if name == "" || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, TempFilePrefix) {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}

// Create stores a new document without ever replacing an existing one.
func (s *Store) Create(ctx context.Context, stage core.Stage, name, content string) (core.Ref, error) {
	if err := ctx.Err(); err != nil {
		return core.Ref{}, err
	}
	if name == "" {
		return core.Ref{}, fmt.Errorf("invalid document name %q", name)
	}
	ref := core.Ref{Stage: stage, Name: core.FileName(name)}
	target, err := s.refPath(ref)
	if err != nil {
		return core.Ref{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return core.Ref{}, classify("mkdir", ref.Stage.Dir(), err)
	}
	if err := createFileExclusive(target, []byte(content), 0644); err != nil {
		return core.Ref{}, classify("create", ref.String(), err)
	}

	s.count(func(st *opStats) { st.Creates++ })
	s.config.Logger.Debug("document created", "ref", ref.String())
	return ref, nil
}

// Read returns the raw document content.
func (s *Store) Read(ctx context.Context, ref core.Ref) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.refPath(ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", classify("read", ref.String(), err)
	}
	return string(data), nil
}

// Write rewrites an existing document in place.
func (s *Store) Write(ctx context.Context, ref core.Ref, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.refPath(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return classify("write", ref.String(), err)
	}
	if err := writeFileAtomic(path, []byte(content), info.Mode().Perm()); err != nil {
		return classify("write", ref.String(), err)
	}

	s.count(func(st *opStats) { st.Writes++ })
	return nil
}

// Move relocates a document with a single no-clobber rename.
func (s *Store) Move(ctx context.Context, ref core.Ref, target core.Stage, rename core.RenameFunc) (core.Ref, error) {
	if err := ctx.Err(); err != nil {
		return core.Ref{}, err
	}
	if rename == nil {
		rename = core.KeepName
	}
	src, err := s.refPath(ref)
	if err != nil {
		return core.Ref{}, err
	}
	dstRef := core.Ref{Stage: target, Name: rename(ref.Name)}
	dst, err := s.refPath(dstRef)
	if err != nil {
		return core.Ref{}, err
	}
	if src == dst {
		return ref, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return core.Ref{}, classify("mkdir", target.Dir(), err)
	}
	if err := renameNoReplace(src, dst); err != nil {
		err = classify("move", ref.String()+" -> "+dstRef.String(), err)
		if core.Skippable(err) {
			s.count(func(st *opStats) { st.Races++ })
		}
		return core.Ref{}, err
	}

	s.count(func(st *opStats) { st.Moves++ })
	s.config.Logger.Debug("document moved", "from", ref.String(), "to", dstRef.String())
	return dstRef, nil
}

// List returns a name-sorted snapshot of the stage's documents matching glob.
// An empty glob matches every document.
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

	entries, err := os.ReadDir(s.stageDir(stage))
	if err != nil {
		if os.IsNotExist(err) {
			return func(func(core.Ref) bool) {}, nil
		}
		return nil, classify("list", stage.Dir(), err)
	}

	var refs []core.Ref
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, TempFilePrefix) {
			continue
		}
		ok, err := doublestar.Match(glob, name)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", glob, err)
		}
		if ok {
			refs = append(refs, core.Ref{Stage: stage, Name: name})
		}
	}
	slices.SortFunc(refs, func(a, b core.Ref) int { return strings.Compare(a.Name, b.Name) })

	return slices.Values(refs), nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, ref core.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.refPath(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		return classify("delete", ref.String(), err)
	}
	s.count(func(st *opStats) { st.Deletes++ })
	return nil
}

// ReadSurface reads a file at the vault root.
func (s *Store) ReadSurface(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkLeaf(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.Path, name))
	if err != nil {
		return "", classify("read", name, err)
	}
	return string(data), nil
}

// WriteSurface creates or replaces a file at the vault root.
func (s *Store) WriteSurface(ctx context.Context, name, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkLeaf(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(filepath.Join(s.Path, name), []byte(content), 0644); err != nil {
		return classify("write", name, err)
	}
	return nil
}

func (s *Store) count(fn func(*opStats)) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	fn(&s.stats)
}

var (
	_ core.DocumentStore = (*Store)(nil)
	_ core.Surface       = (*Store)(nil)
)
