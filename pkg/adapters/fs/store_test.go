package fs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// setupTestStore creates an initialized store in a temp dir.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(Config{
		Path:   t.TempDir(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func collect(t *testing.T, store *Store, stage core.Stage, glob string) []string {
	t.Helper()
	seq, err := store.List(context.Background(), stage, glob)
	require.NoError(t, err)
	var names []string
	for ref := range seq {
		names = append(names, ref.Name)
	}
	return names
}

func TestInitializeCreatesStageDirs(t *testing.T) {
	store := setupTestStore(t)

	for _, stage := range core.Stages() {
		info, err := os.Stat(filepath.Join(store.Path, stage.Dir()))
		require.NoError(t, err, stage)
		assert.True(t, info.IsDir())
	}
	_, err := os.Stat(store.SystemPath())
	assert.NoError(t, err)
}

func TestInitializeMustExist(t *testing.T) {
	store := NewStore(Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true})
	assert.Error(t, store.Initialize(context.Background()))
}

func TestCreateReadWrite(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ref, err := store.Create(ctx, core.StageNeedsAction, "invoice", "---\ntype: email\n---\nbody")
	require.NoError(t, err)
	assert.Equal(t, core.Ref{Stage: core.StageNeedsAction, Name: "invoice.md"}, ref)

	raw, err := store.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "---\ntype: email\n---\nbody", raw)

	require.NoError(t, store.Write(ctx, ref, "rewritten"))
	raw, err = store.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", raw)

	_, err = store.Create(ctx, core.StageNeedsAction, "invoice.md", "again")
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	raw, _ = store.Read(ctx, ref)
	assert.Equal(t, "rewritten", raw, "create must never overwrite")
}

func TestReadWriteMissing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ghost := core.Ref{Stage: core.StagePlans, Name: "ghost.md"}

	_, err := store.Read(ctx, ghost)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, store.Write(ctx, ghost, "x"), core.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, ghost), core.ErrNotFound)
}

func TestInvalidNames(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "..", "../escape.md", "a/b.md", TempFilePrefix + "x.md"} {
		_, err := store.Create(ctx, core.StageNeedsAction, name, "x")
		assert.Error(t, err, name)
		assert.False(t, errors.Is(err, core.ErrAlreadyExists), name)
	}
}

func TestMove(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ref, err := store.Create(ctx, core.StagePlans, "plan_report.md", "plan")
	require.NoError(t, err)

	at := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	moved, err := store.Move(ctx, ref, core.StageDone, core.CompletedName(at))
	require.NoError(t, err)
	assert.Equal(t, core.StageDone, moved.Stage)
	assert.Equal(t, "completed_20260115_093000_plan_report.md", moved.Name)
	assert.Equal(t, "plan_report", moved.Identity())

	assert.Empty(t, collect(t, store, core.StagePlans, ""))
	assert.Equal(t, []string{moved.Name}, collect(t, store, core.StageDone, ""))

	_, err = store.Move(ctx, ref, core.StageDone, core.KeepName)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMoveRefusesCollision(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ref, err := store.Create(ctx, core.StagePlans, "plan_a.md", "new")
	require.NoError(t, err)
	_, err = store.Create(ctx, core.StageApproved, "plan_a.md", "old")
	require.NoError(t, err)

	_, err = store.Move(ctx, ref, core.StageApproved, nil)
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	raw, err := store.Read(ctx, core.Ref{Stage: core.StageApproved, Name: "plan_a.md"})
	require.NoError(t, err)
	assert.Equal(t, "old", raw)
	_, err = store.Read(ctx, ref)
	assert.NoError(t, err, "source must stay in place")
}

// TestConcurrentDoubleMove verifies that two movers racing on one document
// produce exactly one success and one ErrNotFound.
func TestConcurrentDoubleMove(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		ref, err := store.Create(ctx, core.StageApproved, "job.md", "x")
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[j] = store.Move(ctx, ref, core.StageDone, core.KeepName)
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, core.ErrNotFound)
			}
		}
		require.Equal(t, 1, succeeded)
		require.NoError(t, store.Delete(ctx, core.Ref{Stage: core.StageDone, Name: "job.md"}))
	}
}

func TestListSnapshotAndGlob(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"b.md", "a.md", "approval_plan_a.md"} {
		_, err := store.Create(ctx, core.StagePlans, name, "x")
		require.NoError(t, err)
	}
	// Noise the listing must skip.
	require.NoError(t, os.WriteFile(filepath.Join(store.Path, "Plans", TempFilePrefix+"123"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Path, "Plans", ".hidden.md"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(store.Path, "Plans", "sub.md"), 0755))

	seq, err := store.List(ctx, core.StagePlans, "")
	require.NoError(t, err)

	// Mutating the stage while iterating does not change the snapshot.
	var names []string
	for ref := range seq {
		names = append(names, ref.Name)
		_, _ = store.Create(ctx, core.StagePlans, "late_"+ref.Name, "x")
	}
	assert.Equal(t, []string{"a.md", "approval_plan_a.md", "b.md"}, names)

	assert.Equal(t, []string{"approval_plan_a.md"}, collect(t, store, core.StagePlans, "approval_*.md"))

	_, err = store.List(ctx, core.StagePlans, "[")
	assert.Error(t, err)
	_, err = store.List(ctx, core.Stage("nope"), "")
	assert.Error(t, err)
}

func TestSurface(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.ReadSurface(ctx, "Dashboard.md")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, store.WriteSurface(ctx, "Dashboard.md", "v1"))
	require.NoError(t, store.WriteSurface(ctx, "Dashboard.md", "v2"))
	got, err := store.ReadSurface(ctx, "Dashboard.md")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	assert.Error(t, store.WriteSurface(ctx, "../Dashboard.md", "x"))
}

func TestStorageErrorsAreFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	store := setupTestStore(t)
	dir := filepath.Join(store.Path, "Plans")
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	_, err := store.Create(context.Background(), core.StagePlans, "x.md", "x")
	require.Error(t, err)
	assert.True(t, core.Fatal(err), "got %v", err)
}

func TestState(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ref, err := store.Create(ctx, core.StageNeedsAction, "a.md", "x")
	require.NoError(t, err)
	_, err = store.Move(ctx, ref, core.StagePlans, nil)
	require.NoError(t, err)
	_, _ = store.Move(ctx, ref, core.StagePlans, nil)

	state, ok := store.State().(StoreState)
	require.True(t, ok)
	assert.Equal(t, 1, state.Creates)
	assert.Equal(t, 1, state.Moves)
	assert.Equal(t, 1, state.Races)
	assert.Equal(t, "store", store.ComponentType())
}
