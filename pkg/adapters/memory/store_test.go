package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

func TestStoreSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	ref, err := s.Create(ctx, core.StageNeedsAction, "a", "x")
	require.NoError(t, err)
	assert.Equal(t, "a.md", ref.Name)

	_, err = s.Create(ctx, core.StageNeedsAction, "a.md", "y")
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	moved, err := s.Move(ctx, ref, core.StagePlans, nil)
	require.NoError(t, err)
	assert.Equal(t, core.StagePlans, moved.Stage)

	_, err = s.Move(ctx, ref, core.StagePlans, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = s.Create(ctx, core.StageApproved, "a.md", "z")
	require.NoError(t, err)
	_, err = s.Move(ctx, moved, core.StageApproved, nil)
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	assert.Empty(t, s.Names(core.StageNeedsAction))
	assert.Equal(t, []string{"a.md"}, s.Names(core.StagePlans))

	require.NoError(t, s.Delete(ctx, moved))
	assert.ErrorIs(t, s.Delete(ctx, moved), core.ErrNotFound)
}

func TestStoreConcurrentMove(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ref, err := s.Create(ctx, core.StageApproved, "job.md", "x")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Move(ctx, ref, core.StageDone, nil)
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, core.ErrNotFound)
	}
	assert.Equal(t, 1, ok)
}

func TestStoreFailOn(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")
	s.FailOn = func(op string, ref core.Ref) error {
		if op == "create" && ref.Stage == core.StagePlans {
			return boom
		}
		return nil
	}

	_, err := s.Create(ctx, core.StagePlans, "x.md", "x")
	assert.ErrorIs(t, err, boom)
	_, err = s.Create(ctx, core.StageNeedsAction, "x.md", "x")
	assert.NoError(t, err)
}
