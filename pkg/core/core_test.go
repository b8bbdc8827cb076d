package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/adapters/memory"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

func TestStageDirectories(t *testing.T) {
	for _, stage := range core.Stages() {
		got, ok := core.StageForDir(stage.Dir())
		require.True(t, ok, stage)
		assert.Equal(t, stage, got)

		parsed, err := core.ParseStage(stage.Dir())
		require.NoError(t, err)
		assert.Equal(t, stage, parsed)
	}
	_, err := core.ParseStage("Inbox")
	assert.Error(t, err)

	assert.True(t, core.StagePendingApproval.Primary())
	assert.False(t, core.StageAccounting.Primary())
	assert.True(t, core.StageDone.Terminal())
}

func TestTransitionGraph(t *testing.T) {
	allowed := [][2]core.Stage{
		{core.StageNeedsAction, core.StagePlans},
		{core.StageNeedsAction, core.StageDone},
		{core.StagePlans, core.StageApproved},
		{core.StagePlans, core.StageRejected},
		{core.StagePlans, core.StageDone},
		{core.StageApproved, core.StageDone},
	}
	for _, pair := range allowed {
		assert.True(t, core.CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	// No backward edges and nothing leaves Done or Rejected.
	for _, stage := range core.Stages() {
		assert.False(t, core.CanTransition(core.StageDone, stage))
		assert.False(t, core.CanTransition(core.StageRejected, stage))
		assert.False(t, core.CanTransition(stage, core.StageNeedsAction))
	}
	assert.ErrorIs(t, core.CheckTransition(core.StageApproved, core.StagePlans), core.ErrInvalidTransition)
}

func TestIdentityAndStem(t *testing.T) {
	cases := []struct {
		name     string
		identity string
		stem     string
	}{
		{"invoice.md", "invoice", "invoice"},
		{"plan_invoice.md", "plan_invoice", "invoice"},
		{"approval_plan_invoice.md", "approval_plan_invoice", "invoice"},
		{"draft_reply_invoice.md", "draft_reply_invoice", "invoice"},
		{"finance_plan_invoice.md", "finance_plan_invoice", "invoice"},
		{"completed_20260115_093000_plan_invoice.md", "plan_invoice", "invoice"},
		{"processed_20260115_093000_invoice.md", "invoice", "invoice"},
		{"processed_finance_20260115_093000_invoice.md", "invoice", "invoice"},
		{"processed_inbox_20260115_093000_completed_20260101_000000_x.md", "x", "x"},
		{"plan_.md", "plan_", "plan_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.identity, core.Identity(tc.name))
			assert.Equal(t, tc.stem, core.Stem(tc.name))
		})
	}
}

func TestRenameFuncs(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "completed_20260304_050607_a.md", core.CompletedName(at)("a.md"))
	assert.Equal(t, "processed_20260304_050607_a.md", core.ProcessedName("", at)("a.md"))
	assert.Equal(t, "processed_ops_20260304_050607_a.md", core.ProcessedName("ops", at)("a.md"))
	assert.True(t, core.IsCompleted("completed_20260304_050607_a.md"))
	assert.True(t, core.IsProcessed("processed_ops_20260304_050607_a.md"))
}

func TestParseDocument(t *testing.T) {
	ref := core.Ref{Stage: core.StageNeedsAction, Name: "a.md"}

	t.Run("yaml header", func(t *testing.T) {
		doc := core.ParseDocument(ref, "---\ntype: email\nhold: true\ncount: 3\n---\nHello\n")
		assert.Equal(t, "email", doc.Header.String("type"))
		assert.True(t, doc.Header.Bool("hold"))
		assert.Equal(t, "3", doc.Header.String("count"))
		assert.Equal(t, "Hello\n", doc.Body)
	})

	t.Run("malformed header falls back to lines", func(t *testing.T) {
		doc := core.ParseDocument(ref, "---\nsubject: Re: [urgent] pay: now\nstatus: pending\n  bad: [\n---\nbody")
		assert.Equal(t, "pending", doc.Header.String("status"))
		assert.Equal(t, "Re: [urgent] pay: now", doc.Header.String("subject"))
		assert.Equal(t, "body", doc.Body)
	})

	t.Run("no header", func(t *testing.T) {
		doc := core.ParseDocument(ref, "just text\n---\n")
		assert.Empty(t, doc.Header)
		assert.Equal(t, "just text\n---\n", doc.Body)
	})

	t.Run("unterminated header", func(t *testing.T) {
		doc := core.ParseDocument(ref, "---\ntype: x\n")
		assert.Empty(t, doc.Header)
	})
}

func TestRenderRoundTrip(t *testing.T) {
	content, err := core.Render(core.Header{"title": "Plan: x", "status": "pending"}, "# Body\n")
	require.NoError(t, err)

	doc := core.ParseDocument(core.Ref{}, content)
	assert.Equal(t, "Plan: x", doc.Header.String("title"))
	assert.Equal(t, "pending", doc.Header.String("status"))
	assert.Equal(t, "# Body\n", doc.Body)

	bare, err := core.Render(nil, "only body")
	require.NoError(t, err)
	assert.Equal(t, "only body", bare)
}

func TestHeaderTime(t *testing.T) {
	h := core.Header{"a": "2026-01-02T03:04:05Z", "b": "2026-01-02", "c": "soon"}
	ta, ok := h.Time("a")
	require.True(t, ok)
	assert.Equal(t, 3, ta.Hour())
	_, ok = h.Time("b")
	assert.True(t, ok)
	_, ok = h.Time("c")
	assert.False(t, ok)
}

func TestServiceHelpers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	ref, created, err := core.Derive(ctx, store, core.StagePlans, "plan_a", "x")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := core.Derive(ctx, store, core.StagePlans, "plan_a", "y")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ref, again)

	_, err = core.Transition(ctx, store, ref, core.StageNeedsAction, nil)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	doc, err := core.Load(ctx, store, ref)
	require.NoError(t, err)
	doc, err = core.Update(ctx, store, doc, core.Header{"status": "approved"})
	require.NoError(t, err)
	assert.Equal(t, "approved", doc.Header.String("status"))

	moved, err := core.Transition(ctx, store, ref, core.StageApproved, nil)
	require.NoError(t, err)

	found, err := core.Locate(ctx, store, "plan_a")
	require.NoError(t, err)
	assert.Equal(t, []core.Ref{moved}, found)
}
