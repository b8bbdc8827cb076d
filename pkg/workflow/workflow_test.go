package workflow

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/adapters/memory"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	audit *audit.Memory
	clock time.Time
	env   Env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		audit: &audit.Memory{},
		clock: testNow,
	}
	f.env = Env{
		Store:  f.store,
		Audit:  f.audit,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  func() time.Time { return f.clock },
	}
	return f
}

func (f *fixture) put(t *testing.T, stage core.Stage, name, content string) core.Ref {
	t.Helper()
	ref, err := f.store.Create(context.Background(), stage, name, content)
	require.NoError(t, err)
	return ref
}

func (f *fixture) read(t *testing.T, stage core.Stage, name string) core.Document {
	t.Helper()
	doc, err := core.Load(context.Background(), f.store, core.Ref{Stage: stage, Name: name})
	require.NoError(t, err)
	return doc
}

func TestPlanGenerator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, core.StageNeedsAction, "archive.md", "Organize files in archive")
	f.put(t, core.StageNeedsAction, "held.md", "---\nhold: true\n---\nOrganize later")
	f.put(t, core.StageNeedsAction, "paused.md", "---\nstatus: on_hold\n---\nx")

	rep, err := NewPlanGenerator(f.env, nil).Run(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Created, 1)
	assert.Equal(t, []string{"plan_archive.md"}, f.store.Names(core.StagePlans))

	plan := f.read(t, core.StagePlans, "plan_archive.md")
	assert.Equal(t, "FILE_MANAGEMENT", plan.Header.String("classification"))
	assert.Equal(t, "pending", plan.Header.String("status"))
	assert.Equal(t, "archive", plan.Header.String("item_id"))
	assert.Contains(t, plan.Body, "Organize files in archive")
	assert.False(t, HasCompletionMarker(plan.Raw), "plan template must not look finished")

	intake := f.read(t, core.StageNeedsAction, "archive.md")
	assert.Equal(t, "plan_archive", intake.Header.String("plan_id"))

	assert.Equal(t, []string{"PLAN_CREATED"}, f.audit.Types())

	// Second run: nothing new.
	rep, err = NewPlanGenerator(f.env, nil).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Created)
	assert.Len(t, f.audit.Entries(), 1)
}

func TestPlanTemplateHasNoTriggers(t *testing.T) {
	f := newFixture(t)
	f.put(t, core.StageNeedsAction, "note.md", "Buy milk")

	_, err := NewPlanGenerator(f.env, nil).Run(context.Background())
	require.NoError(t, err)

	plan := f.read(t, core.StagePlans, "plan_note.md")
	assert.Empty(t, NewGate(f.env, GateConfig{}).Requires(plan.Raw))
}

func TestPlanGeneratorSkipsExistingPlan(t *testing.T) {
	f := newFixture(t)
	f.put(t, core.StageNeedsAction, "a.md", "Organize")
	f.put(t, core.StageApproved, "plan_a.md", "already approved earlier")

	rep, err := NewPlanGenerator(f.env, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Created)
	assert.Empty(t, f.store.Names(core.StagePlans))
	assert.Equal(t, "plan_a", f.read(t, core.StageNeedsAction, "a.md").Header.String("plan_id"))
}

func TestGateRequiresIsDeterministic(t *testing.T) {
	g := NewGate(Env{}, GateConfig{})
	text := "Please SEND the Invoice by email"
	first := g.Requires(text)
	for range 5 {
		assert.Equal(t, first, g.Requires(text))
	}
	assert.Equal(t, []string{"email", "send", "invoice"}, first)
	assert.Empty(t, g.Requires("Organize files in archive"))
}

func TestGateTriage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, core.StagePlans, "plan_archive.md", "---\nstatus: pending\n---\nOrganize files")
	f.put(t, core.StagePlans, "plan_vendor.md", "---\nstatus: pending\n---\nSend invoice")

	gate := NewGate(f.env, GateConfig{})
	rep, err := gate.Triage(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Moved, 1)
	assert.Len(t, rep.Created, 1)

	assert.Equal(t, []string{"plan_archive.md"}, f.store.Names(core.StageApproved))
	assert.Equal(t, "approved", f.read(t, core.StageApproved, "plan_archive.md").Header.String("status"))

	assert.Equal(t, []string{"approval_plan_vendor.md"}, f.store.Names(core.StagePendingApproval))
	plan := f.read(t, core.StagePlans, "plan_vendor.md")
	assert.True(t, Halted(plan))
	assert.Equal(t, "approval_plan_vendor", plan.Header.String("approval_id"))

	req := f.read(t, core.StagePendingApproval, "approval_plan_vendor.md")
	assert.Equal(t, "plan_vendor", req.Header.String("plan_id"))
	assert.Equal(t, "pending", req.Header.String("status"))
	expires, ok := req.Header.Time("expires_at")
	require.True(t, ok)
	assert.True(t, expires.Equal(testNow.Add(7*24*time.Hour)))

	assert.ElementsMatch(t, []string{"PLAN_AUTO_APPROVED", "APPROVAL_REQUESTED"}, f.audit.Types())

	// Halted plans and open requests are left alone.
	f.audit.Reset()
	rep, err = gate.Run(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Changed())
	assert.Empty(t, f.audit.Entries())
}

func TestGateTriageCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, core.StagePlans, "plan_a.md", "Organize files in archive")
	f.put(t, core.StageApproved, "plan_a.md", "---\nstatus: approved\n---\nearlier run")

	rep, err := NewGate(f.env, GateConfig{}).Triage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
	assert.Empty(t, rep.Moved)

	plan := f.read(t, core.StagePlans, "plan_a.md")
	assert.Empty(t, plan.Header.String("status"), "a failed move leaves the plan header untouched")
	assert.Equal(t, "Organize files in archive", plan.Raw)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "APPROVAL_COLLISION", entries[0].ActionType)
	assert.Equal(t, audit.StatusError, entries[0].Status)
	assert.Equal(t, "plan_a.md", entries[0].Details["document"])
	assert.Equal(t, "Plans", entries[0].Details["stage"])
}

func TestCollisionType(t *testing.T) {
	assert.Equal(t, "APPROVAL_COLLISION", CollisionType("APPROVAL_ERROR"))
	assert.Equal(t, "FINANCE_COLLISION", CollisionType("FINANCE_PROCESSING_ERROR"))
	assert.Equal(t, "DISPATCH_COLLISION", CollisionType("DISPATCH_ERROR"))
}

func TestGateDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gate := NewGate(f.env, GateConfig{})

	for _, name := range []string{"plan_yes.md", "plan_no.md", "plan_moved.md"} {
		f.put(t, core.StagePlans, name, "---\nstatus: pending\n---\npayment due")
	}
	_, err := gate.Triage(ctx)
	require.NoError(t, err)
	require.Len(t, f.store.Names(core.StagePendingApproval), 3)

	yes := f.read(t, core.StagePendingApproval, "approval_plan_yes.md")
	_, err = core.Update(ctx, f.store, yes, core.Header{"decision": "approved", "decided_by": "owner"})
	require.NoError(t, err)
	no := f.read(t, core.StagePendingApproval, "approval_plan_no.md")
	_, err = core.Update(ctx, f.store, no, core.Header{"decision": "rejected"})
	require.NoError(t, err)
	// A human dragging the request into Approved also approves.
	_, err = f.store.Move(ctx, core.Ref{Stage: core.StagePendingApproval, Name: "approval_plan_moved.md"}, core.StageApproved, nil)
	require.NoError(t, err)

	f.audit.Reset()
	rep, err := gate.ProcessDecisions(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Moved, 3)
	assert.Len(t, rep.Deleted, 3)

	assert.Empty(t, f.store.Names(core.StagePendingApproval))
	assert.Empty(t, f.store.Names(core.StagePlans))
	assert.Equal(t, []string{"plan_moved.md", "plan_yes.md"}, f.store.Names(core.StageApproved))
	assert.Equal(t, []string{"plan_no.md"}, f.store.Names(core.StageRejected))
	assert.Equal(t, "owner", f.read(t, core.StageApproved, "plan_yes.md").Header.String("decided_by"))

	assert.ElementsMatch(t, []string{"APPROVAL_APPROVED", "APPROVAL_REJECTED", "APPROVAL_APPROVED"}, f.audit.Types())
}

func TestGateDecide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gate := NewGate(f.env, GateConfig{})
	f.put(t, core.StagePlans, "plan_wire.md", "transfer funds to the supplier")
	_, err := gate.Triage(ctx)
	require.NoError(t, err)

	_, err = gate.Decide(ctx, "plan_wire", "maybe", "")
	assert.Error(t, err)
	_, err = gate.Decide(ctx, "plan_other", StatusApproved, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	ref, err := gate.Decide(ctx, "plan_wire.md", StatusRejected, "owner")
	require.NoError(t, err)
	assert.Equal(t, "approval_plan_wire.md", ref.Name)
	req := f.read(t, core.StagePendingApproval, "approval_plan_wire.md")
	assert.Equal(t, StatusRejected, Decision(req))
	assert.Contains(t, f.audit.Types(), "APPROVAL_DECISION_RECORDED")

	_, err = gate.ProcessDecisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"plan_wire.md"}, f.store.Names(core.StageRejected))
	assert.Equal(t, "owner", f.read(t, core.StageRejected, "plan_wire.md").Header.String("decided_by"))
}

func TestGateExpiry(t *testing.T) {
	t.Run("enforced", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		gate := NewGate(f.env, GateConfig{Expiry: 24 * time.Hour, EnforceExpiry: true})
		f.put(t, core.StagePlans, "plan_x.md", "purchase a laptop")
		_, err := gate.Triage(ctx)
		require.NoError(t, err)

		f.clock = testNow.Add(23 * time.Hour)
		rep, err := gate.ProcessDecisions(ctx)
		require.NoError(t, err)
		assert.False(t, rep.Changed())

		f.clock = testNow.Add(25 * time.Hour)
		_, err = gate.ProcessDecisions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"plan_x.md"}, f.store.Names(core.StageRejected))
		assert.Equal(t, "expiry", f.read(t, core.StageRejected, "plan_x.md").Header.String("decided_by"))
		assert.Contains(t, f.audit.Types(), "APPROVAL_EXPIRED")
	})

	t.Run("documentary", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		gate := NewGate(f.env, GateConfig{Expiry: time.Hour, EnforceExpiry: false})
		f.put(t, core.StagePlans, "plan_x.md", "purchase a laptop")
		_, err := gate.Triage(ctx)
		require.NoError(t, err)

		f.clock = testNow.Add(30 * 24 * time.Hour)
		rep, err := gate.ProcessDecisions(ctx)
		require.NoError(t, err)
		assert.False(t, rep.Changed())
		assert.Equal(t, []string{"plan_x.md"}, f.store.Names(core.StagePlans))
	})
}

func TestGateSupersedesOrphanedRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, core.StagePendingApproval, "approval_plan_gone.md", "---\nplan_id: plan_gone\nstatus: pending\n---\n")

	rep, err := NewGate(f.env, GateConfig{}).ProcessDecisions(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Deleted, 1)
	assert.Equal(t, []string{"APPROVAL_SUPERSEDED"}, f.audit.Types())
}

func TestSweeper(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, core.StageApproved, "plan_report.md", "---\nstatus: completed\n---\nDone.")
	f.put(t, core.StagePlans, "draft_reply_report.md", "draft, no marker")
	f.put(t, core.StageApproved, "plan_other.md", "---\nstatus: approved\n---\nStill going")
	f.put(t, core.StagePlans, "plan_side.md", "Notes\nCompleted: TRUE\n")

	rep, err := NewSweeper(f.env).Run(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Moved, 3)

	assert.Equal(t, []string{"plan_other.md"}, f.store.Names(core.StageApproved))
	assert.Empty(t, f.store.Names(core.StagePlans))

	done := f.store.Names(core.StageDone)
	assert.ElementsMatch(t, []string{
		"completed_20261015_093000_plan_report.md",
		"completed_20261015_093000_draft_reply_report.md",
		"completed_20261015_093000_plan_side.md",
	}, done)
	for _, name := range done {
		assert.True(t, strings.HasPrefix(name, "completed_"))
	}
	assert.Equal(t, []string{"TASK_COMPLETED", "TASK_COMPLETED"}, f.audit.Types())
}

func TestSweeperNeverMovesUnmarked(t *testing.T) {
	f := newFixture(t)
	f.put(t, core.StageApproved, "plan_a.md", "status: complete soon")
	f.put(t, core.StagePlans, "plan_b.md", "completed: false")

	rep, err := NewSweeper(f.env).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Changed())
	assert.Empty(t, f.store.Names(core.StageDone))
}

func TestSweeperSkipsVanished(t *testing.T) {
	f := newFixture(t)
	f.put(t, core.StageApproved, "plan_a.md", "status: completed")
	f.store.FailOn = func(op string, ref core.Ref) error {
		if op == "move" {
			return core.ErrNotFound
		}
		return nil
	}

	rep, err := NewSweeper(f.env).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
	assert.Empty(t, f.audit.Entries())
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, core.StageNeedsAction, "a.md", "x")
	f.put(t, core.StageNeedsAction, "b.md", "x")
	f.put(t, core.StagePlans, "plan_c.md", "x")
	f.put(t, core.StagePendingApproval, "approval_plan_c.md", "x")
	f.put(t, core.StageDone, "completed_20261015_080000_plan_d.md", "x")
	f.put(t, core.StageDone, "processed_ops_20261015_081500_e.md", "x")
	f.put(t, core.StageDone, "completed_20261014_080000_plan_old.md", "x")

	d := NewDashboard(f.env, f.store, nil)
	snap, err := d.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.NeedsAction)
	assert.Equal(t, 1, snap.InProgress)
	assert.Equal(t, 1, snap.PendingApproval)
	assert.Equal(t, 2, snap.DoneToday)
	assert.Equal(t, "DRY_RUN", snap.AIMode)

	res, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.Unknown)

	out, err := f.store.ReadSurface(ctx, DashboardSurface)
	require.NoError(t, err)
	assert.Contains(t, out, "- **Pending Actions**: `2`")
	assert.Contains(t, out, "- **Completed Today**: `2`")
	assert.Contains(t, out, "- **Last Update**: `2026-10-15 09:30:00`")
	assert.NotContains(t, out, "{{")

	// The projection is never cached.
	f.put(t, core.StageNeedsAction, "c.md", "x")
	_, err = d.Run(ctx)
	require.NoError(t, err)
	out, _ = f.store.ReadSurface(ctx, DashboardSurface)
	assert.Contains(t, out, "- **Pending Actions**: `3`")
}

func TestDashboardReportsPlaceholderMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.WriteSurface(ctx, TemplateSurface, "Queue: {{needs_action_count}} / {{ weather }}"))

	res, err := NewDashboard(f.env, f.store, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Queue: 0 / {{ weather }}", res.Content)
	assert.Equal(t, []string{"weather"}, res.Unknown)
	assert.Contains(t, res.Missing, "approval_count")
	assert.NotContains(t, res.Missing, "needs_action_count")
}
