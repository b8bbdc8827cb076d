package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/introspection"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/adapters/memory"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fakeComponent struct{ kind string }

func (f fakeComponent) State() any            { return map[string]string{"kind": f.kind} }
func (f fakeComponent) ComponentType() string { return f.kind }

func setupTestRouter(t *testing.T) (*gin.Engine, *memory.Store, *audit.JSONLLog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log, err := audit.NewJSONLLog(t.TempDir(), audit.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	env := workflow.Env{
		Store:  store,
		Audit:  log,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  func() time.Time { return testNow },
	}
	h := &Handler{
		Store:      store,
		Dashboard:  workflow.NewDashboard(env, store, nil),
		Audit:      log,
		Components: []introspection.Introspectable{fakeComponent{"store"}, fakeComponent{"runner"}},
		Now:        func() time.Time { return testNow },
	}
	return NewRouter(h), store, log
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetDashboard(t *testing.T) {
	r, store, _ := setupTestRouter(t)
	ctx := context.Background()
	_, err := store.Create(ctx, core.StageNeedsAction, "a.md", "a")
	require.NoError(t, err)
	_, err = store.Create(ctx, core.StageNeedsAction, "b.md", "b")
	require.NoError(t, err)
	_, err = store.Create(ctx, core.StageDone, "completed_20261015_080000_c.md", "c")
	require.NoError(t, err)

	w := get(t, r, "/api/dashboard")
	require.Equal(t, http.StatusOK, w.Code)

	var snap workflow.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.NeedsAction)
	assert.Equal(t, 1, snap.DoneToday)
	assert.Equal(t, "DRY_RUN", snap.AIMode)
}

func TestGetAudit(t *testing.T) {
	r, _, log := setupTestRouter(t)
	ctx := context.Background()
	require.NoError(t, audit.Action(ctx, log, "PLAN_CREATED", "Created plan", nil))

	w := get(t, r, "/api/audit")
	require.Equal(t, http.StatusOK, w.Code)
	var days []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &days))
	assert.Equal(t, []string{"2026-10-15"}, days)

	for _, path := range []string{"/api/audit/2026-10-15", "/api/audit/today"} {
		w = get(t, r, path)
		require.Equal(t, http.StatusOK, w.Code, path)
		var entries []audit.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		require.Len(t, entries, 1, path)
		assert.Equal(t, "PLAN_CREATED", entries[0].ActionType)
	}

	w = get(t, r, "/api/audit/2026-10-14")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = get(t, r, "/api/audit/yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStage(t *testing.T) {
	r, store, _ := setupTestRouter(t)
	_, err := store.Create(context.Background(), core.StagePlans, "plan_a.md", "a")
	require.NoError(t, err)

	for _, path := range []string{"/api/stages/plans", "/api/stages/Plans"} {
		w := get(t, r, path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"stage":"Plans","documents":["plan_a.md"]}`, w.Body.String())
	}

	w := get(t, r, "/api/stages/Inbox")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetState(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	w := get(t, r, "/api/state")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"store":{"kind":"store"},"runner":{"kind":"runner"}}`, w.Body.String())
}

func TestNoRoute(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	w := get(t, r, "/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())

	w = get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}
