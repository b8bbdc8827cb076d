// Package server is the read-only HTTP status surface of a vault: the
// dashboard snapshot, the audit trail and the state of the running components.
// Nothing here moves or writes documents.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/introspection"
	"github.com/gin-gonic/gin"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

// AuditReader reads back a date-partitioned audit log.
type AuditReader interface {
	ReadDay(ctx context.Context, day time.Time) ([]audit.Entry, error)
	Days() ([]string, error)
}

// Handler serves the status routes.
type Handler struct {
	Store      core.DocumentStore
	Dashboard  *workflow.Dashboard
	Audit      AuditReader
	Components []introspection.Introspectable
	// Now resolves "today" for the audit routes. Defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// GetDashboard returns a freshly computed snapshot.
func (h *Handler) GetDashboard(c *gin.Context) {
	snap, err := h.Dashboard.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetAuditDays lists the days that have audit entries.
func (h *Handler) GetAuditDays(c *gin.Context) {
	days, err := h.Audit.Days()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if days == nil {
		days = []string{}
	}
	c.JSON(http.StatusOK, days)
}

// GetAuditDay returns the entries of one day, "today" included.
func (h *Handler) GetAuditDay(c *gin.Context) {
	param := c.Param("day")
	day := h.now()
	if param != "today" {
		parsed, err := time.ParseInLocation(audit.DayLayout, param, day.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD or today"})
			return
		}
		day = parsed
	}

	entries, err := h.Audit.ReadDay(c.Request.Context(), day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GetStage lists the document names of one stage.
func (h *Handler) GetStage(c *gin.Context) {
	stage, err := core.ParseStage(c.Param("stage"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	refs, err := core.Collect(c.Request.Context(), h.Store, stage, "")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	c.JSON(http.StatusOK, gin.H{
		"stage":     stage.Dir(),
		"documents": names,
	})
}

// GetState returns the introspection state of every component, keyed by
// component type.
func (h *Handler) GetState(c *gin.Context) {
	states := make(map[string]any, len(h.Components))
	for i, comp := range h.Components {
		key := "component"
		if typed, ok := comp.(introspection.Component); ok {
			key = typed.ComponentType()
		}
		if _, dup := states[key]; dup {
			key = key + "_" + strconv.Itoa(i)
		}
		states[key] = comp.State()
	}
	c.JSON(http.StatusOK, states)
}

// NewRouter mounts the handler under /api.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/dashboard", h.GetDashboard)
		api.GET("/audit", h.GetAuditDays)
		api.GET("/audit/:day", h.GetAuditDay)
		api.GET("/stages/:stage", h.GetStage)
		api.GET("/state", h.GetState)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h *Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	logger.Info("status server shutting down")
	return srv.Shutdown(shutdownCtx)
}
