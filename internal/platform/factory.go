// Package platform wires the store, audit log, LLM client and workflow
// components of one vault into a cycle runner.
package platform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/introspection"

	"github.com/Umm-e-Habiba1999/ai-employee/internal/config"
	fsstore "github.com/Umm-e-Habiba1999/ai-employee/pkg/adapters/fs"
	vaultevents "github.com/Umm-e-Habiba1999/ai-employee/pkg/adapters/lifecycle"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/agents"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/classify"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/cycle"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/llm"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/server"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

// LogsDir holds the audit log, one JSONL file per day.
const LogsDir = "Logs"

// App is one fully wired vault.
type App struct {
	Config config.Config
	// Path is the resolved vault path, empty for an injected store.
	Path  string
	Store core.Vault
	// FS is the filesystem store, nil when a store was injected.
	FS     *fsstore.Store
	Audit  audit.Recorder
	Client llm.Client
	Env    workflow.Env

	Planner    *workflow.PlanGenerator
	Gate       *workflow.Gate
	Dispatcher *agents.Dispatcher
	Sweeper    *workflow.Sweeper
	Dashboard  *workflow.Dashboard
	Runner     *cycle.Runner
}

// New resolves the vault, initializes its layout and wires every component.
//
//	app, err := platform.New(cfg, platform.WithLogger(logger))
func New(cfg config.Config, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Config: cfg, Store: o.store}
	if app.Store == nil {
		store, err := openFS(cfg, o, logger)
		if err != nil {
			return nil, err
		}
		app.FS = store
		app.Store = store
		app.Path = store.Path
	}

	app.Audit = o.recorder
	if app.Audit == nil {
		if app.FS == nil {
			return nil, errors.New("an injected store needs an injected audit recorder")
		}
		var logOpts []audit.Option
		if o.clock != nil {
			logOpts = append(logOpts, audit.WithClock(o.clock))
		}
		log, err := audit.NewJSONLLog(filepath.Join(app.Path, LogsDir), logOpts...)
		if err != nil {
			return nil, err
		}
		app.Audit = log
	}

	app.Client = o.client
	if app.Client == nil {
		app.Client = NewClient(cfg.LLM)
	}
	logger.Debug("llm client ready", "mode", llm.Mode(app.Client), "provider", app.Client.Info())

	app.Env = workflow.Env{
		Store:  app.Store,
		Audit:  app.Audit,
		Logger: logger,
		Clock:  o.clock,
	}
	app.wire(o)
	return app, nil
}

func openFS(cfg config.Config, o *options, logger *slog.Logger) (*fsstore.Store, error) {
	useTemp := o.forceTemp || (IsDevRun() && o.devSafety)
	path := ResolveVaultPath(cfg.Vault, useTemp)
	if IsDevRun() {
		if o.devSafety {
			logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", path)
		} else {
			logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", path)
		}
	}
	if useTemp && path != cfg.Vault {
		logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", cfg.Vault, "resolved_path", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	store := fsstore.NewStore(fsstore.Config{
		Path:      abs,
		MustExist: o.mustExist,
		Logger:    logger,
		SystemDir: cfg.SystemDir,
	})
	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// NewClient returns the configured LLM client: OpenRouter when live, the
// dry-run client otherwise.
func NewClient(cfg config.LLMConfig) llm.Client {
	if cfg.DryRun || cfg.APIKey == "" {
		return llm.DryRun{Model: cfg.Model}
	}
	return llm.NewOpenRouter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
}

func (a *App) wire(o *options) {
	cfg := a.Config
	env := a.Env

	a.Planner = workflow.NewPlanGenerator(env, classify.New())
	a.Gate = workflow.NewGate(env, workflow.GateConfig{
		Triggers:      cfg.Approval.Triggers,
		Expiry:        cfg.Approval.Expiry,
		EnforceExpiry: cfg.Approval.EnforceExpiry,
	})

	// Validate already vetted the policy string.
	policy, _ := agents.ParsePolicy(cfg.Agents.Policy)
	a.Dispatcher = agents.NewDispatcher(env, policy, a.Gate,
		agents.NewCommunications(env, a.Client),
		agents.NewFinance(env, a.Client),
		agents.NewOperations(env),
		agents.NewStrategic(env, a.Store, agents.Cadence(cfg.Agents.StrategicCadence)),
	)
	a.Sweeper = workflow.NewSweeper(env)
	a.Dashboard = workflow.NewDashboard(env, a.Store, a.Client)

	steps := cycle.Components{
		Planner:    a.Planner,
		Gate:       a.Gate,
		Dispatcher: a.Dispatcher,
		Sweeper:    a.Sweeper,
		Dashboard:  a.Dashboard,
	}.Steps()

	runOpts := []cycle.Option{
		cycle.WithInterval(cfg.Cycle.Interval),
		cycle.WithStatus(a.Client),
	}
	if a.FS != nil {
		if !o.noLock {
			runOpts = append(runOpts, cycle.WithLock(filepath.Join(a.FS.SystemPath(), cycle.LockFile)))
		}
		if cfg.Cycle.Watch {
			runOpts = append(runOpts, cycle.WithTrigger(
				vaultevents.WatchSource(a.FS, vaultevents.IntakeCreated, core.StageNeedsAction)))
		}
	}
	a.Runner = cycle.NewRunner(env, steps, runOpts...)
}

// Components lists the introspectable parts of the app.
func (a *App) Components() []introspection.Introspectable {
	comps := []introspection.Introspectable{a.Runner}
	if a.FS != nil {
		comps = append(comps, a.FS)
	}
	return comps
}

// StatusHandler returns the read-only HTTP handler for this vault. It needs
// the JSONL audit log to serve audit routes.
func (a *App) StatusHandler() (*server.Handler, error) {
	reader, ok := a.Audit.(server.AuditReader)
	if !ok {
		return nil, fmt.Errorf("audit recorder %T cannot be read back", a.Audit)
	}
	return &server.Handler{
		Store:      a.Store,
		Dashboard:  a.Dashboard,
		Audit:      reader,
		Components: a.Components(),
		Now:        a.Env.Now,
	}, nil
}

// Init prepares a vault for first use: stage directories, the config file
// when missing, and a first dashboard. It reports whether the config file
// was written.
func (a *App) Init(ctx context.Context) (bool, error) {
	wrote := false
	if a.FS != nil {
		path := config.Path(a.Path, a.Config.SystemDir)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := config.Write(path, a.Config); err != nil {
				return false, err
			}
			wrote = true
		}
	}
	if _, err := a.Dashboard.Run(ctx); err != nil {
		return wrote, err
	}
	return wrote, a.Env.Record(ctx, audit.StatusCompleted, "SYSTEM_INIT", "Vault initialized",
		map[string]any{"path": a.Path, "created_at": a.Env.Now().Format(time.RFC3339)})
}
