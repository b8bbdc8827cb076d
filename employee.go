package employee

import (
	"log/slog"
	"time"

	"github.com/Umm-e-Habiba1999/ai-employee/internal/config"
	"github.com/Umm-e-Habiba1999/ai-employee/internal/platform"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/llm"
)

// --- Types ---

// App is a fully wired vault.
type App = platform.App

// Config is the runtime configuration.
type Config = config.Config

// --- Configuration ---

// Option defines a functional option for wiring an App.
type Option = platform.Option

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads defaults, the config file and environment overrides.
// An empty path selects the vault's own config file.
func LoadConfig(path, vault string) (Config, error) {
	return config.Load(path, vault)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a document store instead of the vault directory.
func WithStore(store core.Vault) Option {
	return platform.WithStore(store)
}

// WithAudit injects the audit recorder.
func WithAudit(r audit.Recorder) Option {
	return platform.WithAudit(r)
}

// WithClient injects the LLM client.
func WithClient(c llm.Client) Option {
	return platform.WithClient(c)
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithMustExist fails instead of creating a missing vault directory.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the `go run` sandbox.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithoutLock disables the cross-process cycle lock.
func WithoutLock() Option {
	return platform.WithoutLock()
}

// --- Factory ---

// New wires the vault described by cfg.
func New(cfg Config, opts ...Option) (*App, error) {
	return platform.New(cfg, opts...)
}
