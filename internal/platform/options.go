package platform

import (
	"log/slog"
	"time"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/llm"
)

// options holds the wiring overrides for an App.
type options struct {
	store     core.Vault
	recorder  audit.Recorder
	client    llm.Client
	logger    *slog.Logger
	clock     func() time.Time
	mustExist bool
	forceTemp bool
	devSafety bool
	noLock    bool
}

// Option defines a functional option for wiring an App.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		devSafety: true,
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a document store (e.g. the in-memory adapter). When
// set, no vault directory is touched and watching is unavailable.
func WithStore(store core.Vault) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAudit injects the audit recorder instead of the vault's JSONL log.
func WithAudit(r audit.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithClient injects the LLM client, bypassing the configured provider.
func WithClient(c llm.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithClock overrides the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithMustExist fails instead of creating a missing vault directory.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp re-roots the vault into the temporary directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`. By default (true) the vault is re-rooted into a temporary
// directory so a development run never touches a real vault.
//
// CAUTION: Only disable this if you are sure the target vault is disposable.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithoutLock disables the cross-process cycle lock.
func WithoutLock() Option {
	return func(o *options) {
		o.noLock = true
	}
}
