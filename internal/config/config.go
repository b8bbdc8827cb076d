// Package config loads the employee configuration: built-in defaults, then
// the YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the vault's system directory.
const FileName = "config.yaml"

// Environment variables read by Load.
const (
	EnvDryRun = "DRY_RUN"
	EnvAPIKey = "OPENROUTER_API_KEY"
	EnvModel  = "OPENROUTER_MODEL"
	EnvVault  = "EMPLOYEE_VAULT"
)

// Config is the full runtime configuration.
type Config struct {
	// Vault comes from --vault or EMPLOYEE_VAULT, never from the file.
	Vault     string         `yaml:"-"`
	SystemDir string         `yaml:"system_dir,omitempty"`
	Cycle     CycleConfig    `yaml:"cycle"`
	Approval  ApprovalConfig `yaml:"approval"`
	Agents    AgentsConfig   `yaml:"agents"`
	LLM       LLMConfig      `yaml:"llm"`
	Server    ServerConfig   `yaml:"server"`
}

type CycleConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Watch wakes continuous mode on new intake files.
	Watch bool `yaml:"watch"`
}

type ApprovalConfig struct {
	Expiry        time.Duration `yaml:"expiry"`
	EnforceExpiry bool          `yaml:"enforce_expiry"`
	// Triggers replaces the stock keyword set when non-empty.
	Triggers []string `yaml:"triggers,omitempty"`
}

type AgentsConfig struct {
	// Policy is "overlapping" or "exclusive".
	Policy string `yaml:"policy"`
	// StrategicCadence is "weekly" or "daily".
	StrategicCadence string `yaml:"strategic_cadence"`
}

type LLMConfig struct {
	DryRun  bool          `yaml:"dry_run"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Model   string        `yaml:"model,omitempty"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		SystemDir: ".employee",
		Cycle: CycleConfig{
			Interval: 300 * time.Second,
			Watch:    true,
		},
		Approval: ApprovalConfig{
			Expiry:        7 * 24 * time.Hour,
			EnforceExpiry: true,
		},
		Agents: AgentsConfig{
			Policy:           "overlapping",
			StrategicCadence: "weekly",
		},
		LLM: LLMConfig{
			DryRun:  true,
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8085",
		},
	}
}

// Path returns the default config file location for a vault.
func Path(vault, systemDir string) string {
	if systemDir == "" {
		systemDir = Default().SystemDir
	}
	return filepath.Join(vault, systemDir, FileName)
}

// Load builds the configuration for vault (EMPLOYEE_VAULT, then ".", when
// empty). An explicit path must exist; otherwise the vault's default file is
// read when present. Environment overrides win over the file.
func Load(path, vault string) (Config, error) {
	cfg := Default()
	if vault == "" {
		vault = os.Getenv(EnvVault)
	}
	if vault == "" {
		vault = "."
	}

	explicit := path != ""
	if !explicit {
		path = Path(vault, cfg.SystemDir)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.Vault = vault
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvDryRun); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDryRun, v, err)
		}
		c.LLM.DryRun = b
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Cycle.Interval <= 0 {
		return fmt.Errorf("cycle.interval must be positive, got %s", c.Cycle.Interval)
	}
	if c.Approval.Expiry <= 0 {
		return fmt.Errorf("approval.expiry must be positive, got %s", c.Approval.Expiry)
	}
	switch c.Agents.Policy {
	case "overlapping", "exclusive":
	default:
		return fmt.Errorf("agents.policy must be overlapping or exclusive, got %q", c.Agents.Policy)
	}
	switch c.Agents.StrategicCadence {
	case "weekly", "daily":
	default:
		return fmt.Errorf("agents.strategic_cadence must be weekly or daily, got %q", c.Agents.StrategicCadence)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.SystemDir == "" || filepath.IsAbs(c.SystemDir) || strings.ContainsRune(c.SystemDir, filepath.Separator) {
		return fmt.Errorf("system_dir must be a plain directory name, got %q", c.SystemDir)
	}
	return nil
}

// Live reports whether the LLM client should reach the provider.
func (c Config) Live() bool {
	return !c.LLM.DryRun && c.LLM.APIKey != ""
}

// Write stores cfg as YAML at path, creating parent directories. The API key
// is never written.
func Write(path string, cfg Config) error {
	cfg.LLM.APIKey = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
