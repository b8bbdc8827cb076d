package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	employee "github.com/Umm-e-Habiba1999/ai-employee"
	"github.com/Umm-e-Habiba1999/ai-employee/internal/config"
	"github.com/Umm-e-Habiba1999/ai-employee/internal/platform"
)

var (
	verbose    bool
	vaultPath  string
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "employee",
	Short: "A file-based AI employee that works a Markdown vault",
	Long: `employee moves task files through the stage directories of a vault:
Needs_Action -> Plans -> Pending_Approval -> Approved/Rejected -> Done.
Anything sensitive waits for a human decision; every action is audited under Logs/.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (default: $EMPLOYEE_VAULT, the enclosing vault, or the current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <vault>/.employee/config.yaml)")
}

// loadConfig resolves the vault and reads its configuration.
func loadConfig() config.Config {
	vault := vaultPath
	if vault == "" && os.Getenv(config.EnvVault) == "" {
		if cwd, err := os.Getwd(); err == nil {
			if root, err := platform.FindRoot(cwd, config.Default().SystemDir); err == nil {
				vault = root
			}
		}
	}
	cfg, err := employee.LoadConfig(configPath, vault)
	if err != nil {
		fatal("Failed to load config", err)
	}
	return cfg
}

// openApp wires the configured vault. Every command except init requires
// the vault to exist already.
func openApp(cfg config.Config, mustExist bool, opts ...employee.Option) *employee.App {
	opts = append([]employee.Option{
		employee.WithLogger(slog.Default()),
		employee.WithMustExist(mustExist),
	}, opts...)
	app, err := employee.New(cfg, opts...)
	if err != nil {
		fatal("Failed to open vault", err)
	}
	return app
}
