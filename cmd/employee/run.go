package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	employee "github.com/Umm-e-Habiba1999/ai-employee"
)

var (
	runMode     string
	runInterval time.Duration
	runWatch    bool
	runNoLock   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run workflow cycles over the vault",
	Long: `Run one cycle (--mode once) or keep cycling until interrupted
(--mode continuous). Continuous mode waits --interval between cycles and,
with --watch, wakes early when a new file lands in Needs_Action.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if cmd.Flags().Changed("interval") {
			cfg.Cycle.Interval = runInterval
		}
		if cmd.Flags().Changed("watch") {
			cfg.Cycle.Watch = runWatch
		}
		if err := cfg.Validate(); err != nil {
			fatal("Invalid configuration", err)
		}

		var opts []employee.Option
		if runNoLock {
			opts = append(opts, employee.WithoutLock())
		}
		app := openApp(cfg, true, opts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var err error
		switch runMode {
		case "once":
			err = app.Runner.RunOnce(ctx)
		case "continuous":
			slog.Info("running continuously", "vault", app.Path, "interval", cfg.Cycle.Interval, "watch", cfg.Cycle.Watch)
			err = app.Runner.RunContinuous(ctx)
		default:
			fatal("Invalid mode", fmt.Errorf("--mode must be once or continuous, got %q", runMode))
		}
		if err != nil {
			fatal("Run failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", "once", "once or continuous")
	runCmd.Flags().DurationVar(&runInterval, "interval", 300*time.Second, "Pause between continuous cycles")
	runCmd.Flags().BoolVar(&runWatch, "watch", true, "Wake continuous mode on new Needs_Action files")
	runCmd.Flags().BoolVar(&runNoLock, "no-lock", false, "Skip the cross-process cycle lock")
}
