package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/server"
)

var (
	serveAddr   string
	serveRunner bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only status API",
	Long: `Serve the dashboard snapshot, the audit log and component state over HTTP
under /api. With --run the continuous cycle runs in the same process.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		app := openApp(cfg, true)
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		h, err := app.StatusHandler()
		if err != nil {
			fatal("Failed to build status handler", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveRunner {
			lifecycle.Go(ctx, app.Runner.RunContinuous, lifecycle.WithErrorHandler(func(err error) {
				slog.Error("runner stopped", "error", err)
				stop()
			}))
		}

		if err := server.Serve(ctx, cfg.Server.Addr, h, slog.Default()); err != nil {
			fatal("Server failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8085", "Listen address")
	serveCmd.Flags().BoolVar(&serveRunner, "run", false, "Also run cycles continuously")
}
