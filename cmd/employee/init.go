package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a vault",
	Long: `Create the stage directories, the .employee system directory with a default
config.yaml, the Logs directory and a first Dashboard.md.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		app := openApp(cfg, false)

		wrote, err := app.Init(context.Background())
		if err != nil {
			fatal("Failed to initialize vault", err)
		}

		fmt.Println("Initialized vault in", app.Path)
		if wrote {
			fmt.Println("Wrote default config to", app.FS.SystemPath())
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
