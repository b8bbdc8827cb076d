package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/cycle"
	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

var statusJSON bool

type statusReport struct {
	Vault     string            `json:"vault"`
	Dashboard workflow.Snapshot `json:"dashboard"`
	Stages    map[string]int    `json:"stages"`
	Lock      *cycle.LockInfo   `json:"lock,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stage counts, AI mode and the cycle lock holder",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(loadConfig(), true)

		snap, err := app.Dashboard.Snapshot(ctx)
		if err != nil {
			fatal("Failed to read vault", err)
		}
		report := statusReport{Vault: app.Path, Dashboard: snap, Stages: make(map[string]int)}
		for _, stage := range core.Stages() {
			n, err := core.Count(ctx, app.Store, stage, "")
			if err != nil {
				fatal("Failed to count "+stage.Dir(), err)
			}
			report.Stages[stage.Dir()] = n
		}
		if lock := app.Runner.Lock(); lock != nil {
			holder, err := lock.Holder()
			if err != nil {
				fatal("Failed to probe cycle lock", err)
			}
			report.Lock = holder
		}

		if statusJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(report); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		fmt.Printf("Vault: %s\n", report.Vault)
		fmt.Printf("AI mode: %s (%s)\n\n", snap.AIMode, snap.ConnectedServices)
		for _, stage := range core.Stages() {
			fmt.Printf("  %-17s %d\n", stage.Dir(), report.Stages[stage.Dir()])
		}
		fmt.Printf("\nCompleted today: %d\n", snap.DoneToday)
		if report.Lock != nil {
			fmt.Printf("Cycle running: pid %d on %s since %s\n",
				report.Lock.PID, report.Lock.Hostname, report.Lock.StartedAt.Format(time.RFC3339))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
}
