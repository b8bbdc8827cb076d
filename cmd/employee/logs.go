package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/audit"
)

var (
	logsDay  string
	logsJSON bool
	logsList bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the audit log of a day",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(loadConfig(), true)
		log, ok := app.Audit.(*audit.JSONLLog)
		if !ok {
			fatal("Failed to read logs", fmt.Errorf("audit recorder %T cannot be read back", app.Audit))
		}

		if logsList {
			days, err := log.Days()
			if err != nil {
				fatal("Failed to list days", err)
			}
			for _, day := range days {
				fmt.Println(day)
			}
			return
		}

		day := time.Now()
		if logsDay != "" && logsDay != "today" {
			parsed, err := time.ParseInLocation(audit.DayLayout, logsDay, time.Local)
			if err != nil {
				fatal("Invalid --day", err)
			}
			day = parsed
		}

		entries, err := log.ReadDay(context.Background(), day)
		if err != nil {
			fatal("Failed to read logs", err)
		}

		if logsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if entries == nil {
				entries = []audit.Entry{}
			}
			if err := encoder.Encode(entries); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, e := range entries {
			fmt.Printf("%s  %-9s %-32s %s\n", e.Timestamp.Local().Format("15:04:05"), e.Status, e.ActionType, e.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().StringVar(&logsDay, "day", "today", "Day to print (YYYY-MM-DD)")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Output in JSON format")
	logsCmd.Flags().BoolVar(&logsList, "list", false, "List the days that have entries")
}
