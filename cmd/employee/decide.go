package main

import (
	"context"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/workflow"
)

var decidedBy string

func decideCmd(use, short, decision string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <plan-or-request>",
		Short: short,
		Long: `Record a decision on a request in Pending_Approval. The plan moves to
Approved or Rejected on the next cycle.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			app := openApp(loadConfig(), true)

			by := decidedBy
			if by == "" {
				if u, err := user.Current(); err == nil {
					by = u.Username
				}
			}
			ref, err := app.Gate.Decide(context.Background(), args[0], decision, by)
			if err != nil {
				fatal("Failed to record decision", err)
			}
			fmt.Printf("Marked %s %s\n", ref, decision)
		},
	}
}

func init() {
	approveCmd := decideCmd("approve", "Approve a pending plan", workflow.StatusApproved)
	rejectCmd := decideCmd("reject", "Reject a pending plan", workflow.StatusRejected)
	for _, c := range []*cobra.Command{approveCmd, rejectCmd} {
		c.Flags().StringVar(&decidedBy, "by", "", "Who decided (default: current user)")
		rootCmd.AddCommand(c)
	}
}
