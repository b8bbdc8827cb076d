package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	employee "github.com/Umm-e-Habiba1999/ai-employee"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of employee",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("employee version %s\n", strings.TrimSpace(employee.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
