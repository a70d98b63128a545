package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <investigation-id>",
	Short: "Print the markdown report of a completed investigation",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(context.Background())
	if err != nil {
		return err
	}
	defer rt.Close()

	state, err := rt.investigations.LoadState(args[0])
	if err != nil {
		return err
	}
	if state.ReportSummary == "" {
		return fmt.Errorf("investigation %s has no report yet", args[0])
	}
	fmt.Println(state.ReportSummary)
	return nil
}
