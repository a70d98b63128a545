package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sherlockintel/sherlock/internal/logging"
	"github.com/sherlockintel/sherlock/internal/pipeline"
	"github.com/sherlockintel/sherlock/internal/store"
)

var (
	investigationName string
	uploadsOverride   string
)

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Run the full analysis pipeline on the uploads directory",
	Long: `Run all ten analysis stages against the configured uploads directory.
With interrupt-before-gate enabled (the default) the run suspends before the
compliance gate; continue it with 'sherlock resume <thread-id>'.`,
	RunE: runInvestigate,
}

func init() {
	investigateCmd.Flags().StringVarP(&investigationName, "name", "n", "", "investigation name")
	investigateCmd.Flags().StringVarP(&uploadsOverride, "uploads", "u", "", "uploads directory (overrides config)")
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if uploadsOverride != "" {
		cfg.Ingestion.UploadsPath = uploadsOverride
	}

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	investigationID := uuid.NewString()
	name := investigationName
	if name == "" {
		name = "investigation " + investigationID[:8]
	}
	if _, err := rt.investigations.Create(investigationID, name); err != nil {
		return err
	}
	if err := rt.investigations.SetStatus(investigationID, store.StatusRunning); err != nil {
		return err
	}

	state, err := rt.orchestrator.Run(ctx, investigationID)
	if err != nil {
		return err
	}
	logging.Info("investigation run finished",
		"investigation_id", investigationID, "step", state.CurrentStep)

	fmt.Printf("Investigation: %s (%s)\n", name, investigationID)
	if state.CurrentStep == pipeline.StatusInterrupted {
		fmt.Printf("Run suspended before the compliance gate.\n")
		fmt.Printf("Continue with: sherlock resume %s\n", state.Config.ThreadID)
		return nil
	}
	printOutcome(state)
	return nil
}
