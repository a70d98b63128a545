package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sherlockintel/sherlock/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [investigation-id]",
	Short: "List investigations or show one investigation's state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(context.Background())
	if err != nil {
		return err
	}
	defer rt.Close()

	if len(args) == 0 {
		metas, err := rt.investigations.List()
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("No investigations yet.")
			return nil
		}
		for _, m := range metas {
			fmt.Printf("%s  %-24s  %-10s  v%d  %s\n",
				m.ID, m.Name, m.Status, m.Version, m.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}

	id := args[0]
	meta, err := rt.investigations.GetMeta(id)
	if err != nil {
		return err
	}
	state, err := rt.investigations.LoadState(id)
	if err != nil {
		return err
	}

	fmt.Printf("Investigation: %s (%s)\n", meta.Name, meta.ID)
	fmt.Printf("Status: %s  Version: %d  Step: %s\n", meta.Status, state.Version, state.CurrentStep)
	fmt.Printf("Documents: %d  Entities: %d  Relationships: %d\n",
		len(state.Documents), len(state.Entities), len(state.Relationships))
	fmt.Printf("Links: %d  Events: %d  Patterns: %d  Hypotheses: %d\n",
		len(state.SemanticLinks), len(state.Timeline), len(state.Patterns), len(state.Hypotheses))
	printCompliance(state)
	if len(state.ErrorLog) > 0 {
		fmt.Printf("Errors:\n")
		for _, e := range state.ErrorLog {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

func printCompliance(state *models.InvestigationState) {
	if state.ComplianceReport == nil {
		fmt.Println("Compliance: gate has not run")
		return
	}
	r := state.ComplianceReport
	fmt.Printf("Compliance: %s (drift=%.4f fidelity=%.4f rcf=%.4f)\n",
		r.OverallStatus, r.DeltaE, r.Fidelity, r.RCF)
	for _, v := range r.Violations {
		fmt.Printf("  violation [%s] %s: %s\n", v.Severity, v.Rule, v.Message)
	}
	for _, rec := range r.Recommendations {
		fmt.Printf("  recommendation: %s\n", rec)
	}
}

func printOutcome(state *models.InvestigationState) {
	fmt.Printf("Run finished at step %q\n", state.CurrentStep)
	printCompliance(state)
	if state.ReportPath != "" {
		fmt.Printf("Report: %s\n", state.ReportPath)
	}
}
