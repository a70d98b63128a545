package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/llm"
	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "synthesis"

const narrativeSystemPrompt = "You are an investigation analyst. Write a concise executive narrative " +
	"in the language of the source material, grounded strictly in the findings provided. " +
	"Do not invent facts."

// Agent is the synthesis stage. The LLM client is optional; without it the
// template report stands alone.
type Agent struct {
	reportsDir string
	client     llm.Client
	logger     *logrus.Logger
}

// NewAgent creates the stage.
func NewAgent(reportsDir string, client llm.Client, logger *logrus.Logger) *Agent {
	return &Agent{reportsDir: reportsDir, client: client, logger: logger}
}

// Run derives hypotheses and leads, renders the report, and persists the
// JSON artifact under a timestamped filename.
func (a *Agent) Run(ctx context.Context, state *models.InvestigationState) error {
	state.Hypotheses = append(state.Hypotheses, deriveHypotheses(state)...)
	state.Leads = append(state.Leads, deriveLeads(state)...)

	report := buildReport(state)
	if narrative := a.narrative(ctx, report); narrative != "" {
		report += "\n## Analyst Narrative\n\n" + narrative + "\n"
	}
	state.ReportSummary = report

	path, err := a.persist(state, report)
	if err != nil {
		return err
	}
	state.ReportPath = path

	a.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"hypotheses":       len(state.Hypotheses),
		"leads":            len(state.Leads),
		"report":           path,
	}).Info("Synthesis completed")

	return nil
}

// narrative asks the LLM for an executive summary. Failures degrade to the
// template report with a warning only.
func (a *Agent) narrative(ctx context.Context, report string) string {
	if a.client == nil {
		return ""
	}
	text, err := a.client.Complete(ctx, narrativeSystemPrompt, report)
	if err != nil {
		a.logger.WithError(err).Warn("Narrative generation failed, keeping template report")
		return ""
	}
	return text
}

func (a *Agent) persist(state *models.InvestigationState, report string) (string, error) {
	if err := os.MkdirAll(a.reportsDir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}

	artifact := map[string]any{
		"investigation_id": state.Config.InvestigationID,
		"generated_at":     time.Now().UTC().Format(time.RFC3339),
		"hypotheses":       state.Hypotheses,
		"leads":            state.Leads,
		"patterns":         state.Patterns,
		"timeline":         state.Timeline,
		"graph_metadata":   state.GraphMetadata,
		"report_markdown":  report,
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	name := fmt.Sprintf("report_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(a.reportsDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
