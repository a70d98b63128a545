package synthesis

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

// stubLLM returns a canned narrative or an error.
type stubLLM struct {
	text string
	err  error
}

func (s *stubLLM) Complete(context.Context, string, string) (string, error) {
	return s.text, s.err
}

func (s *stubLLM) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestDeriveHypothesesFromPatterns(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	for i := 0; i < 7; i++ {
		state.Patterns = append(state.Patterns, models.Pattern{
			ID:          "p",
			Description: strings.Repeat("x", 100),
			Confidence:  0.8,
			Entities:    []string{"e1"},
		})
	}

	hyps := deriveHypotheses(state)
	require.Len(t, hyps, maxHypotheses)
	assert.Equal(t, "H1", hyps[0].ID)
	assert.Len(t, hyps[0].Title, 80)
	assert.Equal(t, models.HypothesisUnderReview, hyps[0].Status)
	assert.Equal(t, []string{"e1"}, hyps[0].Evidence)
}

func TestDeriveHypothesesFromCentrality(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.GraphMetadata = &models.GraphMetadata{
		TopEntities: []models.TopEntity{
			{EntityID: "e1", EntityText: "Acme", Score: 0.3},
		},
	}

	hyps := deriveHypotheses(state)
	require.Len(t, hyps, 1)
	assert.Contains(t, hyps[0].Title, "Acme")
	assert.InDelta(t, 0.6, hyps[0].Confidence, 1e-9)
	assert.Equal(t, []string{"e1"}, hyps[0].Entities)
}

func TestDeriveHypothesesKeepsExisting(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.Hypotheses = []models.Hypothesis{{ID: "H1"}}
	state.Patterns = []models.Pattern{{Description: "algo"}}

	assert.Nil(t, deriveHypotheses(state))
}

func TestDeriveLeads(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	assert.Empty(t, deriveLeads(state))

	state.Timeline = []models.TimelineEvent{{ID: "1"}}
	state.SemanticLinks = []models.SemanticLink{{DocID1: "a", DocID2: "b"}}

	leads := deriveLeads(state)
	require.Len(t, leads, 2)
	assert.Equal(t, "L1", leads[0].ID)
	assert.Equal(t, "high", leads[0].Priority)
	assert.Equal(t, "L2", leads[1].ID)
	assert.Equal(t, "medium", leads[1].Priority)
}

func TestAgentRunPersistsReport(t *testing.T) {
	dir := t.TempDir()
	a := NewAgent(dir, nil, quietLogger())

	state := models.NewInvestigationState("inv-1", "")
	state.Documents = []models.Document{{ID: "doc-1"}}
	state.Patterns = []models.Pattern{{Description: "padrão recorrente", Confidence: 0.8}}

	require.NoError(t, a.Run(context.Background(), state))

	assert.NotEmpty(t, state.Hypotheses)
	assert.Contains(t, state.ReportSummary, "# Investigation Report")
	assert.Contains(t, state.ReportSummary, "## Hypotheses")
	assert.NotContains(t, state.ReportSummary, "Analyst Narrative")

	require.NotEmpty(t, state.ReportPath)
	data, err := os.ReadFile(state.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "report_markdown")
}

func TestAgentRunAppendsNarrative(t *testing.T) {
	a := NewAgent(t.TempDir(), &stubLLM{text: "Resumo executivo."}, quietLogger())

	state := models.NewInvestigationState("inv-1", "")
	require.NoError(t, a.Run(context.Background(), state))

	assert.Contains(t, state.ReportSummary, "## Analyst Narrative")
	assert.Contains(t, state.ReportSummary, "Resumo executivo.")
}

func TestAgentRunToleratesLLMFailure(t *testing.T) {
	a := NewAgent(t.TempDir(), &stubLLM{err: errors.New("rate limited")}, quietLogger())

	state := models.NewInvestigationState("inv-1", "")
	require.NoError(t, a.Run(context.Background(), state))
	assert.NotContains(t, state.ReportSummary, "Analyst Narrative")
}

func TestBuildReportRanksHypotheses(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.Hypotheses = []models.Hypothesis{
		{ID: "H1", Title: "fraca", Confidence: 0.2, Status: models.HypothesisUnderReview},
		{ID: "H2", Title: "forte", Confidence: 0.9, Status: models.HypothesisUnderReview},
	}

	report := buildReport(state)
	assert.Less(t, strings.Index(report, "H2"), strings.Index(report, "H1"))
}
