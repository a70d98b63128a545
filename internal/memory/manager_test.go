package memory

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	m, err := NewManager(t.TempDir(), logger)
	require.NoError(t, err)
	return m
}

func TestConsolidatePromotesImportantEntries(t *testing.T) {
	m := newTestManager(t)

	m.STM.Store("inv-1", "classify", "critical_ratio", 0.4, 0.9)
	m.STM.Store("inv-1", "classify", "scratch", "tmp", 0.3)

	state := models.NewInvestigationState("inv-1", "")
	require.NoError(t, m.Consolidate(state))

	promoted, err := m.LTM.EntityProfiles("classify:critical_ratio")
	require.NoError(t, err)
	require.Len(t, promoted, 1)
	assert.Equal(t, "inv-1", promoted[0].InvestigationID)

	dropped, err := m.LTM.EntityProfiles("classify:scratch")
	require.NoError(t, err)
	assert.Empty(t, dropped)

	// STM is cleared after consolidation
	assert.Empty(t, m.STM.ForInvestigation("inv-1"))
}

func TestConsolidateStoresStrongestPatterns(t *testing.T) {
	m := newTestManager(t)

	state := models.NewInvestigationState("inv-1", "")
	for i := 0; i < consolidationTopPatterns+5; i++ {
		state.Patterns = append(state.Patterns, models.Pattern{
			Category:    "degree",
			Description: "hub",
			Confidence:  float64(i) / 100,
		})
	}

	require.NoError(t, m.Consolidate(state))

	stored, err := m.LTM.Patterns()
	require.NoError(t, err)
	require.Len(t, stored, consolidationTopPatterns)
	// strongest first
	assert.GreaterOrEqual(t, stored[0].Confidence, stored[1].Confidence)
}

func TestConsolidateAppendsHistory(t *testing.T) {
	m := newTestManager(t)

	state := models.NewInvestigationState("inv-1", "")
	state.Documents = []models.Document{{ID: "d1"}, {ID: "d2"}}
	state.Entities = []models.Entity{{ID: "e1"}}
	state.ComplianceReport = &models.ComplianceReport{OverallStatus: models.ComplianceValid}

	require.NoError(t, m.Consolidate(state))

	history, err := m.LTM.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "inv-1", history[0].InvestigationID)
	assert.Equal(t, 2, history[0].DocumentCount)
	assert.Equal(t, 1, history[0].EntityCount)
	assert.Equal(t, models.ComplianceValid, history[0].Verdict)
	assert.Contains(t, history[0].Summary, "2 documents")
}

func TestRecordEpisodeTolerant(t *testing.T) {
	m := newTestManager(t)

	m.RecordEpisode("inv-1", "ingestion", "completed", map[string]any{"files": 1})

	episodes, err := m.Episodic.ForInvestigation("inv-1")
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, "completed", episodes[0].Action)
}
