package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

func TestComputeMetricsCleanState(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")

	m := ComputeMetrics(state)
	assert.Zero(t, m.DeltaE)
	assert.Equal(t, 0.99, m.Fidelity)
	assert.Equal(t, 0.95, m.RCF)
}

func TestComputeMetricsContradictionRate(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.SemanticLinks = make([]models.SemanticLink, 10)
	state.Contradictions = make([]models.Contradiction, 1)

	m := ComputeMetrics(state)
	assert.Equal(t, 0.1, m.DeltaE)
}

func TestComputeMetricsVarianceRaisesDrift(t *testing.T) {
	// widely divergent hypothesis confidences raise drift past the
	// contradiction rate
	state := models.NewInvestigationState("inv-1", "")
	state.Hypotheses = []models.Hypothesis{
		{ID: "H1", Confidence: 0.95},
		{ID: "H2", Confidence: 0.05},
	}

	m := ComputeMetrics(state)
	// variance = 0.2025, raised drift = min(1, 2*0.2025)
	assert.Equal(t, 0.405, m.DeltaE)
	// with >=2 hypotheses and no contradictions, coherence is full
	assert.Equal(t, 1.0, m.RCF)
}

func TestComputeMetricsRCFDegrades(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.Hypotheses = []models.Hypothesis{
		{ID: "H1", Confidence: 0.6},
		{ID: "H2", Confidence: 0.6},
	}
	state.SemanticLinks = make([]models.SemanticLink, 4)
	state.Contradictions = make([]models.Contradiction, 1)

	m := ComputeMetrics(state)
	assert.Equal(t, 0.75, m.RCF)
}

func TestFidelityFromCitedEntities(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.Entities = []models.Entity{
		{ID: "e1", Text: "Alpha", Confidence: 0.9},
		{ID: "e2", Text: "Bravo", Confidence: 0.7},
		{ID: "e3", Text: "Charlie", Confidence: 0.1}, // not cited
	}
	state.Hypotheses = []models.Hypothesis{
		{ID: "H1", Entities: []string{"e1", "Bravo"}},
	}

	m := ComputeMetrics(state)
	assert.Equal(t, 0.8, m.Fidelity)
}

func TestFidelityFallsBackToDecodeRate(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.CryptoSegments = []models.CryptoSegment{
		{ID: "s1", DecodedContent: "Hello"},
		{ID: "s2"},
	}

	m := ComputeMetrics(state)
	assert.Equal(t, 0.5, m.Fidelity)
}

func TestBiasAlerts(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.Hypotheses = []models.Hypothesis{
		{ID: "H1", Entities: []string{"Acme"}, Documents: []string{"doc-1"}},
		{ID: "H2", Entities: []string{"Acme"}, Documents: []string{"doc-1"}},
		{ID: "H3", Entities: []string{"Acme"}},
	}

	alerts := BiasAlerts(state, 3)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Acme", alerts[0].Entity)
	assert.Equal(t, 3, alerts[0].Occurrences)
}

func TestBiasAlertsEnoughDocumentSupport(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.Hypotheses = []models.Hypothesis{
		{ID: "H1", Entities: []string{"Acme"}, Documents: []string{"doc-1"}},
		{ID: "H2", Entities: []string{"Acme"}, Documents: []string{"doc-2"}},
		{ID: "H3", Entities: []string{"Acme"}},
	}
	assert.Empty(t, BiasAlerts(state, 3))
}

func TestBiasAlertsBelowThreshold(t *testing.T) {
	state := models.NewInvestigationState("inv-1", "")
	state.Hypotheses = []models.Hypothesis{
		{ID: "H1", Entities: []string{"Acme"}},
		{ID: "H2", Entities: []string{"Acme"}},
	}
	assert.Empty(t, BiasAlerts(state, 3))
}
