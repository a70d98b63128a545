// Package compliance is the final gate: it computes drift, fidelity, and
// reasoning coherence, applies the ODOS rule layer, and decides whether the
// investigation may be published.
package compliance

import (
	"fmt"
	"math"

	"github.com/sherlockintel/sherlock/internal/models"
)

// Metrics is the numeric half of the gate.
type Metrics struct {
	DeltaE   float64
	Fidelity float64
	RCF      float64
}

// ComputeMetrics derives drift, fidelity, and coherence from the state.
func ComputeMetrics(state *models.InvestigationState) Metrics {
	contradictionRate := float64(len(state.Contradictions)) / math.Max(1, float64(len(state.SemanticLinks)))

	deltaE := contradictionRate
	if len(state.Hypotheses) >= 2 {
		variance := confidenceVariance(state.Hypotheses)
		if raised := math.Min(1, 2*variance); raised > deltaE {
			deltaE = raised
		}
	}

	rcf := 0.95
	if len(state.Hypotheses) >= 2 {
		rcf = 1 - math.Min(1, contradictionRate)
	}

	return Metrics{
		DeltaE:   round4(deltaE),
		Fidelity: round4(fidelity(state)),
		RCF:      round4(rcf),
	}
}

// fidelity is the mean confidence of entities cited by hypotheses. Without
// hypotheses it falls back to the decode rate of encrypted segments, and
// with nothing to measure it reports 0.99.
func fidelity(state *models.InvestigationState) float64 {
	cited := make(map[string]bool)
	for _, h := range state.Hypotheses {
		for _, id := range h.Entities {
			cited[id] = true
		}
	}
	if len(cited) > 0 {
		var sum float64
		var count int
		for i := range state.Entities {
			if cited[state.Entities[i].ID] || cited[state.Entities[i].Text] {
				sum += state.Entities[i].Confidence
				count++
			}
		}
		if count > 0 {
			return sum / float64(count)
		}
	}

	if len(state.CryptoSegments) > 0 {
		decoded := 0
		for _, s := range state.CryptoSegments {
			if s.DecodedContent != "" {
				decoded++
			}
		}
		return float64(decoded) / float64(len(state.CryptoSegments))
	}

	return 0.99
}

func confidenceVariance(hypotheses []models.Hypothesis) float64 {
	var sum float64
	for _, h := range hypotheses {
		sum += h.Confidence
	}
	mean := sum / float64(len(hypotheses))
	var variance float64
	for _, h := range hypotheses {
		variance += (h.Confidence - mean) * (h.Confidence - mean)
	}
	return variance / float64(len(hypotheses))
}

// BiasAlerts flags entities dominating hypotheses without document support:
// present in at least minHypotheses hypotheses whose combined supporting
// documents name fewer than two distinct ids.
func BiasAlerts(state *models.InvestigationState, minHypotheses int) []models.BiasAlert {
	if minHypotheses <= 0 {
		minHypotheses = 3
	}

	occurrences := make(map[string]int)
	docsFor := make(map[string]map[string]bool)
	var order []string
	for _, h := range state.Hypotheses {
		for _, entity := range h.Entities {
			if occurrences[entity] == 0 {
				order = append(order, entity)
				docsFor[entity] = make(map[string]bool)
			}
			occurrences[entity]++
			for _, d := range h.Documents {
				docsFor[entity][d] = true
			}
		}
	}

	var alerts []models.BiasAlert
	for _, entity := range order {
		if occurrences[entity] >= minHypotheses && len(docsFor[entity]) < 2 {
			alerts = append(alerts, models.BiasAlert{
				Entity:      entity,
				Occurrences: occurrences[entity],
				Message:     fmt.Sprintf("entity appears in %d hypotheses backed by %d distinct documents", occurrences[entity], len(docsFor[entity])),
			})
		}
	}
	return alerts
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
