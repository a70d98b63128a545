// Package synthesis turns patterns, centrality, and the timeline into
// ranked hypotheses, actionable leads, and the narrative report.
package synthesis

import (
	"fmt"
	"math"

	"github.com/sherlockintel/sherlock/internal/models"
)

const maxHypotheses = 5

// deriveHypotheses builds up to five hypotheses from the top patterns, or
// from central entities when no patterns exist.
func deriveHypotheses(state *models.InvestigationState) []models.Hypothesis {
	if len(state.Hypotheses) > 0 {
		return nil
	}

	var out []models.Hypothesis
	for i, p := range state.Patterns {
		if len(out) == maxHypotheses {
			break
		}
		evidence := p.Evidence
		if len(evidence) == 0 {
			evidence = p.Entities
		}
		out = append(out, models.Hypothesis{
			ID:          fmt.Sprintf("H%d", i+1),
			Title:       truncate(p.Description, 80),
			Description: p.Description,
			Confidence:  p.Confidence,
			Evidence:    evidence,
			Entities:    p.Entities,
			Status:      models.HypothesisUnderReview,
		})
	}
	if len(out) > 0 {
		return out
	}

	if state.GraphMetadata == nil {
		return nil
	}
	for i, top := range state.GraphMetadata.TopEntities {
		if i == maxHypotheses {
			break
		}
		name := top.EntityText
		if name == "" {
			name = top.EntityID
		}
		out = append(out, models.Hypothesis{
			ID:          fmt.Sprintf("H%d", i+1),
			Title:       truncate(fmt.Sprintf("%s is central to the investigation", name), 80),
			Description: fmt.Sprintf("%s ranks among the most connected entities (centrality %.3f)", name, top.Score),
			Confidence:  math.Min(1, 2*top.Score),
			Entities:    []string{top.EntityID},
			Status:      models.HypothesisUnderReview,
		})
	}
	return out
}

// deriveLeads produces follow-up actions from the timeline and link set.
func deriveLeads(state *models.InvestigationState) []models.Lead {
	var leads []models.Lead
	if len(state.Timeline) > 0 {
		leads = append(leads, models.Lead{
			ID:            "L1",
			Action:        "Review chronological events",
			Priority:      "high",
			Justification: fmt.Sprintf("%d dated events were extracted", len(state.Timeline)),
		})
	}
	if len(state.SemanticLinks) > 0 {
		leads = append(leads, models.Lead{
			ID:            fmt.Sprintf("L%d", len(leads)+1),
			Action:        "Review linked documents",
			Priority:      "medium",
			Justification: fmt.Sprintf("%d semantic links connect the corpus", len(state.SemanticLinks)),
		})
	}
	return leads
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
