package compliance

import (
	"fmt"
	"regexp"

	"github.com/sherlockintel/sherlock/internal/models"
)

// ODOSResult is the verdict of the ethical rule layer. A BLOCKED result
// overrides the metric thresholds; NEEDS_REVIEW downgrades a VALID metric
// outcome.
type ODOSResult struct {
	Status     string
	Message    string
	Violations []models.Violation
}

// Raw identifiers must never surface in the published report.
var piiCriticalRe = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)

// EvaluateODOS applies the rule layer to the synthesized findings.
func EvaluateODOS(state *models.InvestigationState) ODOSResult {
	if m := piiCriticalRe.FindString(state.ReportSummary); m != "" {
		return ODOSResult{
			Status:  models.ComplianceBlocked,
			Message: "report exposes a raw personal identifier",
			Violations: []models.Violation{{
				Rule:     "pii_critical",
				Severity: "critical",
				Message:  "report narrative contains an unmasked CPF",
			}},
		}
	}

	if v, ok := unbackedEntity(state); ok {
		return ODOSResult{
			Status:     models.ComplianceNeedsReview,
			Message:    v.Message,
			Violations: []models.Violation{v},
		}
	}

	return ODOSResult{Status: models.ComplianceValid}
}

// unbackedEntity looks for a hypothesis entity with neither relationship
// evidence nor supporting documents.
func unbackedEntity(state *models.InvestigationState) (models.Violation, bool) {
	related := make(map[string]bool)
	for i := range state.Relationships {
		related[state.Relationships[i].SourceEntityID] = true
		related[state.Relationships[i].TargetEntityID] = true
	}
	documented := make(map[string]bool)
	for i := range state.Entities {
		e := &state.Entities[i]
		if len(e.Documents) > 0 {
			documented[e.ID] = true
			documented[e.Text] = true
		}
	}

	for _, h := range state.Hypotheses {
		if len(h.Documents) > 0 {
			continue
		}
		for _, entity := range h.Entities {
			if !related[entity] && !documented[entity] {
				return models.Violation{
					Rule:     "unbacked_entity",
					Severity: "medium",
					Message:  fmt.Sprintf("hypothesis %s cites entity %q without evidence", h.ID, entity),
					Entity:   entity,
				}, true
			}
		}
	}
	return models.Violation{}, false
}
