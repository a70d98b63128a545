package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sherlockintel/sherlock/internal/models"
)

const (
	maxKeyFindings       = 5
	maxReportHypotheses  = 10
	maxReportLeads       = 10
	maxTimelineSummaries = 10
)

// buildReport renders the markdown narrative from the synthesized state.
func buildReport(state *models.InvestigationState) string {
	var b strings.Builder

	b.WriteString("# Investigation Report\n\n")
	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "Analysis of %d documents produced %d entities, %d relationships, %d semantic links, and %d dated events. %d hypotheses are under review.\n\n",
		len(state.Documents), len(state.Entities), len(state.Relationships),
		len(state.SemanticLinks), len(state.Timeline), len(state.Hypotheses))

	b.WriteString("## Key Findings\n\n")
	if len(state.Patterns) == 0 {
		b.WriteString("No significant patterns detected.\n\n")
	} else {
		for i, p := range state.Patterns {
			if i == maxKeyFindings {
				break
			}
			fmt.Fprintf(&b, "- %s\n", p.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Hypotheses\n\n")
	ranked := append([]models.Hypothesis(nil), state.Hypotheses...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if len(ranked) > maxReportHypotheses {
		ranked = ranked[:maxReportHypotheses]
	}
	for _, h := range ranked {
		fmt.Fprintf(&b, "- **%s** (%s, confidence %.2f): %s\n", h.ID, h.Status, h.Confidence, h.Title)
	}
	if len(ranked) == 0 {
		b.WriteString("None.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Actionable Leads\n\n")
	leads := state.Leads
	if len(leads) > maxReportLeads {
		leads = leads[:maxReportLeads]
	}
	for _, l := range leads {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", l.Priority, l.Action, l.Justification)
	}
	if len(leads) == 0 {
		b.WriteString("None.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Timeline\n\n")
	if len(state.Timeline) == 0 {
		b.WriteString("No dated events found.\n\n")
	} else {
		for i, e := range state.Timeline {
			if i == maxTimelineSummaries {
				break
			}
			when := "unknown date"
			if e.Timestamp != nil {
				when = e.Timestamp.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "- %s [%s] %s\n", when, e.EventType, truncate(e.Description, 100))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Network\n\n")
	if state.GraphMetadata == nil {
		b.WriteString("Graph construction did not run.\n")
	} else {
		fmt.Fprintf(&b, "Knowledge graph holds %d entities and %d relationships.\n",
			state.GraphMetadata.NodeCount, state.GraphMetadata.EdgeCount)
		for i, top := range state.GraphMetadata.TopEntities {
			if i == 5 {
				break
			}
			name := top.EntityText
			if name == "" {
				name = top.EntityID
			}
			fmt.Fprintf(&b, "- %s (centrality %.3f)\n", name, top.Score)
		}
	}

	return b.String()
}
