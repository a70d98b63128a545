package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "timeline"

const (
	descriptionRadius   = 80
	descriptionMaxLen   = 200
	eventConfidence     = 0.85
	maxEntitiesPerEvent = 10
)

// Event types inferred from the description around a date match.
var eventTypeKeywords = []struct {
	eventType string
	keywords  []string
}{
	{"MEETING", []string{"reunião", "reuniao", "meeting", "encontro"}},
	{"CONTRACT", []string{"contrato", "contract", "acordo", "agreement"}},
	{"TRANSACTION", []string{"pagamento", "payment", "transferência", "transferencia", "transfer", "transação", "transacao", "transaction", "depósito", "deposito"}},
	{"TRAVEL", []string{"viagem", "travel", "voo", "flight", "passagem"}},
	{"SIGNATURE", []string{"assinatura", "assinado", "signature", "signed"}},
	{"DELIVERY", []string{"entrega", "delivery", "envio", "shipment"}},
}

// Builder is the timeline stage.
type Builder struct {
	logger *logrus.Logger
}

// NewBuilder creates the stage.
func NewBuilder(logger *logrus.Logger) *Builder {
	return &Builder{logger: logger}
}

// Run extracts dated events from every document, sorts the timeline, and
// records duplicate-date anomalies.
func (b *Builder) Run(state *models.InvestigationState) error {
	docIDs := make([]string, 0, len(state.ExtractedText))
	for id := range state.ExtractedText {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	for _, docID := range docIDs {
		text := state.ExtractedText[docID]
		for _, m := range findDates(text) {
			desc := describeMatch(text, m)
			ts := m.ts
			event := models.TimelineEvent{
				ID:               uuid.NewString(),
				Timestamp:        &ts,
				Confidence:       eventConfidence,
				Description:      desc,
				EntitiesInvolved: entitiesNear(state.Entities, docID, desc),
				SourceDocuments:  []string{docID},
				DateString:       m.text,
				EventType:        inferEventType(desc),
			}
			state.Timeline = append(state.Timeline, event)
		}
	}

	models.SortTimeline(state.Timeline)
	state.TimelineAnomalies = append(state.TimelineAnomalies, duplicateDateAnomalies(state.Timeline)...)

	b.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"events":           len(state.Timeline),
		"anomalies":        len(state.TimelineAnomalies),
	}).Info("Timeline built")

	return nil
}

func describeMatch(text string, m dateMatch) string {
	start := m.start - descriptionRadius
	if start < 0 {
		start = 0
	}
	end := m.end + descriptionRadius
	if end > len(text) {
		end = len(text)
	}
	desc := strings.TrimSpace(text[start:end])
	if len(desc) > descriptionMaxLen {
		desc = desc[:descriptionMaxLen]
	}
	return desc
}

// entitiesNear returns entity surface strings of this document that appear
// in the description.
func entitiesNear(entities []models.Entity, docID, description string) []string {
	lower := strings.ToLower(description)
	var found []string
	for i := range entities {
		inDoc := false
		for _, d := range entities[i].Documents {
			if d == docID {
				inDoc = true
				break
			}
		}
		if !inDoc {
			continue
		}
		if strings.Contains(lower, strings.ToLower(entities[i].Text)) {
			found = append(found, entities[i].Text)
			if len(found) >= maxEntitiesPerEvent {
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

func inferEventType(description string) string {
	lower := strings.ToLower(description)
	for _, candidate := range eventTypeKeywords {
		for _, kw := range candidate.keywords {
			if strings.Contains(lower, kw) {
				return candidate.eventType
			}
		}
	}
	return "EVENT"
}

// duplicateDateAnomalies flags calendar days carrying two or more events.
func duplicateDateAnomalies(events []models.TimelineEvent) []models.Anomaly {
	byDay := make(map[string][]string)
	for _, e := range events {
		if e.Timestamp == nil {
			continue
		}
		day := e.Timestamp.Format("2006-01-02")
		byDay[day] = append(byDay[day], e.ID)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var anomalies []models.Anomaly
	for _, day := range days {
		ids := byDay[day]
		if len(ids) < 2 {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Category:    "possible_duplicate_date",
			Description: fmt.Sprintf("%d events on %s", len(ids), day),
			Severity:    "low",
			Events:      ids,
		})
	}
	return anomalies
}
