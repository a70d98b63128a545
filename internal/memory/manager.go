package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/models"
)

// STM entries at or above this importance survive consolidation.
const consolidationImportance = 0.8

// Patterns promoted to long-term memory per investigation.
const consolidationTopPatterns = 20

// Manager ties the three memory layers together for the pipeline.
type Manager struct {
	STM      *ShortTermMemory
	LTM      *LongTermMemory
	Episodic *EpisodicMemory
	logger   *logrus.Logger
}

// NewManager creates the memory facade persisting under dir.
func NewManager(dir string, logger *logrus.Logger) (*Manager, error) {
	ltm, err := NewLongTermMemory(dir)
	if err != nil {
		return nil, err
	}
	episodic, err := NewEpisodicMemory(dir)
	if err != nil {
		return nil, err
	}
	return &Manager{
		STM:      NewShortTermMemory(),
		LTM:      ltm,
		Episodic: episodic,
		logger:   logger,
	}, nil
}

// RecordEpisode appends a pipeline episode, logging failures instead of
// propagating them.
func (m *Manager) RecordEpisode(investigationID, agent, action string, detail map[string]any) {
	err := m.Episodic.Record(Episode{
		InvestigationID: investigationID,
		Agent:           agent,
		Action:          action,
		Detail:          detail,
	})
	if err != nil {
		m.logger.WithError(err).Warn("Failed to record episode")
	}
}

// Consolidate runs when an investigation completes: important STM entries
// become entity profiles, the strongest patterns are persisted, a history
// summary is appended, and the STM is cleared.
func (m *Manager) Consolidate(state *models.InvestigationState) error {
	id := state.Config.InvestigationID

	for _, entry := range m.STM.ForInvestigation(id) {
		if entry.Importance < consolidationImportance {
			continue
		}
		profileKey := entry.Agent + ":" + entry.Key
		err := m.LTM.StoreEntityProfile(profileKey, EntityProfile{
			InvestigationID: id,
			Observation:     entry.Value,
			StoredAt:        time.Now().UTC(),
		})
		if err != nil {
			m.logger.WithError(err).Warn("Failed to promote STM entry")
		}
	}

	patterns := make([]models.Pattern, len(state.Patterns))
	copy(patterns, state.Patterns)
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Confidence > patterns[j].Confidence
	})
	if len(patterns) > consolidationTopPatterns {
		patterns = patterns[:consolidationTopPatterns]
	}

	stored := make([]StoredPattern, 0, len(patterns))
	now := time.Now().UTC()
	for _, p := range patterns {
		stored = append(stored, StoredPattern{
			InvestigationID: id,
			Category:        p.Category,
			Description:     p.Description,
			Confidence:      p.Confidence,
			StoredAt:        now,
		})
	}
	if len(stored) > 0 {
		if err := m.LTM.StorePatterns(stored); err != nil {
			return fmt.Errorf("store patterns: %w", err)
		}
	}

	verdict := ""
	if state.ComplianceReport != nil {
		verdict = state.ComplianceReport.OverallStatus
	}
	summary := fmt.Sprintf("%d documents, %d entities, %d hypotheses",
		len(state.Documents), len(state.Entities), len(state.Hypotheses))
	err := m.LTM.AppendHistory(HistoryEntry{
		InvestigationID: id,
		Summary:         summary,
		DocumentCount:   len(state.Documents),
		EntityCount:     len(state.Entities),
		Verdict:         verdict,
		CompletedAt:     now,
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	m.STM.ClearInvestigation(id)

	m.logger.WithFields(logrus.Fields{
		"investigation_id": id,
		"patterns":         len(stored),
	}).Info("Memory consolidated")

	return nil
}
