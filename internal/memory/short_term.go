// Package memory implements the engine's memory facade: short-term per-run
// entries, long-term JSON knowledge files, and an episodic JSON-lines log,
// consolidated when an investigation completes.
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// STMEntry is one short-term memory record.
type STMEntry struct {
	InvestigationID string    `json:"investigation_id"`
	Agent           string    `json:"agent"`
	Key             string    `json:"key"`
	Value           any       `json:"value"`
	Importance      float64   `json:"importance"`
	StoredAt        time.Time `json:"stored_at"`
}

// ShortTermMemory is the in-memory per-run store, keyed
// investigation:agent:key.
type ShortTermMemory struct {
	mu      sync.RWMutex
	entries map[string]STMEntry
}

// NewShortTermMemory creates an empty STM.
func NewShortTermMemory() *ShortTermMemory {
	return &ShortTermMemory{entries: make(map[string]STMEntry)}
}

func stmKey(investigationID, agent, key string) string {
	return fmt.Sprintf("%s:%s:%s", investigationID, agent, key)
}

// Store writes an entry, replacing any previous value for the same key.
func (m *ShortTermMemory) Store(investigationID, agent, key string, value any, importance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[stmKey(investigationID, agent, key)] = STMEntry{
		InvestigationID: investigationID,
		Agent:           agent,
		Key:             key,
		Value:           value,
		Importance:      importance,
		StoredAt:        time.Now().UTC(),
	}
}

// Get returns one entry.
func (m *ShortTermMemory) Get(investigationID, agent, key string) (STMEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[stmKey(investigationID, agent, key)]
	return e, ok
}

// ForInvestigation returns all entries belonging to one investigation.
func (m *ShortTermMemory) ForInvestigation(investigationID string) []STMEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []STMEntry
	prefix := investigationID + ":"
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// ClearInvestigation drops all entries for one investigation.
func (m *ShortTermMemory) ClearInvestigation(investigationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := investigationID + ":"
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of stored entries.
func (m *ShortTermMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
