package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Retention caps for the long-term files.
const (
	maxStoredPatterns  = 500
	maxProfilesPerKey  = 20
	maxHistoryEntries  = 100
	patternsFile       = "patterns.json"
	entityProfilesFile = "entity_profiles.json"
	historyFile        = "investigation_history.json"
)

// StoredPattern is a pattern promoted to long-term memory.
type StoredPattern struct {
	InvestigationID string    `json:"investigation_id"`
	Category        string    `json:"pattern_type"`
	Description     string    `json:"description"`
	Confidence      float64   `json:"confidence"`
	StoredAt        time.Time `json:"stored_at"`
}

// EntityProfile is an observation about an entity accumulated across
// investigations.
type EntityProfile struct {
	InvestigationID string    `json:"investigation_id"`
	Observation     any       `json:"observation"`
	StoredAt        time.Time `json:"stored_at"`
}

// HistoryEntry summarizes one completed investigation.
type HistoryEntry struct {
	InvestigationID string    `json:"investigation_id"`
	Summary         string    `json:"summary"`
	DocumentCount   int       `json:"document_count"`
	EntityCount     int       `json:"entity_count"`
	Verdict         string    `json:"verdict"`
	CompletedAt     time.Time `json:"completed_at"`
}

// LongTermMemory persists knowledge as append-only JSON files under dir.
type LongTermMemory struct {
	dir string
	mu  sync.Mutex
}

// NewLongTermMemory creates the store at dir.
func NewLongTermMemory(dir string) (*LongTermMemory, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create memory directory: %w", err)
	}
	return &LongTermMemory{dir: dir}, nil
}

func readJSONFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeJSONFile[T any](path string, items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePatterns appends patterns, keeping the most recent maxStoredPatterns.
func (m *LongTermMemory) StorePatterns(patterns []StoredPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.dir, patternsFile)
	existing, err := readJSONFile[StoredPattern](path)
	if err != nil {
		return fmt.Errorf("read patterns: %w", err)
	}
	existing = append(existing, patterns...)
	if len(existing) > maxStoredPatterns {
		existing = existing[len(existing)-maxStoredPatterns:]
	}
	return writeJSONFile(path, existing)
}

// Patterns returns all stored patterns.
func (m *LongTermMemory) Patterns() ([]StoredPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return readJSONFile[StoredPattern](filepath.Join(m.dir, patternsFile))
}

// StoreEntityProfile appends an observation under a profile key, keeping the
// last maxProfilesPerKey per key.
func (m *LongTermMemory) StoreEntityProfile(key string, profile EntityProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.dir, entityProfilesFile)
	profiles := make(map[string][]EntityProfile)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &profiles); err != nil {
			return fmt.Errorf("unmarshal entity profiles: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read entity profiles: %w", err)
	}

	profiles[key] = append(profiles[key], profile)
	if len(profiles[key]) > maxProfilesPerKey {
		profiles[key] = profiles[key][len(profiles[key])-maxProfilesPerKey:]
	}

	out, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// EntityProfiles returns all profiles for one key.
func (m *LongTermMemory) EntityProfiles(key string) ([]EntityProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(m.dir, entityProfilesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	profiles := make(map[string][]EntityProfile)
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles[key], nil
}

// AppendHistory appends a completed-investigation summary, keeping the last
// maxHistoryEntries.
func (m *LongTermMemory) AppendHistory(entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.dir, historyFile)
	existing, err := readJSONFile[HistoryEntry](path)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	existing = append(existing, entry)
	if len(existing) > maxHistoryEntries {
		existing = existing[len(existing)-maxHistoryEntries:]
	}
	return writeJSONFile(path, existing)
}

// History returns all stored history entries.
func (m *LongTermMemory) History() ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return readJSONFile[HistoryEntry](filepath.Join(m.dir, historyFile))
}
