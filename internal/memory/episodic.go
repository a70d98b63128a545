package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const episodesFile = "episodes.jsonl"

// Episode is one recorded pipeline event.
type Episode struct {
	InvestigationID string         `json:"investigation_id"`
	Agent           string         `json:"agent"`
	Action          string         `json:"action"`
	Detail          map[string]any `json:"detail,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// EpisodicMemory appends episodes to a JSON-lines file.
type EpisodicMemory struct {
	path string
	mu   sync.Mutex
}

// NewEpisodicMemory creates the episodic log under dir.
func NewEpisodicMemory(dir string) (*EpisodicMemory, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create memory directory: %w", err)
	}
	return &EpisodicMemory{path: filepath.Join(dir, episodesFile)}, nil
}

// Record appends one episode.
func (m *EpisodicMemory) Record(ep Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now().UTC()
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open episodes file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("marshal episode: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append episode: %w", err)
	}
	return nil
}

// ForInvestigation reads back all episodes for one investigation.
func (m *EpisodicMemory) ForInvestigation(investigationID string) ([]Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var episodes []Episode
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ep Episode
		if err := json.Unmarshal(scanner.Bytes(), &ep); err != nil {
			continue
		}
		if ep.InvestigationID == investigationID {
			episodes = append(episodes, ep)
		}
	}
	return episodes, scanner.Err()
}
