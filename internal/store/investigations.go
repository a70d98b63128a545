// Package store persists investigation records on the filesystem: one
// directory per investigation with meta.json and the full state.json.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/models"
)

// Investigation statuses.
const (
	StatusCreated   = "created"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusBlocked   = "blocked"
)

// Batch records one ingestion run against an investigation.
type Batch struct {
	ID          string    `json:"id"`
	UploadsPath string    `json:"uploads_path"`
	Documents   int       `json:"documents"`
	CreatedAt   time.Time `json:"created_at"`
}

// Meta is the investigation metadata record.
type Meta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    string    `json:"status"`
	Version   int       `json:"version"`
	Batches   []Batch   `json:"batches"`
}

// InvestigationStore manages investigation directories under a base dir.
type InvestigationStore struct {
	baseDir string
	logger  *logrus.Logger
	mu      sync.Mutex
}

// NewInvestigationStore creates the store rooted at baseDir.
func NewInvestigationStore(baseDir string, logger *logrus.Logger) (*InvestigationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create investigations directory: %w", err)
	}
	return &InvestigationStore{baseDir: baseDir, logger: logger}, nil
}

func (s *InvestigationStore) dir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Create initializes a new investigation directory and meta record.
func (s *InvestigationStore) Create(id, name string) (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.dir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create investigation directory: %w", err)
	}

	now := time.Now().UTC()
	meta := &Meta{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusCreated,
		Version:   0,
		Batches:   []Batch{},
	}
	if err := s.writeMeta(meta); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"investigation_id": id,
		"name":             name,
	}).Info("Investigation created")

	return meta, nil
}

// GetMeta loads the metadata for an investigation.
func (s *InvestigationStore) GetMeta(id string) (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readMeta(id)
}

// List returns metadata for all investigations, newest first.
func (s *InvestigationStore) List() ([]*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read investigations directory: %w", err)
	}

	var metas []*Meta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.readMeta(e.Name())
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// SaveState serializes the state and bumps meta.version and updated_at.
func (s *InvestigationStore) SaveState(id string, state *models.InvestigationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(id)
	if err != nil {
		return err
	}

	meta.Version++
	meta.UpdatedAt = time.Now().UTC()
	state.Version = meta.Version
	state.LastUpdated = meta.UpdatedAt

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir(id), "state.json"), data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	return s.writeMeta(meta)
}

// LoadState reads the persisted state, or nil when none was saved yet.
func (s *InvestigationStore) LoadState(id string) (*models.InvestigationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir(id), "state.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var state models.InvestigationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

// AppendBatch records an ingestion batch and bumps metadata.
func (s *InvestigationStore) AppendBatch(id string, batch Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(id)
	if err != nil {
		return err
	}
	meta.Batches = append(meta.Batches, batch)
	meta.UpdatedAt = time.Now().UTC()
	return s.writeMeta(meta)
}

// SetStatus updates the investigation status.
func (s *InvestigationStore) SetStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(id)
	if err != nil {
		return err
	}
	meta.Status = status
	meta.UpdatedAt = time.Now().UTC()
	return s.writeMeta(meta)
}

func (s *InvestigationStore) readMeta(id string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(id), "meta.json"))
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return &meta, nil
}

func (s *InvestigationStore) writeMeta(meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir(meta.ID), "meta.json"), data, 0644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}
