// Package checkpoint persists investigation state at stage boundaries so a
// run can resume after a human-in-the-loop interrupt or a process restart.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sherlockintel/sherlock/internal/models"
)

var bucketCheckpoints = []byte("checkpoints")

// Envelope is the versioned on-disk checkpoint format.
type Envelope struct {
	ThreadID  string                     `json:"thread_id"`
	Stage     string                     `json:"stage"`
	NextIndex int                        `json:"next_index"`
	SavedAt   time.Time                  `json:"saved_at"`
	State     *models.InvestigationState `json:"state"`
}

// Store is a bbolt-backed checkpoint store keyed by thread id.
type Store struct {
	db *bolt.DB
}

// Open opens the checkpoint database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}

	path := filepath.Join(dir, "checkpoints.db")
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Save writes the checkpoint for a thread, replacing any previous one.
func (s *Store) Save(threadID, stage string, nextIndex int, state *models.InvestigationState) error {
	env := Envelope{
		ThreadID:  threadID,
		Stage:     stage,
		NextIndex: nextIndex,
		SavedAt:   time.Now().UTC(),
		State:     state,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Put([]byte(threadID), data)
	})
}

// Load returns the checkpoint for a thread, or nil when none exists.
func (s *Store) Load(threadID string) (*Envelope, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCheckpoints).Get([]byte(threadID))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &env, nil
}

// Delete removes a thread's checkpoint.
func (s *Store) Delete(threadID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Delete([]byte(threadID))
	})
}

// List returns the thread ids with saved checkpoints.
func (s *Store) List() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
