// Package ledger records per-(document hash, investigation) processing
// status so ingestion can skip DONE documents across runs and retry FAILED
// ones. The table is shared by concurrently running investigations; all
// writes are transactional upserts on the composite key.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Processing statuses.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("ledger entry not found")

// Entry is one row of the processing ledger.
type Entry struct {
	DocHash         string    `db:"doc_hash" json:"doc_hash"`
	InvestigationID string    `db:"investigation_id" json:"investigation_id"`
	Status          string    `db:"status" json:"status"`
	LastAgentID     string    `db:"last_agent_id" json:"last_agent_id"`
	RetryCount      int       `db:"retry_count" json:"retry_count"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Ledger is the durable processing status table.
type Ledger interface {
	// MarkStart upserts the entry as PROCESSING under the given agent.
	MarkStart(ctx context.Context, docHash, investigationID, agentID string) error

	// MarkSuccess upserts the entry as DONE.
	MarkSuccess(ctx context.Context, docHash, investigationID, agentID string) error

	// MarkFailed upserts the entry as FAILED and increments retry_count.
	MarkFailed(ctx context.Context, docHash, investigationID, agentID string) error

	// GetStatus returns the entry for a key, or ErrNotFound.
	GetStatus(ctx context.Context, docHash, investigationID string) (*Entry, error)

	// ListPending returns PENDING and FAILED-under-retry-budget entries
	// for one investigation.
	ListPending(ctx context.Context, investigationID string, maxRetries int) ([]Entry, error)

	Close() error
}
