package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteLedger is the default single-host ledger backend.
type SQLiteLedger struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteLedger opens (or creates) the ledger database at path.
func NewSQLiteLedger(path string, logger *logrus.Logger) (*SQLiteLedger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// WAL so concurrent investigations can read while one writes.
	db.Exec("PRAGMA journal_mode = WAL")
	db.Exec("PRAGMA busy_timeout = 5000")

	l := &SQLiteLedger{db: db, logger: logger}
	if err := l.initSchema(); err != nil {
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS doc_processing_ledger (
		doc_hash TEXT NOT NULL,
		investigation_id TEXT NOT NULL,
		status TEXT NOT NULL,
		last_agent_id TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (doc_hash, investigation_id)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_investigation
		ON doc_processing_ledger(investigation_id, status);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLiteLedger) upsert(ctx context.Context, docHash, investigationID, agentID, status string, bumpRetry bool) error {
	retryExpr := "retry_count"
	if bumpRetry {
		retryExpr = "retry_count + 1"
	}
	query := fmt.Sprintf(`
		INSERT INTO doc_processing_ledger
			(doc_hash, investigation_id, status, last_agent_id, retry_count, updated_at)
		VALUES (?, ?, ?, ?, %d, ?)
		ON CONFLICT (doc_hash, investigation_id) DO UPDATE SET
			status = excluded.status,
			last_agent_id = excluded.last_agent_id,
			retry_count = %s,
			updated_at = excluded.updated_at
	`, initialRetry(bumpRetry), retryExpr)

	_, err := l.db.ExecContext(ctx, query, docHash, investigationID, status, agentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ledger upsert: %w", err)
	}
	return nil
}

func initialRetry(failed bool) int {
	if failed {
		return 1
	}
	return 0
}

// MarkStart marks a document PROCESSING.
func (l *SQLiteLedger) MarkStart(ctx context.Context, docHash, investigationID, agentID string) error {
	return l.upsert(ctx, docHash, investigationID, agentID, StatusProcessing, false)
}

// MarkSuccess marks a document DONE.
func (l *SQLiteLedger) MarkSuccess(ctx context.Context, docHash, investigationID, agentID string) error {
	return l.upsert(ctx, docHash, investigationID, agentID, StatusDone, false)
}

// MarkFailed marks a document FAILED and increments its retry count.
func (l *SQLiteLedger) MarkFailed(ctx context.Context, docHash, investigationID, agentID string) error {
	return l.upsert(ctx, docHash, investigationID, agentID, StatusFailed, true)
}

// GetStatus returns the ledger entry for one document in one investigation.
func (l *SQLiteLedger) GetStatus(ctx context.Context, docHash, investigationID string) (*Entry, error) {
	var entry Entry
	query := `SELECT * FROM doc_processing_ledger WHERE doc_hash = ? AND investigation_id = ?`
	err := l.db.GetContext(ctx, &entry, query, docHash, investigationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ledger status: %w", err)
	}
	return &entry, nil
}

// ListPending returns entries eligible for (re)processing.
func (l *SQLiteLedger) ListPending(ctx context.Context, investigationID string, maxRetries int) ([]Entry, error) {
	var entries []Entry
	query := `
		SELECT * FROM doc_processing_ledger
		WHERE investigation_id = ?
		  AND (status = ? OR (status = ? AND retry_count < ?))
		ORDER BY updated_at
	`
	err := l.db.SelectContext(ctx, &entries, query, investigationID, StatusPending, StatusFailed, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
