package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PostgresLedger is the shared-deployment ledger backend.
type PostgresLedger struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresLedger connects to Postgres and ensures the ledger table.
func NewPostgresLedger(dsn string, logger *logrus.Logger) (*PostgresLedger, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	l := &PostgresLedger{db: db, logger: logger}
	if err := l.initSchema(); err != nil {
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return l, nil
}

func (l *PostgresLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS doc_processing_ledger (
		doc_hash TEXT NOT NULL,
		investigation_id TEXT NOT NULL,
		status TEXT NOT NULL,
		last_agent_id TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (doc_hash, investigation_id)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_investigation
		ON doc_processing_ledger(investigation_id, status);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *PostgresLedger) upsert(ctx context.Context, docHash, investigationID, agentID, status string, bumpRetry bool) error {
	retryExpr := "doc_processing_ledger.retry_count"
	initial := 0
	if bumpRetry {
		retryExpr = "doc_processing_ledger.retry_count + 1"
		initial = 1
	}
	query := fmt.Sprintf(`
		INSERT INTO doc_processing_ledger
			(doc_hash, investigation_id, status, last_agent_id, retry_count, updated_at)
		VALUES ($1, $2, $3, $4, %d, $5)
		ON CONFLICT (doc_hash, investigation_id) DO UPDATE SET
			status = EXCLUDED.status,
			last_agent_id = EXCLUDED.last_agent_id,
			retry_count = %s,
			updated_at = EXCLUDED.updated_at
	`, initial, retryExpr)

	_, err := l.db.ExecContext(ctx, query, docHash, investigationID, status, agentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ledger upsert: %w", err)
	}
	return nil
}

// MarkStart marks a document PROCESSING.
func (l *PostgresLedger) MarkStart(ctx context.Context, docHash, investigationID, agentID string) error {
	return l.upsert(ctx, docHash, investigationID, agentID, StatusProcessing, false)
}

// MarkSuccess marks a document DONE.
func (l *PostgresLedger) MarkSuccess(ctx context.Context, docHash, investigationID, agentID string) error {
	return l.upsert(ctx, docHash, investigationID, agentID, StatusDone, false)
}

// MarkFailed marks a document FAILED and increments its retry count.
func (l *PostgresLedger) MarkFailed(ctx context.Context, docHash, investigationID, agentID string) error {
	return l.upsert(ctx, docHash, investigationID, agentID, StatusFailed, true)
}

// GetStatus returns the ledger entry for one document in one investigation.
func (l *PostgresLedger) GetStatus(ctx context.Context, docHash, investigationID string) (*Entry, error) {
	var entry Entry
	query := `SELECT * FROM doc_processing_ledger WHERE doc_hash = $1 AND investigation_id = $2`
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
func (l *PostgresLedger) ListPending(ctx context.Context, investigationID string, maxRetries int) ([]Entry, error) {
	var entries []Entry
	query := `
		SELECT * FROM doc_processing_ledger
		WHERE investigation_id = $1
		  AND (status = $2 OR (status = $3 AND retry_count < $4))
		ORDER BY updated_at
	`
	err := l.db.SelectContext(ctx, &entries, query, investigationID, StatusPending, StatusFailed, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (l *PostgresLedger) Close() error {
	return l.db.Close()
}
