package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	l, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerLifecycle(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.MarkStart(ctx, "hash-1", "inv-1", "ingestion"))

	entry, err := l.GetStatus(ctx, "hash-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, entry.Status)
	assert.Equal(t, "ingestion", entry.LastAgentID)
	assert.Zero(t, entry.RetryCount)

	require.NoError(t, l.MarkSuccess(ctx, "hash-1", "inv-1", "ingestion"))
	entry, err = l.GetStatus(ctx, "hash-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, entry.Status)
}

func TestLedgerNotFound(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.GetStatus(context.Background(), "missing", "inv-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerRetryCount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.MarkFailed(ctx, "hash-1", "inv-1", "ingestion"))
	require.NoError(t, l.MarkFailed(ctx, "hash-1", "inv-1", "ingestion"))

	entry, err := l.GetStatus(ctx, "hash-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, entry.Status)
	assert.Equal(t, 2, entry.RetryCount)

	// a success resets the status but keeps the count
	require.NoError(t, l.MarkSuccess(ctx, "hash-1", "inv-1", "ingestion"))
	entry, err = l.GetStatus(ctx, "hash-1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, entry.Status)
	assert.Equal(t, 2, entry.RetryCount)
}

func TestLedgerKeyedPerInvestigation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.MarkSuccess(ctx, "hash-1", "inv-1", "ingestion"))
	require.NoError(t, l.MarkStart(ctx, "hash-1", "inv-2", "ingestion"))

	a, err := l.GetStatus(ctx, "hash-1", "inv-1")
	require.NoError(t, err)
	b, err := l.GetStatus(ctx, "hash-1", "inv-2")
	require.NoError(t, err)

	assert.Equal(t, StatusDone, a.Status)
	assert.Equal(t, StatusProcessing, b.Status)
}

func TestLedgerListPending(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.MarkSuccess(ctx, "done", "inv-1", "ingestion"))
	require.NoError(t, l.MarkFailed(ctx, "retryable", "inv-1", "ingestion"))
	require.NoError(t, l.MarkFailed(ctx, "exhausted", "inv-1", "ingestion"))
	require.NoError(t, l.MarkFailed(ctx, "exhausted", "inv-1", "ingestion"))
	require.NoError(t, l.MarkFailed(ctx, "exhausted", "inv-1", "ingestion"))
	require.NoError(t, l.MarkFailed(ctx, "other", "inv-2", "ingestion"))

	entries, err := l.ListPending(ctx, "inv-1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "retryable", entries[0].DocHash)
}
