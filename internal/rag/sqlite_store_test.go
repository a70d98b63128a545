package rag

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteVectorStore {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	s, err := NewSQLiteVectorStore(filepath.Join(t.TempDir(), "vectors.db"), "docs", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreQueryOrdering(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "near", "texto próximo", []float32{1, 0}, nil))
	require.NoError(t, s.Upsert(ctx, "far", "texto distante", []float32{0, 1}, nil))

	results, err := s.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.Equal(t, "far", results[1].ID)

	// limit applies after ranking
	top, err := s.Query(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "near", top[0].ID)
}

func TestSQLiteStoreMetadataFilter(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "a:0", "chunk a", []float32{1, 0}, map[string]string{"document_id": "doc-a"}))
	require.NoError(t, s.Upsert(ctx, "b:0", "chunk b", []float32{1, 0}, map[string]string{"document_id": "doc-b"}))

	results, err := s.Query(ctx, []float32{1, 0}, 10, map[string]string{"document_id": "doc-b"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b:0", results[0].ID)
	assert.Equal(t, "doc-b", results[0].Metadata["document_id"])
}

func TestSQLiteStoreUpsertReplaces(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "a:0", "antigo", []float32{1, 0}, nil))
	require.NoError(t, s.Upsert(ctx, "a:0", "novo", []float32{1, 0}, nil))

	results, err := s.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "novo", results[0].Document)
}
