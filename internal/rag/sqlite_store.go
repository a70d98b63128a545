package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteVectorStore persists chunks and embeddings in SQLite. Embeddings
// are little-endian float32 blobs; distance is computed in-process, which
// is fine at investigation scale (thousands of chunks, not millions).
type SQLiteVectorStore struct {
	db         *sqlx.DB
	collection string
	logger     *logrus.Logger
}

// NewSQLiteVectorStore opens (or creates) the store at path for one
// collection.
func NewSQLiteVectorStore(path, collection string, logger *logrus.Logger) (*SQLiteVectorStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create vector store directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	db.Exec("PRAGMA journal_mode = WAL")

	schema := `
	CREATE TABLE IF NOT EXISTS vectors (
		collection TEXT NOT NULL,
		chunk_id TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		metadata TEXT,
		PRIMARY KEY (collection, chunk_id)
	);

	CREATE INDEX IF NOT EXISTS idx_vectors_collection ON vectors(collection);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init vector schema: %w", err)
	}

	return &SQLiteVectorStore{db: db, collection: collection, logger: logger}, nil
}

// Upsert stores or replaces a chunk.
func (s *SQLiteVectorStore) Upsert(ctx context.Context, chunkID, text string, embedding []float32, metadata map[string]string) error {
	metaJSON, _ := json.Marshal(metadata)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO vectors (collection, chunk_id, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, s.collection, chunkID, text, EncodeEmbedding(embedding), string(metaJSON))
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// Query scans the collection and returns the n nearest chunks.
func (s *SQLiteVectorStore) Query(ctx context.Context, embedding []float32, n int, filter map[string]string) ([]QueryResult, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT chunk_id, content, embedding, metadata FROM vectors WHERE collection = ?`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			chunkID, content, metaJSON string
			blob                       []byte
		)
		if err := rows.Scan(&chunkID, &content, &blob, &metaJSON); err != nil {
			continue
		}
		metadata := map[string]string{}
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &metadata)
		}
		if !matchesFilter(metadata, filter) {
			continue
		}
		results = append(results, QueryResult{
			ID:       chunkID,
			Document: content,
			Metadata: metadata,
			Distance: CosineDistance(embedding, DecodeEmbedding(blob)),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// Close closes the database.
func (s *SQLiteVectorStore) Close() error {
	return s.db.Close()
}
