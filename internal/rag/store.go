package rag

import (
	"context"
	"encoding/binary"
	"math"
	"sort"
	"sync"
)

// QueryResult is one vector search hit. Distance is cosine distance in
// [0, 2]; callers convert to similarity with max(0, 1 - distance).
type QueryResult struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// VectorStore indexes text chunks by embedding, scoped by the doc_id
// metadata key.
type VectorStore interface {
	Upsert(ctx context.Context, chunkID, text string, embedding []float32, metadata map[string]string) error
	Query(ctx context.Context, embedding []float32, n int, filter map[string]string) ([]QueryResult, error)
	Close() error
}

// MemoryVectorStore is the in-process store used when no database path is
// configured, and by tests.
type MemoryVectorStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	text      string
	embedding []float32
	metadata  map[string]string
}

// NewMemoryVectorStore creates an empty in-memory store.
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{entries: make(map[string]memEntry)}
}

// Upsert stores or replaces a chunk.
func (s *MemoryVectorStore) Upsert(_ context.Context, chunkID, text string, embedding []float32, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[chunkID] = memEntry{text: text, embedding: embedding, metadata: metadata}
	return nil
}

// Query returns the n nearest chunks by cosine distance.
func (s *MemoryVectorStore) Query(_ context.Context, embedding []float32, n int, filter map[string]string) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []QueryResult
	for id, e := range s.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		results = append(results, QueryResult{
			ID:       id,
			Document: e.text,
			Metadata: e.metadata,
			Distance: CosineDistance(embedding, e.embedding),
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

// Close is a no-op for the in-memory store.
func (s *MemoryVectorStore) Close() error { return nil }

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// CosineDistance returns 1 - cosine similarity. Zero vectors are maximally
// distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// EncodeEmbedding packs a float32 vector as little-endian bytes for blob
// storage.
func EncodeEmbedding(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
