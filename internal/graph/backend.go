// Package graph externalizes entities and relationships to a graph store
// and reads back structure metrics. The Neo4j backend is the live adapter;
// the in-memory backend keeps the pipeline functional without a database.
package graph

import "context"

// Stats is the aggregate view of the stored graph.
type Stats struct {
	NodeCount     int
	EdgeCount     int
	TypeHistogram map[string]int
}

// Neighbor is one adjacent entity returned by a neighborhood query.
type Neighbor struct {
	ID   string
	Text string
}

// Backend is the graph store adapter. Merge operations are idempotent;
// analytics that fail should be surfaced as errors so the caller can fall
// back to empty maps and a warning instead of aborting the stage.
type Backend interface {
	MergeEntity(ctx context.Context, entityID, text, entityType, docID string, confidence float64, normalizedText string) error
	MergeRelatedEdge(ctx context.Context, srcID, tgtID, relType string, weight float64, evidenceDocs []string) error
	Stats(ctx context.Context) (Stats, error)
	PageRank(ctx context.Context) (map[string]float64, error)
	Louvain(ctx context.Context) (map[string][]string, error)
	Betweenness(ctx context.Context) (map[string]float64, error)
	Neighbors(ctx context.Context, ids []string, limitPerID int) ([]Neighbor, error)
	Close(ctx context.Context) error
}
