package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jBackend implements Backend against Neo4j with parameterized Cypher.
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jBackend connects and verifies connectivity before returning.
func NewNeo4jBackend(ctx context.Context, uri, username, password, database string) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j: %w", err)
	}
	return &Neo4jBackend{driver: driver, database: database}, nil
}

// MergeEntity upserts an entity node and appends the document reference.
func (n *Neo4jBackend) MergeEntity(ctx context.Context, entityID, text, entityType, docID string, confidence float64, normalizedText string) error {
	query := `
		MERGE (e:Entity {id: $id})
		SET e.text = $text,
		    e.type = $type,
		    e.confidence = $confidence,
		    e.normalized_text = $normalized_text
		WITH e
		WHERE NOT $doc_id IN coalesce(e.documents, [])
		SET e.documents = coalesce(e.documents, []) + $doc_id`
	_, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		map[string]any{
			"id":              entityID,
			"text":            text,
			"type":            entityType,
			"confidence":      confidence,
			"normalized_text": normalizedText,
			"doc_id":          docID,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return fmt.Errorf("merge entity %s: %w", entityID, err)
	}
	return nil
}

// MergeRelatedEdge upserts a typed edge between two entities.
func (n *Neo4jBackend) MergeRelatedEdge(ctx context.Context, srcID, tgtID, relType string, weight float64, evidenceDocs []string) error {
	query := `
		MATCH (a:Entity {id: $src}), (b:Entity {id: $tgt})
		MERGE (a)-[r:RELATED {type: $rel_type}]->(b)
		SET r.weight = $weight,
		    r.evidence = $evidence`
	_, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		map[string]any{
			"src":      srcID,
			"tgt":      tgtID,
			"rel_type": relType,
			"weight":   weight,
			"evidence": evidenceDocs,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return fmt.Errorf("merge edge %s->%s: %w", srcID, tgtID, err)
	}
	return nil
}

// Stats reads node and edge counts plus the entity type histogram.
func (n *Neo4jBackend) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{TypeHistogram: make(map[string]int)}

	result, err := neo4j.ExecuteQuery(ctx, n.driver,
		`MATCH (e:Entity)
		 OPTIONAL MATCH (:Entity)-[r:RELATED]->(:Entity)
		 RETURN count(DISTINCT e) AS nodes, count(DISTINCT r) AS edges`,
		nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return stats, fmt.Errorf("graph stats: %w", err)
	}
	if len(result.Records) > 0 {
		if v, ok := result.Records[0].Get("nodes"); ok {
			stats.NodeCount = int(asInt64(v))
		}
		if v, ok := result.Records[0].Get("edges"); ok {
			stats.EdgeCount = int(asInt64(v))
		}
	}

	hist, err := neo4j.ExecuteQuery(ctx, n.driver,
		`MATCH (e:Entity) RETURN e.type AS type, count(e) AS count`,
		nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return stats, fmt.Errorf("type histogram: %w", err)
	}
	for _, rec := range hist.Records {
		t, _ := rec.Get("type")
		c, _ := rec.Get("count")
		if name, ok := t.(string); ok {
			stats.TypeHistogram[name] = int(asInt64(c))
		}
	}
	return stats, nil
}

// PageRank streams GDS PageRank scores. Requires the GDS plugin; callers
// treat an error as "no centrality available".
func (n *Neo4jBackend) PageRank(ctx context.Context) (map[string]float64, error) {
	return n.streamScores(ctx, `
		CALL gds.pageRank.stream({
			nodeQuery: 'MATCH (e:Entity) RETURN id(e) AS id',
			relationshipQuery: 'MATCH (a:Entity)-[r:RELATED]->(b:Entity) RETURN id(a) AS source, id(b) AS target'
		})
		YIELD nodeId, score
		RETURN gds.util.asNode(nodeId).id AS entity_id, score`)
}

// Betweenness streams GDS betweenness scores.
func (n *Neo4jBackend) Betweenness(ctx context.Context) (map[string]float64, error) {
	return n.streamScores(ctx, `
		CALL gds.betweenness.stream({
			nodeQuery: 'MATCH (e:Entity) RETURN id(e) AS id',
			relationshipQuery: 'MATCH (a:Entity)-[r:RELATED]->(b:Entity) RETURN id(a) AS source, id(b) AS target'
		})
		YIELD nodeId, score
		RETURN gds.util.asNode(nodeId).id AS entity_id, score`)
}

// Louvain streams GDS community assignments grouped by community id.
func (n *Neo4jBackend) Louvain(ctx context.Context) (map[string][]string, error) {
	result, err := neo4j.ExecuteQuery(ctx, n.driver, `
		CALL gds.louvain.stream({
			nodeQuery: 'MATCH (e:Entity) RETURN id(e) AS id',
			relationshipQuery: 'MATCH (a:Entity)-[r:RELATED]->(b:Entity) RETURN id(a) AS source, id(b) AS target'
		})
		YIELD nodeId, communityId
		RETURN gds.util.asNode(nodeId).id AS entity_id, communityId`,
		nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return nil, fmt.Errorf("louvain: %w", err)
	}

	communities := make(map[string][]string)
	for _, rec := range result.Records {
		id, _ := rec.Get("entity_id")
		cid, _ := rec.Get("communityId")
		entityID, ok := id.(string)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%d", asInt64(cid))
		communities[key] = append(communities[key], entityID)
	}
	return communities, nil
}

// Neighbors returns up to limitPerID adjacent entities for each id.
func (n *Neo4jBackend) Neighbors(ctx context.Context, ids []string, limitPerID int) ([]Neighbor, error) {
	var out []Neighbor
	for _, id := range ids {
		result, err := neo4j.ExecuteQuery(ctx, n.driver, `
			MATCH (e:Entity {id: $id})-[:RELATED]-(nb:Entity)
			RETURN nb.id AS id, nb.text AS text
			LIMIT $limit`,
			map[string]any{"id": id, "limit": int64(limitPerID)},
			neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(n.database))
		if err != nil {
			return nil, fmt.Errorf("neighbors of %s: %w", id, err)
		}
		for _, rec := range result.Records {
			nid, _ := rec.Get("id")
			ntext, _ := rec.Get("text")
			nb := Neighbor{}
			if s, ok := nid.(string); ok {
				nb.ID = s
			}
			if s, ok := ntext.(string); ok {
				nb.Text = s
			}
			out = append(out, nb)
		}
	}
	return out, nil
}

// Close closes the driver.
func (n *Neo4jBackend) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}

func (n *Neo4jBackend) streamScores(ctx context.Context, query string) (map[string]float64, error) {
	result, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(n.database))
	if err != nil {
		return nil, fmt.Errorf("score stream: %w", err)
	}
	scores := make(map[string]float64)
	for _, rec := range result.Records {
		id, _ := rec.Get("entity_id")
		score, _ := rec.Get("score")
		entityID, ok := id.(string)
		if !ok {
			continue
		}
		if f, ok := score.(float64); ok {
			scores[entityID] = f
		}
	}
	return scores, nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
