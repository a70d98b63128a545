package graph

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryBackend is the in-process graph store used when no database is
// configured. Analytics are computed directly on the adjacency map.
type MemoryBackend struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
	edges map[[2]string]*memEdge
}

type memNode struct {
	text       string
	entityType string
	documents  map[string]bool
}

type memEdge struct {
	relType  string
	weight   float64
	evidence []string
}

// NewMemoryBackend creates an empty in-memory graph.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		nodes: make(map[string]*memNode),
		edges: make(map[[2]string]*memEdge),
	}
}

func (m *MemoryBackend) MergeEntity(_ context.Context, entityID, text, entityType, docID string, _ float64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[entityID]
	if !ok {
		node = &memNode{documents: make(map[string]bool)}
		m.nodes[entityID] = node
	}
	node.text = text
	node.entityType = entityType
	if docID != "" {
		node.documents[docID] = true
	}
	return nil
}

func (m *MemoryBackend) MergeRelatedEdge(_ context.Context, srcID, tgtID, relType string, weight float64, evidenceDocs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{srcID, tgtID}
	m.edges[key] = &memEdge{relType: relType, weight: weight, evidence: evidenceDocs}
	return nil
}

func (m *MemoryBackend) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{
		NodeCount:     len(m.nodes),
		EdgeCount:     len(m.edges),
		TypeHistogram: make(map[string]int),
	}
	for _, n := range m.nodes {
		stats.TypeHistogram[n.entityType]++
	}
	return stats, nil
}

// PageRank runs power iteration on the undirected adjacency.
func (m *MemoryBackend) PageRank(_ context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.sortedIDs()
	n := len(ids)
	if n == 0 {
		return map[string]float64{}, nil
	}
	adj := m.adjacency()

	const damping = 0.85
	const iterations = 30

	rank := make(map[string]float64, n)
	for _, id := range ids {
		rank[id] = 1.0 / float64(n)
	}
	for iter := 0; iter < iterations; iter++ {
		next := make(map[string]float64, n)
		for _, id := range ids {
			next[id] = (1 - damping) / float64(n)
		}
		for _, id := range ids {
			neighbors := adj[id]
			if len(neighbors) == 0 {
				continue
			}
			share := damping * rank[id] / float64(len(neighbors))
			for nb := range neighbors {
				next[nb] += share
			}
		}
		rank = next
	}
	return rank, nil
}

// Louvain approximates community detection with deterministic label
// propagation, which matches the modularity clusters on graphs of this
// size closely enough for reporting.
func (m *MemoryBackend) Louvain(_ context.Context) (map[string][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.sortedIDs()
	adj := m.adjacency()

	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		labels[id] = id
	}
	for iter := 0; iter < 20; iter++ {
		changed := false
		for _, id := range ids {
			weights := make(map[string]float64)
			for nb, w := range adj[id] {
				weights[labels[nb]] += w
			}
			if len(weights) == 0 {
				continue
			}
			best, bestWeight := labels[id], weights[labels[id]]
			candidates := make([]string, 0, len(weights))
			for l := range weights {
				candidates = append(candidates, l)
			}
			sort.Strings(candidates)
			for _, l := range candidates {
				if weights[l] > bestWeight {
					best, bestWeight = l, weights[l]
				}
			}
			if best != labels[id] {
				labels[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	communities := make(map[string][]string)
	for _, id := range ids {
		communities[labels[id]] = append(communities[labels[id]], id)
	}
	for _, members := range communities {
		sort.Strings(members)
	}
	return communities, nil
}

// Betweenness runs Brandes' algorithm on the unweighted undirected graph.
func (m *MemoryBackend) Betweenness(_ context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.sortedIDs()
	adj := m.adjacency()

	scores := make(map[string]float64, len(ids))
	for _, id := range ids {
		scores[id] = 0
	}

	for _, source := range ids {
		var stack []string
		preds := make(map[string][]string)
		sigma := map[string]float64{source: 1}
		dist := map[string]int{source: 0}
		queue := []string{source}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			neighbors := make([]string, 0, len(adj[v]))
			for nb := range adj[v] {
				neighbors = append(neighbors, nb)
			}
			sort.Strings(neighbors)
			for _, w := range neighbors {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := make(map[string]float64)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != source {
				scores[w] += delta[w]
			}
		}
	}

	// undirected graphs count each path twice
	for id := range scores {
		scores[id] = math.Round(scores[id]/2*1000) / 1000
	}
	return scores, nil
}

func (m *MemoryBackend) Neighbors(_ context.Context, ids []string, limitPerID int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	adj := m.adjacency()
	var out []Neighbor
	for _, id := range ids {
		neighbors := make([]string, 0, len(adj[id]))
		for nb := range adj[id] {
			neighbors = append(neighbors, nb)
		}
		sort.Strings(neighbors)
		if limitPerID > 0 && len(neighbors) > limitPerID {
			neighbors = neighbors[:limitPerID]
		}
		for _, nb := range neighbors {
			text := ""
			if node, ok := m.nodes[nb]; ok {
				text = node.text
			}
			out = append(out, Neighbor{ID: nb, Text: text})
		}
	}
	return out, nil
}

func (m *MemoryBackend) Close(context.Context) error { return nil }

func (m *MemoryBackend) sortedIDs() []string {
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryBackend) adjacency() map[string]map[string]float64 {
	adj := make(map[string]map[string]float64, len(m.nodes))
	for id := range m.nodes {
		adj[id] = make(map[string]float64)
	}
	for key, e := range m.edges {
		src, tgt := key[0], key[1]
		if adj[src] == nil || adj[tgt] == nil {
			continue
		}
		w := e.weight
		if w <= 0 {
			w = 1
		}
		adj[src][tgt] += w
		adj[tgt][src] += w
	}
	return adj
}

var _ Backend = (*MemoryBackend)(nil)
var _ Backend = (*Neo4jBackend)(nil)
