// Package patterns mines the entity graph, the timeline, and the raw text
// for recurring structures and statistical outliers.
package patterns

import (
	"sort"

	"github.com/sherlockintel/sherlock/internal/models"
)

// memGraph is the in-process adjacency view of entities and relationships.
type memGraph struct {
	nodes     []string
	labels    map[string]string
	adjacency map[string]map[string]float64
}

func buildGraph(entities []models.Entity, relationships []models.Relationship) *memGraph {
	g := &memGraph{
		labels:    make(map[string]string),
		adjacency: make(map[string]map[string]float64),
	}
	for i := range entities {
		id := entities[i].ID
		g.nodes = append(g.nodes, id)
		g.labels[id] = entities[i].Text
		g.adjacency[id] = make(map[string]float64)
	}
	sort.Strings(g.nodes)

	for i := range relationships {
		src, tgt := relationships[i].SourceEntityID, relationships[i].TargetEntityID
		if g.adjacency[src] == nil || g.adjacency[tgt] == nil {
			continue
		}
		w := relationships[i].Weight
		if w <= 0 {
			w = 1
		}
		g.adjacency[src][tgt] += w
		g.adjacency[tgt][src] += w
	}
	return g
}

func (g *memGraph) degree(id string) int {
	return len(g.adjacency[id])
}

// communities runs label propagation until stable, with deterministic node
// order so repeated runs agree. Labels start as node ids; each pass assigns
// every node the label with the highest incident weight among its neighbors.
func (g *memGraph) communities() map[string][]string {
	labels := make(map[string]string, len(g.nodes))
	for _, n := range g.nodes {
		labels[n] = n
	}

	for iter := 0; iter < 20; iter++ {
		changed := false
		for _, n := range g.nodes {
			weights := make(map[string]float64)
			for nb, w := range g.adjacency[n] {
				weights[labels[nb]] += w
			}
			if len(weights) == 0 {
				continue
			}
			best := labels[n]
			bestWeight := weights[best]
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
			if best != labels[n] {
				labels[n] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	groups := make(map[string][]string)
	for _, n := range g.nodes {
		groups[labels[n]] = append(groups[labels[n]], n)
	}
	return groups
}
