package graph

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	apperrors "github.com/sherlockintel/sherlock/internal/errors"
	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "build_knowledge_graph"

const (
	maxTopEntities = 20
	maxBridges     = 15
)

// Builder is the graph construction stage.
type Builder struct {
	backend Backend
	logger  *logrus.Logger
}

// NewBuilder creates the stage with the given graph backend.
func NewBuilder(backend Backend, logger *logrus.Logger) *Builder {
	return &Builder{backend: backend, logger: logger}
}

// Run merges every entity and relationship into the graph store and reads
// back statistics, centrality, communities, and betweenness. Failed
// analytics fall back to empty maps with a warning.
func (b *Builder) Run(ctx context.Context, state *models.InvestigationState) error {
	meta := &models.GraphMetadata{}

	for i := range state.Entities {
		e := &state.Entities[i]
		docs := append([]string(nil), e.Documents...)
		sort.Strings(docs)
		docID := ""
		if len(docs) > 0 {
			docID = docs[0]
		}
		if err := b.backend.MergeEntity(ctx, e.ID, e.Text, string(e.Type), docID, e.Confidence, e.NormalizedText); err != nil {
			return apperrors.GraphError(err, "merge entity "+e.ID)
		}
	}
	for i := range state.Relationships {
		r := &state.Relationships[i]
		if err := b.backend.MergeRelatedEdge(ctx, r.SourceEntityID, r.TargetEntityID, r.Type, r.Weight, r.Evidence); err != nil {
			return apperrors.GraphError(err, "merge edge "+r.SourceEntityID+"->"+r.TargetEntityID)
		}
	}

	stats, err := b.backend.Stats(ctx)
	if err != nil {
		meta.Warnings = append(meta.Warnings, "graph stats unavailable: "+err.Error())
	} else {
		meta.NodeCount = stats.NodeCount
		meta.EdgeCount = stats.EdgeCount
		meta.TypeHistogram = stats.TypeHistogram
	}

	meta.Centrality = b.scores(ctx, meta, "centrality", b.backend.PageRank)
	meta.Betweenness = b.scores(ctx, meta, "betweenness", b.backend.Betweenness)

	communities, err := b.backend.Louvain(ctx)
	if err != nil {
		b.logger.WithError(err).Warn("Community detection unavailable")
		meta.Warnings = append(meta.Warnings, "communities unavailable: "+err.Error())
		communities = map[string][]string{}
	}
	meta.Communities = communities

	meta.TopEntities = topEntities(state, meta.Centrality, communities)
	meta.Bridges = topBridges(meta.Betweenness)

	state.GraphMetadata = meta

	b.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"nodes":            meta.NodeCount,
		"edges":            meta.EdgeCount,
		"warnings":         len(meta.Warnings),
	}).Info("Knowledge graph built")

	return nil
}

func (b *Builder) scores(ctx context.Context, meta *models.GraphMetadata, name string, fn func(context.Context) (map[string]float64, error)) map[string]float64 {
	scores, err := fn(ctx)
	if err != nil {
		b.logger.WithError(err).Warnf("Graph %s unavailable", name)
		meta.Warnings = append(meta.Warnings, name+" unavailable: "+err.Error())
		return map[string]float64{}
	}
	return scores
}

// topEntities ranks by centrality and tags each entry with its community.
func topEntities(state *models.InvestigationState, centrality map[string]float64, communities map[string][]string) []models.TopEntity {
	communityOf := make(map[string]string)
	for cid, members := range communities {
		for _, id := range members {
			communityOf[id] = cid
		}
	}

	ids := make([]string, 0, len(centrality))
	for id := range centrality {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if centrality[ids[i]] != centrality[ids[j]] {
			return centrality[ids[i]] > centrality[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > maxTopEntities {
		ids = ids[:maxTopEntities]
	}

	texts := make(map[string]string, len(state.Entities))
	for i := range state.Entities {
		texts[state.Entities[i].ID] = state.Entities[i].Text
	}

	out := make([]models.TopEntity, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.TopEntity{
			EntityID:   id,
			Score:      centrality[id],
			Community:  communityOf[id],
			EntityText: texts[id],
		})
	}
	return out
}

func topBridges(betweenness map[string]float64) []models.Bridge {
	ids := make([]string, 0, len(betweenness))
	for id := range betweenness {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if betweenness[ids[i]] != betweenness[ids[j]] {
			return betweenness[ids[i]] > betweenness[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > maxBridges {
		ids = ids[:maxBridges]
	}

	out := make([]models.Bridge, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Bridge{EntityID: id, Score: betweenness[id]})
	}
	return out
}
