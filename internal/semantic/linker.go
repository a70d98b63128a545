package semantic

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sherlockintel/sherlock/internal/config"
	apperrors "github.com/sherlockintel/sherlock/internal/errors"
	"github.com/sherlockintel/sherlock/internal/models"
	"github.com/sherlockintel/sherlock/internal/rag"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "semantic_linker"

// linkWindow bounds per-document text fed to the embedder.
const linkWindow = 2000

// Linker is the semantic linking stage.
type Linker struct {
	cfg      *config.Config
	embedder rag.Embedder
	store    rag.VectorStore
	logger   *logrus.Logger
}

// NewLinker creates the stage with the given embedding and vector backends.
func NewLinker(cfg *config.Config, embedder rag.Embedder, store rag.VectorStore, logger *logrus.Logger) *Linker {
	return &Linker{cfg: cfg, embedder: embedder, store: store, logger: logger}
}

// Run indexes every document, links similar pairs, and derives
// contradictions and narrative threads from the links.
func (l *Linker) Run(ctx context.Context, state *models.InvestigationState) error {
	docIDs := make([]string, 0, len(state.ExtractedText))
	for id, text := range state.ExtractedText {
		if text != "" {
			docIDs = append(docIDs, id)
		}
	}
	sort.Strings(docIDs)

	if len(docIDs) < 2 {
		l.logger.WithField("documents", len(docIDs)).Info("Semantic linking skipped, nothing to pair")
		return nil
	}

	if err := l.index(ctx, state, docIDs); err != nil {
		return err
	}

	links, err := l.link(ctx, state, docIDs)
	if err != nil {
		return err
	}
	state.SemanticLinks = append(state.SemanticLinks, links...)

	for _, link := range links {
		state.Contradictions = append(state.Contradictions,
			DetectContradictions(link, state.ExtractedText[link.DocID1], state.ExtractedText[link.DocID2])...)
	}
	state.NarrativeThreads = append(state.NarrativeThreads,
		BuildThreads(state.SemanticLinks, state.ExtractedText)...)

	l.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"links":            len(links),
		"contradictions":   len(state.Contradictions),
		"threads":          len(state.NarrativeThreads),
	}).Info("Semantic linking completed")

	return nil
}

func (l *Linker) index(ctx context.Context, state *models.InvestigationState, docIDs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxWorkers())

	var mu sync.Mutex
	for _, docID := range docIDs {
		docID := docID
		g.Go(func() error {
			text := capText(state.ExtractedText[docID])
			chunks := ChunkText(text)
			if len(chunks) == 0 {
				return nil
			}
			vectors, err := l.embedder.Embed(gctx, chunks)
			if err != nil {
				return apperrors.VectorError(err, "embed document "+docID)
			}
			mu.Lock()
			defer mu.Unlock()
			for i, chunk := range chunks {
				id := fmt.Sprintf("%s:%d", docID, i)
				if err := l.store.Upsert(gctx, id, chunk, vectors[i], map[string]string{"doc_id": docID}); err != nil {
					return apperrors.VectorError(err, "upsert chunk "+id)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (l *Linker) link(ctx context.Context, state *models.InvestigationState, docIDs []string) ([]models.SemanticLink, error) {
	topK := l.cfg.Vector.TopK
	if topK <= 0 {
		topK = 10
	}

	type candidate struct {
		embedding  float64
		similarity float64
		shared     []string
	}
	best := make(map[[2]string]*candidate)

	for _, docID := range docIDs {
		vectors, err := l.embedder.Embed(ctx, []string{capText(state.ExtractedText[docID])})
		if err != nil {
			return nil, apperrors.VectorError(err, "embed query for "+docID)
		}
		results, err := l.store.Query(ctx, vectors[0], topK, nil)
		if err != nil {
			return nil, apperrors.VectorError(err, "query store for "+docID)
		}

		for _, r := range results {
			otherID := r.Metadata["doc_id"]
			if otherID == "" || otherID == docID {
				continue
			}
			similarity := 1 - r.Distance
			if similarity <= 0 {
				continue
			}
			a, b := models.CanonicalPair(docID, otherID)
			key := [2]string{a, b}
			if c := best[key]; c == nil || similarity > c.embedding {
				best[key] = &candidate{embedding: similarity}
			}
		}
	}

	for key, c := range best {
		c.shared = sharedEntities(state.Entities, key[0], key[1])
		c.similarity = corroborated(c.embedding, len(c.shared))
	}

	keys := make([][2]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := best[keys[i]].similarity, best[keys[j]].similarity
		if si != sj {
			return si > sj
		}
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	perDoc := make(map[string]int)
	var links []models.SemanticLink
	for _, key := range keys {
		a, b := key[0], key[1]
		c := best[key]
		if c.similarity < l.cfg.Analysis.SimilarityThreshold {
			continue
		}
		maxLinks := l.cfg.Analysis.MaxLinksPerDocument
		if maxLinks > 0 && (perDoc[a] >= maxLinks || perDoc[b] >= maxLinks) {
			continue
		}
		if min := l.cfg.Analysis.MinSharedEntities; min > 0 && len(c.shared) < min {
			continue
		}

		links = append(links, models.SemanticLink{
			DocID1:         a,
			DocID2:         b,
			Similarity:     c.similarity,
			LinkType:       "semantic_similarity",
			Rationale:      fmt.Sprintf("embedding similarity %.2f with %d shared entities", c.embedding, len(c.shared)),
			SharedEntities: c.shared,
			SharedConcepts: SharedConcepts(state.ExtractedText[a], state.ExtractedText[b]),
		})
		perDoc[a]++
		perDoc[b]++
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].DocID1 != links[j].DocID1 {
			return links[i].DocID1 < links[j].DocID1
		}
		return links[i].DocID2 < links[j].DocID2
	})
	return links, nil
}

// corroborated blends entity overlap into the embedding score: each shared
// entity closes a fraction of the remaining distance to 1. Without shared
// entities the embedding score stands alone.
func corroborated(embedding float64, shared int) float64 {
	if shared == 0 {
		return embedding
	}
	overlap := float64(shared) / float64(shared+1)
	return embedding + (1-embedding)*overlap
}

// sharedEntities returns the texts of entities referenced by both documents.
func sharedEntities(entities []models.Entity, docA, docB string) []string {
	var shared []string
	for i := range entities {
		inA, inB := false, false
		for _, d := range entities[i].Documents {
			if d == docA {
				inA = true
			}
			if d == docB {
				inB = true
			}
		}
		if inA && inB {
			shared = append(shared, entities[i].Text)
		}
	}
	sort.Strings(shared)
	return shared
}

func (l *Linker) maxWorkers() int {
	if n := l.cfg.Pipeline.MaxWorkers; n > 0 {
		return n
	}
	return 4
}

func capText(text string) string {
	if len(text) > linkWindow {
		return text[:linkWindow]
	}
	return text
}
