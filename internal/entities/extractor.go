// Package entities extracts typed entities from document text, merges
// mentions by (normalized_text, type), and derives co-occurrence
// relationships between entities sharing a document.
package entities

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sherlockintel/sherlock/internal/config"
	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "entity_extractor"

// Per-document text cap.
const maxTextLen = 1_000_000

// Context sample bounds.
const (
	contextRadius = 50
	maxContexts   = 10
	minTextLen    = 10

	// Every matcher is a deterministic pattern; an exact match carries
	// full confidence.
	regexConfidence = 1.0
)

type mention struct {
	docID      string
	text       string
	entityType models.EntityType
	confidence float64
	start, end int
	context    string
}

// Extractor is the entity extraction stage.
type Extractor struct {
	cfg    *config.Config
	logger *logrus.Logger
	types  map[models.EntityType]bool
}

// NewExtractor creates the stage with the configured type whitelist.
func NewExtractor(cfg *config.Config, logger *logrus.Logger) *Extractor {
	types := make(map[models.EntityType]bool, len(cfg.Analysis.EntityTypes))
	for _, t := range cfg.Analysis.EntityTypes {
		types[models.EntityType(t)] = true
	}
	return &Extractor{cfg: cfg, logger: logger, types: types}
}

// Run extracts, merges, and relates entities across all documents.
func (e *Extractor) Run(ctx context.Context, state *models.InvestigationState) error {
	docIDs := make([]string, 0, len(state.ExtractedText))
	for id, text := range state.ExtractedText {
		if len(text) >= minTextLen {
			docIDs = append(docIDs, id)
		}
	}
	sort.Strings(docIDs)

	perDoc := make([][]mention, len(docIDs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.maxWorkers())
	for i, docID := range docIDs {
		g.Go(func() error {
			text := state.ExtractedText[docID]
			if len(text) > maxTextLen {
				text = text[:maxTextLen]
			}
			perDoc[i] = e.extractMentions(docID, text)
			return nil
		})
	}
	g.Wait()

	// deterministic merge, bucketed by (normalized_text, type)
	entities := mergeMentions(perDoc)
	entities = e.filter(entities)
	state.Entities = entities
	state.Relationships = buildRelationships(entities)

	e.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"entities":         len(state.Entities),
		"relationships":    len(state.Relationships),
	}).Info("Entity extraction completed")

	return nil
}

func (e *Extractor) maxWorkers() int {
	if n := e.cfg.Pipeline.MaxWorkers; n > 0 {
		return n
	}
	return 4
}

// extractMentions runs every matcher over one document. Earlier matchers
// claim their spans; later ones skip overlaps so an email never doubles as
// a person name.
func (e *Extractor) extractMentions(docID, text string) []mention {
	var mentions []mention
	claimed := newSpanSet()

	type matcher struct {
		re         interface{ FindAllStringIndex(string, int) [][]int }
		entityType models.EntityType
		confidence float64
	}
	matchers := []matcher{
		{emailRe, models.EntityEmail, regexConfidence},
		{cpfRe, models.EntityCPF, regexConfidence},
		{cnpjRe, models.EntityCNPJ, regexConfidence},
		{moneyRe, models.EntityMoney, regexConfidence},
		{percentRe, models.EntityPercent, regexConfidence},
		{dateRe, models.EntityDate, regexConfidence},
		{phoneRe, models.EntityPhone, regexConfidence},
		{orgSuffixRe, models.EntityOrg, regexConfidence},
		{orgCamelRe, models.EntityOrg, regexConfidence},
		{personRe, models.EntityPerson, regexConfidence},
	}

	for _, m := range matchers {
		for _, span := range m.re.FindAllStringIndex(text, -1) {
			if claimed.overlaps(span[0], span[1]) {
				continue
			}
			surface := strings.TrimSpace(text[span[0]:span[1]])
			if m.entityType == models.EntityPerson && !plausiblePerson(surface) {
				continue
			}
			claimed.add(span[0], span[1])
			mentions = append(mentions, mention{
				docID:      docID,
				text:       surface,
				entityType: m.entityType,
				confidence: m.confidence,
				start:      span[0],
				end:        span[1],
				context:    contextWindow(text, span[0], span[1]),
			})
		}
	}
	return mentions
}

func plausiblePerson(surface string) bool {
	words := strings.Fields(surface)
	if len(words) < 2 {
		return false
	}
	return !personStopwords[strings.ToLower(words[0])]
}

func contextWindow(text string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

// Normalize returns the canonical form used as half of the merge key:
// title case for names and places, digits only for registry numbers and
// phones, lowercase for emails.
func Normalize(text string, entityType models.EntityType) string {
	switch entityType {
	case models.EntityPerson, models.EntityOrg, models.EntityGPE, models.EntityLoc:
		return titleCase(text)
	case models.EntityCPF, models.EntityCNPJ, models.EntityPhone:
		return digitsOnly(text)
	case models.EntityEmail:
		return strings.ToLower(strings.TrimSpace(text))
	default:
		return strings.TrimSpace(text)
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		switch w {
		case "de", "da", "do", "dos", "das":
			continue
		}
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// mergeMentions buckets mentions by (normalized_text, type). Frequency is
// the number of distinct documents in the bucket.
func mergeMentions(perDoc [][]mention) []models.Entity {
	type bucket struct {
		entity models.Entity
		docs   map[string]bool
		vars   map[string]bool
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, mentions := range perDoc {
		for _, m := range mentions {
			normalized := Normalize(m.text, m.entityType)
			if normalized == "" {
				continue
			}
			key := normalized + "|" + string(m.entityType)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{
					entity: models.Entity{
						ID:             uuid.NewString(),
						Text:           m.text,
						NormalizedText: normalized,
						Type:           m.entityType,
					},
					docs: make(map[string]bool),
					vars: make(map[string]bool),
				}
				buckets[key] = b
				order = append(order, key)
			}
			b.docs[m.docID] = true
			b.vars[m.text] = true
			if m.confidence > b.entity.Confidence {
				b.entity.Confidence = m.confidence
			}
			if len(b.entity.Contexts) < maxContexts && m.context != "" {
				b.entity.Contexts = append(b.entity.Contexts, m.context)
			}
		}
	}

	sort.Strings(order)
	out := make([]models.Entity, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		b.entity.Documents = sortedKeys(b.docs)
		b.entity.Frequency = len(b.entity.Documents)
		b.entity.Variations = sortedKeys(b.vars)
		out = append(out, b.entity)
	}
	return out
}

func (e *Extractor) filter(ents []models.Entity) []models.Entity {
	out := ents[:0]
	for _, ent := range ents {
		if len(e.types) > 0 && !e.types[ent.Type] {
			continue
		}
		if ent.Confidence < e.cfg.Analysis.MinEntityConfidence {
			continue
		}
		out = append(out, ent)
	}
	return out
}

// buildRelationships emits one relationship per unordered pair of distinct
// entities co-occurring in a document, aggregating evidence across
// documents. Endpoints are canonicalized before any equality check.
func buildRelationships(ents []models.Entity) []models.Relationship {
	byDoc := make(map[string][]int)
	for i, ent := range ents {
		for _, docID := range ent.Documents {
			byDoc[docID] = append(byDoc[docID], i)
		}
	}

	type agg struct {
		rel      models.Relationship
		evidence map[string]bool
	}
	pairs := make(map[string]*agg)

	for _, docID := range sortedKeys(boolify(byDoc)) {
		idxs := byDoc[docID]
		for x := 0; x < len(idxs); x++ {
			for y := x + 1; y < len(idxs); y++ {
				a, b := ents[idxs[x]], ents[idxs[y]]
				src, tgt := models.CanonicalPair(a.ID, b.ID)
				key := src + "|" + tgt
				p, ok := pairs[key]
				if !ok {
					relType := models.RelationCoOccurrence
					if a.Type != b.Type {
						relType = models.RelationAssociatedWith
					}
					p = &agg{
						rel: models.Relationship{
							SourceEntityID: src,
							TargetEntityID: tgt,
							Type:           relType,
						},
						evidence: make(map[string]bool),
					}
					pairs[key] = p
				}
				p.evidence[docID] = true
			}
		}
	}

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.Relationship, 0, len(keys))
	for _, k := range keys {
		p := pairs[k]
		p.rel.Evidence = sortedKeys(p.evidence)
		p.rel.EvidenceCount = len(p.rel.Evidence)
		p.rel.Weight = float64(p.rel.EvidenceCount)
		p.rel.Confidence = relationshipConfidence(p.rel.EvidenceCount)
		out = append(out, p.rel)
	}
	return out
}

func relationshipConfidence(evidenceCount int) float64 {
	n := evidenceCount
	if n > 5 {
		n = 5
	}
	conf := 0.7 + 0.05*float64(n)
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

type spanSet struct {
	spans [][2]int
}

func newSpanSet() *spanSet { return &spanSet{} }

func (s *spanSet) overlaps(start, end int) bool {
	for _, sp := range s.spans {
		if start < sp[1] && end > sp[0] {
			return true
		}
	}
	return false
}

func (s *spanSet) add(start, end int) {
	s.spans = append(s.spans, [2]int{start, end})
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func boolify(m map[string][]int) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
