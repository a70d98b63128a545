package semantic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sherlockintel/sherlock/internal/models"
)

// BuildThreads clusters linked documents into narrative threads: connected
// components of the link graph, anchored on the document with the highest
// sum of incident similarity scores.
func BuildThreads(links []models.SemanticLink, texts map[string]string) []models.NarrativeThread {
	if len(links) == 0 {
		return nil
	}

	uf := newUnionFind()
	incident := make(map[string]float64)
	for _, l := range links {
		uf.union(l.DocID1, l.DocID2)
		incident[l.DocID1] += l.Similarity
		incident[l.DocID2] += l.Similarity
	}

	components := make(map[string][]string)
	for doc := range incident {
		root := uf.find(doc)
		components[root] = append(components[root], doc)
	}

	roots := make([]string, 0, len(components))
	for root := range components {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	var threads []models.NarrativeThread
	for i, root := range roots {
		docs := components[root]
		if len(docs) < 2 {
			continue
		}
		sort.Strings(docs)

		central := docs[0]
		for _, d := range docs[1:] {
			if incident[d] > incident[central] {
				central = d
			}
		}

		threads = append(threads, models.NarrativeThread{
			ID:         fmt.Sprintf("thread_%d", i+1),
			Title:      threadTitle(texts[central]),
			Documents:  docs,
			CentralDoc: central,
		})
	}
	return threads
}

// threadTitle picks the first informative sentence of the anchor document.
func threadTitle(text string) string {
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) > 15 {
			if len(sentence) > 120 {
				sentence = sentence[:120]
			}
			return sentence
		}
	}
	return "Documentos relacionados"
}

type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(x string) string {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p != x {
		u.parent[x] = u.find(p)
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
