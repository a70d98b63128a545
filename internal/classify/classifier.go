// Package classify assigns domain, document type, language, and a priority
// score to every ingested document.
package classify

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sherlockintel/sherlock/internal/ingestion"
	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "classifier"

// Text windows scored per axis, bounding cost on large documents.
const (
	domainWindow  = 5000
	doctypeWindow = 3000
	maxKeywords   = 30
)

//go:embed keywords.yaml
var keywordsYAML []byte

type keywordTables struct {
	Domains          map[string][]string `yaml:"domains"`
	DocumentTypes    map[string][]string `yaml:"document_types"`
	BoostKeywords    []string            `yaml:"boost_keywords"`
	OffshoreKeywords []string            `yaml:"offshore_keywords"`
}

var (
	suspiciousRe = regexp.MustCompile(`(?i)(\[redacted\]|█{2,}|x{4,}|\.{4,})`)
	referenceRe  = regexp.MustCompile(`(?i)conforme\s+(anexo|doc\.?|documento)\s*[x\d]`)
)

// Classifier is the classification stage.
type Classifier struct {
	tables keywordTables
	logger *logrus.Logger
}

// NewClassifier parses the embedded keyword tables.
func NewClassifier(logger *logrus.Logger) (*Classifier, error) {
	var tables keywordTables
	if err := yaml.Unmarshal(keywordsYAML, &tables); err != nil {
		return nil, fmt.Errorf("parse keyword tables: %w", err)
	}
	return &Classifier{tables: tables, logger: logger}, nil
}

// Run classifies every document with extracted text.
func (c *Classifier) Run(state *models.InvestigationState) error {
	order := 0
	for i := range state.Documents {
		doc := &state.Documents[i]
		text, ok := state.ExtractedText[doc.ID]
		if !ok {
			continue
		}
		order++
		cls := c.Classify(doc.ID, text, order)
		state.Classifications[doc.ID] = cls
		doc.PriorityScore = cls.PriorityScore
	}

	c.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"classified":       order,
	}).Info("Classification completed")

	return nil
}

// Classify scores one document.
func (c *Classifier) Classify(docID, text string, order int) models.Classification {
	lower := strings.ToLower(text)

	if wordCount(text) < 50 {
		return models.Classification{
			DocumentID:      docID,
			Domain:          "other",
			DocumentType:    "fragment",
			Language:        "unknown",
			PriorityScore:   0.3,
			Confidence:      map[string]float64{"domain": 0.3, "document_type": 0.3},
			PriorityReasons: []string{"fragment"},
			Relevance:       models.RelevanceFor(0.3),
			ProcessingOrder: order,
		}
	}

	domain, domainHits, domainKeywords := bestCategory(c.tables.Domains, head(lower, domainWindow))
	docType, typeHits, typeKeywords := bestCategory(c.tables.DocumentTypes, head(lower, doctypeWindow))
	language := ingestion.DetectLanguage(text)

	keywords := append(domainKeywords, typeKeywords...)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	priority := 0.5
	var reasons []string

	switch docType {
	case "contract", "invoice", "report":
		priority += 0.2
		reasons = append(reasons, "high_value_doctype_"+docType)
	}
	switch domain {
	case "finance", "legal":
		priority += 0.2
		reasons = append(reasons, "sensitive_domain_"+domain)
	}
	for _, kw := range c.tables.BoostKeywords {
		if strings.Contains(lower, kw) {
			priority += 0.3
			reasons = append(reasons, "contains_keyword_"+kw)
			break
		}
	}
	for _, kw := range c.tables.OffshoreKeywords {
		if strings.Contains(lower, kw) {
			priority += 0.15
			reasons = append(reasons, "offshore_transaction_terms")
			break
		}
	}

	var suspicious []string
	if matches := suspiciousRe.FindAllString(text, -1); len(matches) > 0 {
		count := len(matches)
		if count > 3 {
			count = 3
		}
		priority += 0.1 * float64(count)
		reasons = append(reasons, fmt.Sprintf("suspicious_patterns_%d", len(matches)))
		suspicious = matches
		if len(suspicious) > 5 {
			suspicious = suspicious[:5]
		}
	}

	if referenceRe.MatchString(text) {
		priority += 0.15
		reasons = append(reasons, "references_other_docs")
	}

	if language == "unknown" {
		priority -= 0.2
		reasons = append(reasons, "unknown_language")
	}

	priority = math.Round(clamp01(priority)*100) / 100

	return models.Classification{
		DocumentID:   docID,
		Domain:       domain,
		DocumentType: docType,
		Language:     language,
		Confidence: map[string]float64{
			"domain":        confidence(domainHits),
			"document_type": confidence(typeHits),
		},
		PriorityScore:      priority,
		PriorityReasons:    reasons,
		SuspiciousPatterns: suspicious,
		Keywords:           keywords,
		Relevance:          models.RelevanceFor(priority),
		ProcessingOrder:    order,
	}
}

// bestCategory returns the category with the most keyword hits, its hit
// count, and the keywords matched. Ties break alphabetically so results are
// deterministic.
func bestCategory(tables map[string][]string, text string) (string, int, []string) {
	best := "other"
	bestHits := 0
	var bestKeywords []string

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		hits := 0
		var matched []string
		for _, kw := range tables[name] {
			if n := strings.Count(text, kw); n > 0 {
				hits += n
				matched = append(matched, kw)
			}
		}
		if hits > bestHits {
			best = name
			bestHits = hits
			bestKeywords = matched
		}
	}
	return best, bestHits, bestKeywords
}

func confidence(hits int) float64 {
	return math.Min(0.95, 0.5+0.1*float64(hits))
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
