package entities

import "regexp"

// Deterministic extractors always run; the model-based NER the original
// deployment shipped is an optional capability replaced here by the
// heuristic name/organization matchers at the bottom.
var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Brazilian registry identifiers, punctuation required.
	cpfRe  = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)
	cnpjRe = regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`)

	phoneRe = regexp.MustCompile(`(?:\+\d{2}\s?)?(?:\(\d{2,3}\)\s?)?\d{4,5}[-\s]\d{4}\b`)

	moneyRe   = regexp.MustCompile(`(?:R\$|US\$|USD|EUR|€|\$)\s?\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})?`)
	percentRe = regexp.MustCompile(`\b\d{1,3}(?:[.,]\d+)?\s?%`)

	dateRe = regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}-\d{1,2}-\d{4})\b`)

	// CamelCase brands (TechCorp) or names carrying a company suffix.
	orgCamelRe  = regexp.MustCompile(`\b[A-Z][a-z]+[A-Z][A-Za-z]+\b`)
	orgSuffixRe = regexp.MustCompile(`\b(?:[A-ZÀ-Ö][A-Za-zà-ö]+\s+)+(?:S\.?A\.?|Ltda\.?|Inc\.?|Corp\.?|LLC|GmbH|Group|Holding)\b`)

	// Two to four capitalized words, PT connectives allowed.
	personRe = regexp.MustCompile(`\b[A-ZÀ-Ö][a-zà-öç]+(?:\s+(?:de|da|do|dos|das))?\s+[A-ZÀ-Ö][a-zà-öç]+(?:\s+[A-ZÀ-Ö][a-zà-öç]+)?\b`)
)

// personStopwords are capitalized sentence leads that the person matcher
// would otherwise swallow.
var personStopwords = map[string]bool{
	"o": true, "a": true, "os": true, "as": true, "em": true, "no": true,
	"na": true, "the": true, "in": true, "on": true, "data": true,
	"reunião": true, "reuniao": true, "contrato": true, "relatório": true,
	"relatorio": true, "conforme": true, "anexo": true,
}
