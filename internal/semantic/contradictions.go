package semantic

import (
	"fmt"
	"regexp"

	"github.com/sherlockintel/sherlock/internal/models"
)

var (
	numericTokenRe = regexp.MustCompile(`\b\d+(?:[.,]\d+)+\b|\b\d{4,}\b`)
	dateTokenRe    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{4}\b|\b\d{1,2}-\d{1,2}-\d{4}\b`)
	yearTokenRe    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// DetectContradictions compares the numeric and date token sets of a linked
// pair. Two documents that each carry tokens of a kind with no overlap are
// flagged, since linked documents describing the same facts should agree.
func DetectContradictions(link models.SemanticLink, textA, textB string) []models.Contradiction {
	var out []models.Contradiction

	if c, ok := disjointTokens(numericTokenRe, textA, textB); ok {
		out = append(out, models.Contradiction{
			DocID1:      link.DocID1,
			DocID2:      link.DocID2,
			Type:        "numeric_mismatch",
			Description: fmt.Sprintf("linked documents disagree on numeric values (%s)", c),
		})
	}
	if c, ok := disjointSets(dateTokens(textA), dateTokens(textB)); ok {
		out = append(out, models.Contradiction{
			DocID1:      link.DocID1,
			DocID2:      link.DocID2,
			Type:        "date_mismatch",
			Description: fmt.Sprintf("linked documents disagree on dates (%s)", c),
		})
	}
	return out
}

// dateTokens collects explicit dates plus bare years. Two documents
// anchored in the same year agree at coarse granularity, so only pairs
// with no temporal overlap at all count as a mismatch.
func dateTokens(text string) map[string]bool {
	set := tokenSet(dateTokenRe, text)
	for y := range tokenSet(yearTokenRe, text) {
		set[y] = true
	}
	return set
}

// disjointTokens reports whether both texts have tokens and the sets are
// disjoint.
func disjointTokens(re *regexp.Regexp, textA, textB string) (string, bool) {
	return disjointSets(tokenSet(re, textA), tokenSet(re, textB))
}

func disjointSets(setA, setB map[string]bool) (string, bool) {
	if len(setA) == 0 || len(setB) == 0 {
		return "", false
	}
	for t := range setA {
		if setB[t] {
			return "", false
		}
	}
	return fmt.Sprintf("%d vs %d distinct tokens", len(setA), len(setB)), true
}

func tokenSet(re *regexp.Regexp, text string) map[string]bool {
	if len(text) > conceptWindow {
		text = text[:conceptWindow]
	}
	set := make(map[string]bool)
	for _, m := range re.FindAllString(text, -1) {
		set[m] = true
	}
	return set
}
