package semantic

import (
	"sort"
	"strings"
	"unicode"
)

// conceptWindow bounds how much of each document feeds shared-concept
// extraction.
const conceptWindow = 3000

// minConceptLen filters out short function words before intersection.
const minConceptLen = 4

var conceptStopwords = map[string]bool{
	// pt
	"para": true, "como": true, "mais": true, "pela": true, "pelo": true,
	"essa": true, "esse": true, "esta": true, "este": true, "entre": true,
	"sobre": true, "também": true, "tambem": true, "quando": true,
	"muito": true, "seria": true, "foram": true, "seus": true, "suas": true,
	"todos": true, "todas": true, "outro": true, "outra": true,
	// en
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "they": true, "their": true, "which": true,
	"would": true, "could": true, "should": true, "about": true,
	"there": true, "other": true, "these": true, "those": true,
	"will": true, "into": true, "also": true, "more": true, "when": true,
	"than": true, "each": true, "some": true, "such": true,
}

// conceptWords extracts the candidate concept vocabulary of a text window.
func conceptWords(text string) map[string]bool {
	if len(text) > conceptWindow {
		text = text[:conceptWindow]
	}
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) < minConceptLen || conceptStopwords[w] {
			continue
		}
		words[w] = true
	}
	return words
}

// SharedConcepts returns the sorted word intersection of two texts.
func SharedConcepts(textA, textB string) []string {
	wordsA := conceptWords(textA)
	wordsB := conceptWords(textB)
	var shared []string
	for w := range wordsA {
		if wordsB[w] {
			shared = append(shared, w)
		}
	}
	sort.Strings(shared)
	return shared
}
