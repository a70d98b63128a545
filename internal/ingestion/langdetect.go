package ingestion

import "strings"

// Stop-word fragments with surrounding spaces so they match whole words in
// running text without tokenizing.
var (
	ptFragments = []string{
		" de ", " da ", " do ", " das ", " dos ", " que ", " para ", " com ",
		" uma ", " não ", " são ", " entre ", " pelo ", " pela ", " mais ",
		" como ", " foi ", " ser ", " sua ", " seu ",
	}
	enFragments = []string{
		" the ", " of ", " and ", " to ", " in ", " that ", " for ", " with ",
		" is ", " was ", " are ", " this ", " from ", " have ", " has ",
		" been ", " will ", " would ", " their ", " which ",
	}
)

// DetectLanguage guesses "pt", "en", or "unknown" by stop-word fragment
// ratio. The model-based detector the original deployment used is an
// optional capability; this heuristic is the always-available fallback.
func DetectLanguage(text string) string {
	if len(text) < 20 {
		return "unknown"
	}

	sample := strings.ToLower(text)
	if len(sample) > 5000 {
		sample = sample[:5000]
	}
	// pad so leading/trailing words can match fragments
	sample = " " + sample + " "

	ptHits := 0
	for _, f := range ptFragments {
		ptHits += strings.Count(sample, f)
	}
	enHits := 0
	for _, f := range enFragments {
		enHits += strings.Count(sample, f)
	}

	switch {
	case ptHits == 0 && enHits == 0:
		return "unknown"
	case ptHits >= enHits:
		return "pt"
	default:
		return "en"
	}
}
