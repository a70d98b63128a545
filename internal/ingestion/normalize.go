package ingestion

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies Unicode NFKC, strips C0/C1 control characters, and
// collapses runs of whitespace. Every extractor output passes through here
// before language detection and storage.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)

	var sb strings.Builder
	sb.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		if r == '\n' {
			// keep paragraph structure for the chunkers
			sb.WriteRune('\n')
			lastSpace = false
			continue
		}
		if unicode.IsControl(r) || (r >= 0x80 && r <= 0x9F) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastSpace {
				sb.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(sb.String())
}
