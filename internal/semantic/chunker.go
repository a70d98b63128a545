// Package semantic links documents by embedding similarity, derives shared
// entities and concepts per pair, flags rule-based contradictions, and
// clusters linked documents into narrative threads.
package semantic

import "strings"

const (
	paragraphMaxLen = 800
	windowLen       = 512
	windowOverlap   = 50
)

// ChunkText splits text into paragraph chunks. Paragraphs longer than
// paragraphMaxLen fall back to fixed-size windows with a small overlap so
// boundary sentences are not lost.
func ChunkText(text string) []string {
	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= paragraphMaxLen {
			chunks = append(chunks, para)
			continue
		}
		for start := 0; start < len(para); start += windowLen - windowOverlap {
			end := start + windowLen
			if end > len(para) {
				end = len(para)
			}
			chunks = append(chunks, para[start:end])
			if end == len(para) {
				break
			}
		}
	}
	return chunks
}
