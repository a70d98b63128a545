package semantic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextParagraphs(t *testing.T) {
	chunks := ChunkText("primeiro parágrafo\n\nsegundo parágrafo\n\n\n\nterceiro")
	assert.Equal(t, []string{"primeiro parágrafo", "segundo parágrafo", "terceiro"}, chunks)
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Empty(t, ChunkText(""))
	assert.Empty(t, ChunkText("\n\n  \n\n"))
}

func TestChunkTextLongParagraphWindows(t *testing.T) {
	para := strings.Repeat("a", 1200)
	chunks := ChunkText(para)

	// windows advance by windowLen-windowOverlap
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], windowLen)
	assert.Len(t, chunks[1], windowLen)
	assert.Len(t, chunks[2], 1200-2*(windowLen-windowOverlap))

	// adjacent windows share the overlap region
	assert.Equal(t, chunks[0][windowLen-windowOverlap:], chunks[1][:windowOverlap])
}

func TestChunkTextShortParagraphKept(t *testing.T) {
	para := strings.Repeat("b", paragraphMaxLen)
	chunks := ChunkText(para)
	require.Len(t, chunks, 1)
	assert.Equal(t, para, chunks[0])
}
