package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

func TestBuildThreadsComponents(t *testing.T) {
	links := []models.SemanticLink{
		{DocID1: "a", DocID2: "b", Similarity: 0.9},
		{DocID1: "b", DocID2: "c", Similarity: 0.8},
		{DocID1: "x", DocID2: "y", Similarity: 0.85},
	}
	texts := map[string]string{
		"a": "Relatório inicial sobre os pagamentos da empresa.",
		"b": "Segundo documento com os mesmos pagamentos citados.",
		"c": "Anexo final do caso.",
		"x": "Contrato assinado entre as partes envolvidas.",
		"y": "Aditivo ao contrato original.",
	}

	threads := BuildThreads(links, texts)
	require.Len(t, threads, 2)

	assert.Equal(t, "thread_1", threads[0].ID)
	assert.Equal(t, []string{"a", "b", "c"}, threads[0].Documents)
	// b carries the highest sum of incident similarities (0.9 + 0.8)
	assert.Equal(t, "b", threads[0].CentralDoc)
	assert.Equal(t, "Segundo documento com os mesmos pagamentos citados", threads[0].Title)

	assert.Equal(t, "thread_2", threads[1].ID)
	assert.Equal(t, []string{"x", "y"}, threads[1].Documents)
	assert.Equal(t, "x", threads[1].CentralDoc)
}

func TestBuildThreadsNoLinks(t *testing.T) {
	assert.Nil(t, BuildThreads(nil, map[string]string{"a": "texto"}))
}

func TestThreadTitleFallback(t *testing.T) {
	assert.Equal(t, "Documentos relacionados", threadTitle("ok. sim. nao."))
}

func TestThreadTitleTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "palavra "
	}
	title := threadTitle(long)
	assert.LessOrEqual(t, len(title), 120)
}
