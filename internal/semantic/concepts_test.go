package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedConcepts(t *testing.T) {
	a := "pagamento registrado pela empresa Acme no contrato"
	b := "o contrato menciona pagamento feito pela Acme"

	shared := SharedConcepts(a, b)
	assert.Equal(t, []string{"acme", "contrato", "pagamento"}, shared)
}

func TestSharedConceptsFiltersStopwordsAndShortWords(t *testing.T) {
	a := "para este caso o valor foi alto"
	b := "para este caso o valor foi baixo"

	shared := SharedConcepts(a, b)
	// "para" and "este" are stopwords, "o" and "foi" are too short
	assert.NotContains(t, shared, "para")
	assert.NotContains(t, shared, "este")
	assert.NotContains(t, shared, "foi")
	assert.Contains(t, shared, "valor")
	assert.Contains(t, shared, "caso")
}

func TestSharedConceptsDisjointTexts(t *testing.T) {
	assert.Empty(t, SharedConcepts("apenas palavras daqui", "somente termos dali"))
}
