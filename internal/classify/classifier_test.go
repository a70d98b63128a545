package classify

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c, err := NewClassifier(logger)
	require.NoError(t, err)
	return c
}

// filler pads a passage past the fragment threshold without touching any
// keyword table.
func filler(lang string) string {
	if lang == "pt" {
		return strings.Repeat("o texto segue adiante com palavras simples que apenas preenchem a passagem para que ela tenha tamanho suficiente ", 3)
	}
	return strings.Repeat("the passage simply continues with plain filler words so that it comfortably exceeds the minimum length used here ", 3)
}

func TestClassifyFragment(t *testing.T) {
	c := newTestClassifier(t)

	cls := c.Classify("doc-1", "nota curta sem conteudo", 1)

	assert.Equal(t, "fragment", cls.DocumentType)
	assert.Equal(t, "other", cls.Domain)
	assert.Equal(t, 0.3, cls.PriorityScore)
	assert.Equal(t, models.RelevanceLow, cls.Relevance)
	assert.Equal(t, []string{"fragment"}, cls.PriorityReasons)
}

func TestClassifyConfidentialContractIsCritical(t *testing.T) {
	c := newTestClassifier(t)

	text := "CONFIDENCIAL. Contrato de prestação de serviços entre as partes, " +
		"com cláusula de sigilo e assinatura das partes, conforme anexo X deste contrato. " +
		filler("pt")

	cls := c.Classify("doc-1", text, 1)

	assert.GreaterOrEqual(t, cls.PriorityScore, 0.85)
	assert.Equal(t, models.RelevanceCritical, cls.Relevance)
	assert.Equal(t, "contract", cls.DocumentType)
	assert.Equal(t, "legal", cls.Domain)
	assert.Equal(t, "pt", cls.Language)
	assert.Contains(t, cls.PriorityReasons, "contains_keyword_confidencial")
	assert.Contains(t, cls.PriorityReasons, "references_other_docs")
	assert.Contains(t, cls.PriorityReasons, "high_value_doctype_contract")
	assert.Contains(t, cls.PriorityReasons, "sensitive_domain_legal")
}

func TestClassifyNeutralText(t *testing.T) {
	c := newTestClassifier(t)

	cls := c.Classify("doc-1", filler("en"), 1)

	assert.Equal(t, "other", cls.Domain)
	assert.Equal(t, "en", cls.Language)
	assert.Equal(t, 0.5, cls.PriorityScore)
	assert.Equal(t, models.RelevanceMedium, cls.Relevance)
	assert.Empty(t, cls.PriorityReasons)
}

func TestClassifyUnknownLanguagePenalty(t *testing.T) {
	c := newTestClassifier(t)

	text := strings.Repeat("zyx wvu tsr qpo nml kji hgf ", 10)
	cls := c.Classify("doc-1", text, 1)

	assert.Equal(t, "unknown", cls.Language)
	assert.Contains(t, cls.PriorityReasons, "unknown_language")
	assert.Equal(t, 0.3, cls.PriorityScore)
}

func TestClassifySuspiciousPatterns(t *testing.T) {
	c := newTestClassifier(t)

	text := "campos ocultados xxxx no meio da frase e xxxx no rodapé " + filler("pt")
	cls := c.Classify("doc-1", text, 1)

	assert.Contains(t, cls.PriorityReasons, "suspicious_patterns_2")
	assert.Len(t, cls.SuspiciousPatterns, 2)
	// base 0.5 plus 0.1 per match
	assert.Equal(t, 0.7, cls.PriorityScore)
}

func TestClassifyPriorityClamped(t *testing.T) {
	c := newTestClassifier(t)

	text := "CONFIDENCIAL urgente: contrato offshore com cláusula e assinatura das partes, " +
		"conforme anexo X, pagamento via paraíso fiscal " + filler("pt")
	cls := c.Classify("doc-1", text, 1)

	assert.LessOrEqual(t, cls.PriorityScore, 1.0)
	assert.Equal(t, models.RelevanceCritical, cls.Relevance)
	assert.Contains(t, cls.PriorityReasons, "offshore_transaction_terms")
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := newTestClassifier(t)

	cls := c.Classify("doc-1", "contrato "+filler("pt"), 1)

	for axis, conf := range cls.Confidence {
		assert.GreaterOrEqual(t, conf, 0.5, axis)
		assert.LessOrEqual(t, conf, 0.95, axis)
	}
}

func TestRunClassifiesDocumentsWithText(t *testing.T) {
	c := newTestClassifier(t)

	state := models.NewInvestigationState("inv-1", "/tmp/uploads")
	state.Documents = []models.Document{
		{ID: "doc-1"},
		{ID: "doc-2"}, // no extracted text, skipped
	}
	state.ExtractedText["doc-1"] = "contrato entre as partes " + filler("pt")

	require.NoError(t, c.Run(state))

	require.Contains(t, state.Classifications, "doc-1")
	assert.NotContains(t, state.Classifications, "doc-2")
	assert.Equal(t, state.Classifications["doc-1"].PriorityScore, state.Documents[0].PriorityScore)
	assert.Equal(t, 1, state.Classifications["doc-1"].ProcessingOrder)
}
