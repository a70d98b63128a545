package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

func link() models.SemanticLink {
	return models.SemanticLink{DocID1: "a", DocID2: "b"}
}

func TestDetectContradictionsNumericMismatch(t *testing.T) {
	out := DetectContradictions(link(),
		"o valor transferido foi 1.500,00 conforme registro",
		"o valor transferido foi 9.800,00 conforme registro")

	require.Len(t, out, 1)
	assert.Equal(t, "numeric_mismatch", out[0].Type)
	assert.Equal(t, "a", out[0].DocID1)
	assert.Equal(t, "b", out[0].DocID2)
}

func TestDetectContradictionsDateMismatch(t *testing.T) {
	out := DetectContradictions(link(),
		"reunião marcada para 2023-01-15 na sede",
		"reunião marcada para 2024-03-20 na sede")

	var types []string
	for _, c := range out {
		types = append(types, c.Type)
	}
	assert.Contains(t, types, "date_mismatch")
}

func TestDetectContradictionsSameYearDifferentDaysClean(t *testing.T) {
	// distinct days inside the same year are narrative progression,
	// not disagreement
	out := DetectContradictions(link(),
		"Reunião entre as partes. Data: 15/01/2024.",
		"Contrato assinado. 20/01/2024. R$ 500.000.")
	assert.Empty(t, out)
}

func TestDetectContradictionsAgreementIsClean(t *testing.T) {
	// shared token on both sides means the sets are not disjoint
	out := DetectContradictions(link(),
		"pagamento de 1.500,00 em 15/01/2024",
		"recibo de 1.500,00 emitido em 15/01/2024")
	assert.Empty(t, out)
}

func TestDetectContradictionsOneSidedTokens(t *testing.T) {
	// only one document carries numeric tokens: nothing to compare
	out := DetectContradictions(link(),
		"o valor foi 1.500,00",
		"sem qualquer valor mencionado aqui")
	assert.Empty(t, out)
}
