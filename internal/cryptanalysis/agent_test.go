package cryptanalysis

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

func TestHunterRecordsBase64Segment(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	h := NewHunter(logger)

	state := models.NewInvestigationState("inv-1", t.TempDir())
	state.ExtractedText["doc-1"] = "mensagem anexa: SGVsbG8gd29ybGQ= fim da nota"

	require.NoError(t, h.Run(state))

	require.Len(t, state.CryptoSegments, 1)
	seg := state.CryptoSegments[0]
	assert.Equal(t, "doc-1", seg.DocumentID)
	assert.Equal(t, "base64", seg.CryptoType)
	assert.Contains(t, seg.DecodedContent, "Hello world")
	assert.Equal(t, 0.95, seg.Confidence)
	assert.NotEmpty(t, seg.ID)

	require.Len(t, state.CryptographyFindings, 1)
	finding := state.CryptographyFindings[0]
	assert.Equal(t, "base64", finding.FindingType)
	assert.Equal(t, "SGVsbG8gd29ybGQ=", finding.EncodedExcerpt)
	assert.Equal(t, "Hello world", finding.DecodedPreview)
	assert.Equal(t, 0.95, finding.Confidence)
}

func TestHunterTruncatesExcerpts(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	h := NewHunter(logger)

	// long decodable hex run: excerpt and preview must be bounded
	payload := strings.Repeat("48656c6c6f20776f726c64", 30)
	state := models.NewInvestigationState("inv-1", t.TempDir())
	state.ExtractedText["doc-1"] = "dump " + payload

	require.NoError(t, h.Run(state))

	require.NotEmpty(t, state.CryptographyFindings)
	for _, f := range state.CryptographyFindings {
		assert.LessOrEqual(t, len(f.EncodedExcerpt), excerptLen)
		assert.LessOrEqual(t, len(f.DecodedPreview), previewLen)
	}
	for _, s := range state.CryptoSegments {
		assert.LessOrEqual(t, len(s.Content), segmentMaxLen)
	}
}

func TestHunterScanWindowBoundsCost(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	h := NewHunter(logger)

	// payload sits beyond the scan window and must be ignored
	state := models.NewInvestigationState("inv-1", t.TempDir())
	state.ExtractedText["doc-1"] = strings.Repeat("0 ", scanWindow/2) + " SGVsbG8gd29ybGQ="

	require.NoError(t, h.Run(state))
	assert.Empty(t, state.CryptoSegments)
}
