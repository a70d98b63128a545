// Package cryptanalysis hunts for encoded content: base64 and hex runs,
// Caesar-shifted text, and LSB messages hidden in PNG uploads.
package cryptanalysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "cryptanalysis_hunter"

// Per-document scan window and finding truncation bounds.
const (
	scanWindow    = 3000
	excerptLen    = 200
	previewLen    = 150
	segmentMaxLen = 500
)

// Hunter is the cryptanalysis stage.
type Hunter struct {
	logger *logrus.Logger
}

// NewHunter creates the stage.
func NewHunter(logger *logrus.Logger) *Hunter {
	return &Hunter{logger: logger}
}

// Run scans every document's text and the uploads directory for PNG
// steganography.
func (h *Hunter) Run(state *models.InvestigationState) error {
	docIDs := make([]string, 0, len(state.ExtractedText))
	for id := range state.ExtractedText {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	for _, docID := range docIDs {
		text := state.ExtractedText[docID]
		if len(text) > scanWindow {
			text = text[:scanWindow]
		}

		var detections []Detection
		detections = append(detections, DetectBase64(text)...)
		detections = append(detections, DetectHex(text)...)
		detections = append(detections, DetectCaesar(text)...)

		for _, det := range detections {
			h.record(state, docID, det)
		}
	}

	h.scanImages(state)

	h.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"segments":         len(state.CryptoSegments),
		"findings":         len(state.CryptographyFindings),
	}).Info("Cryptanalysis completed")

	return nil
}

func (h *Hunter) record(state *models.InvestigationState, docID string, det Detection) {
	segment := models.CryptoSegment{
		ID:             uuid.NewString(),
		DocumentID:     docID,
		StartOffset:    det.Start,
		EndOffset:      det.End,
		Content:        truncate(det.Content, segmentMaxLen),
		CryptoType:     cryptoType(det),
		DecodedContent: det.Decoded,
		Confidence:     det.Confidence,
	}
	state.CryptoSegments = append(state.CryptoSegments, segment)

	state.CryptographyFindings = append(state.CryptographyFindings, models.CryptoFinding{
		DocumentID:     docID,
		FindingType:    segment.CryptoType,
		EncodedExcerpt: truncate(det.Content, excerptLen),
		DecodedPreview: truncate(det.Decoded, previewLen),
		Confidence:     det.Confidence,
	})
}

func cryptoType(det Detection) string {
	if det.Scheme == "caesar" {
		return fmt.Sprintf("caesar(%d)", det.Shift)
	}
	return det.Scheme
}

// scanImages attempts LSB extraction on every PNG in the uploads directory.
func (h *Hunter) scanImages(state *models.InvestigationState) {
	uploads := state.Config.UploadsPath
	entries, err := os.ReadDir(uploads)
	if err != nil {
		return
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			continue
		}
		path := filepath.Join(uploads, e.Name())
		msg, err := ExtractLSB(path)
		if err != nil || msg == "" {
			continue
		}

		docID := e.Name()
		for i := range state.Documents {
			if state.Documents[i].Filename == e.Name() {
				docID = state.Documents[i].ID
				break
			}
		}

		segment := models.CryptoSegment{
			ID:             uuid.NewString(),
			DocumentID:     docID,
			Content:        "",
			CryptoType:     "stego",
			DecodedContent: msg,
			Confidence:     0.95,
		}
		state.CryptoSegments = append(state.CryptoSegments, segment)
		state.CryptographyFindings = append(state.CryptographyFindings, models.CryptoFinding{
			DocumentID:     docID,
			FindingType:    "stego",
			DecodedPreview: truncate(msg, previewLen),
			Confidence:     0.95,
		})

		h.logger.WithField("file", e.Name()).Info("LSB message recovered from image")
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
