package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/config"
	"github.com/sherlockintel/sherlock/internal/ledger"
	"github.com/sherlockintel/sherlock/internal/models"
)

// fakeLedger records calls in memory.
type fakeLedger struct {
	mu       sync.Mutex
	statuses map[string]string
	failures int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{statuses: make(map[string]string)}
}

func (f *fakeLedger) set(docHash, investigationID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[docHash+"|"+investigationID] = status
}

func (f *fakeLedger) MarkStart(_ context.Context, docHash, investigationID, _ string) error {
	f.set(docHash, investigationID, ledger.StatusProcessing)
	return nil
}

func (f *fakeLedger) MarkSuccess(_ context.Context, docHash, investigationID, _ string) error {
	f.set(docHash, investigationID, ledger.StatusDone)
	return nil
}

func (f *fakeLedger) MarkFailed(_ context.Context, docHash, investigationID, _ string) error {
	f.mu.Lock()
	f.failures++
	f.mu.Unlock()
	f.set(docHash, investigationID, ledger.StatusFailed)
	return nil
}

func (f *fakeLedger) GetStatus(_ context.Context, docHash, investigationID string) (*ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[docHash+"|"+investigationID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &ledger.Entry{DocHash: docHash, InvestigationID: investigationID, Status: status}, nil
}

func (f *fakeLedger) ListPending(context.Context, string, int) ([]ledger.Entry, error) {
	return nil, nil
}

func (f *fakeLedger) Close() error { return nil }

func newTestAgent(t *testing.T, led ledger.Ledger) *Agent {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := config.Default()
	cfg.Storage.QuarantineDir = filepath.Join(t.TempDir(), "quarantine")
	return NewAgent(cfg, led, logger)
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestAgentRunIngestsUploads(t *testing.T) {
	uploads := t.TempDir()
	text := "O contrato foi assinado entre as partes para que os pagamentos fossem efetuados."
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "a.txt"), []byte(text), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "copia.txt"), []byte(text), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "notas.zzz"), []byte("ignorado"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "descriptions.json"),
		[]byte(`{"a.txt": "contrato principal"}`), 0644))

	led := newFakeLedger()
	a := newTestAgent(t, led)

	state := models.NewInvestigationState("inv-1", uploads)
	require.NoError(t, a.Run(context.Background(), state))

	// identical content ingests once, unsupported extensions are skipped
	require.Len(t, state.Documents, 1)
	doc := state.Documents[0]
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, contentHash(text), doc.ContentHash)
	assert.Equal(t, doc.ContentHash[:16], doc.ID)
	assert.Equal(t, models.ExtractionSuccess, doc.Status)
	assert.Equal(t, "pt", doc.Language)
	assert.Equal(t, "contrato principal", doc.Metadata["description"])
	assert.NotEmpty(t, state.ExtractedText[doc.ID])

	entry, err := led.GetStatus(context.Background(), doc.ContentHash, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDone, entry.Status)
}

func TestAgentRunSkipsLedgerDone(t *testing.T) {
	uploads := t.TempDir()
	text := "Documento já processado em execução anterior."
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "a.txt"), []byte(text), 0644))

	led := newFakeLedger()
	led.set(contentHash(text), "inv-1", ledger.StatusDone)
	a := newTestAgent(t, led)

	state := models.NewInvestigationState("inv-1", uploads)
	require.NoError(t, a.Run(context.Background(), state))
	assert.Empty(t, state.Documents)
}

func TestAgentRunIsIdempotentAcrossRuns(t *testing.T) {
	uploads := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "a.txt"),
		[]byte("Primeiro documento da investigação com conteúdo estável."), 0644))

	a := newTestAgent(t, newFakeLedger())
	state := models.NewInvestigationState("inv-1", uploads)

	require.NoError(t, a.Run(context.Background(), state))
	require.NoError(t, a.Run(context.Background(), state))
	assert.Len(t, state.Documents, 1)
}

func TestAgentRunQuarantinesFailures(t *testing.T) {
	uploads := t.TempDir()
	// a docx that is not a zip archive fails extraction
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "corrompido.docx"), []byte("not a zip"), 0644))

	led := newFakeLedger()
	a := newTestAgent(t, led)

	state := models.NewInvestigationState("inv-1", uploads)
	require.NoError(t, a.Run(context.Background(), state))

	require.Len(t, state.Documents, 1)
	doc := state.Documents[0]
	assert.Equal(t, models.ExtractionFailed, doc.Status)
	assert.NotEmpty(t, doc.Error)
	assert.Equal(t, 1, led.failures)

	entries, err := os.ReadDir(a.cfg.Storage.QuarantineDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAgentRunEmptyExtractionFails(t *testing.T) {
	uploads := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "vazio.txt"), []byte("\x00\x01\x02"), 0644))

	led := newFakeLedger()
	a := newTestAgent(t, led)

	state := models.NewInvestigationState("inv-1", uploads)
	require.NoError(t, a.Run(context.Background(), state))

	require.Len(t, state.Documents, 1)
	assert.Equal(t, models.ExtractionFailed, state.Documents[0].Status)
}

// erringLedger fails every success write.
type erringLedger struct {
	*fakeLedger
}

func (l *erringLedger) MarkSuccess(context.Context, string, string, string) error {
	return errors.New("ledger unavailable")
}

func TestAgentRunWarnsOnLedgerWriteFailure(t *testing.T) {
	uploads := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "a.txt"),
		[]byte("Contrato assinado entre as partes em 2024."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "protegido.pdf"),
		[]byte("%PDF-1.4\n<< /Encrypt 5 0 R >>\n"), 0644))

	logger, hook := logtest.NewNullLogger()
	cfg := config.Default()
	cfg.Storage.QuarantineDir = filepath.Join(t.TempDir(), "quarantine")
	a := NewAgent(cfg, &erringLedger{fakeLedger: newFakeLedger()}, logger)

	state := models.NewInvestigationState("inv-1", uploads)
	require.NoError(t, a.Run(context.Background(), state))

	// the ledger write is advisory: both documents are still recorded
	require.Len(t, state.Documents, 2)

	warned := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Ledger mark_success failed" {
			warned++
		}
	}
	assert.Equal(t, 2, warned)
}

func TestAgentRunEncryptedPDF(t *testing.T) {
	uploads := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "protegido.pdf"),
		[]byte("%PDF-1.4\n<< /Encrypt 5 0 R >>\n"), 0644))

	a := newTestAgent(t, newFakeLedger())
	state := models.NewInvestigationState("inv-1", uploads)
	require.NoError(t, a.Run(context.Background(), state))

	require.Len(t, state.Documents, 1)
	assert.Equal(t, models.ExtractionEncrypted, state.Documents[0].Status)

	require.Len(t, state.CryptographyFindings, 1)
	finding := state.CryptographyFindings[0]
	assert.Equal(t, "pdf_encrypted", finding.FindingType)
	assert.True(t, finding.RequiresPassword)
	assert.Equal(t, state.Documents[0].ID, finding.DocumentID)
}
