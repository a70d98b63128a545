// Package ingestion discovers files in the uploads directory, extracts and
// normalizes their text, and appends Document records to the investigation
// state. Per-file failures are quarantined and ledgered, never fatal.
package ingestion

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sherlockintel/sherlock/internal/config"
	apperrors "github.com/sherlockintel/sherlock/internal/errors"
	"github.com/sherlockintel/sherlock/internal/ledger"
	"github.com/sherlockintel/sherlock/internal/models"
)

var errEmptyExtraction = errors.New("empty extraction")

// AgentID identifies this stage in the ledger and activity stream.
const AgentID = "ingestion"

// descriptionsFile carries optional per-file investigator notes and is never
// ingested itself.
const descriptionsFile = "descriptions.json"

// Agent is the ingestion stage.
type Agent struct {
	cfg    *config.Config
	ledger ledger.Ledger
	logger *logrus.Logger
}

// NewAgent creates the ingestion stage.
func NewAgent(cfg *config.Config, led ledger.Ledger, logger *logrus.Logger) *Agent {
	return &Agent{cfg: cfg, ledger: led, logger: logger}
}

// fileOutcome is the per-file result merged deterministically after the
// worker pool drains.
type fileOutcome struct {
	doc     *models.Document
	text    string
	finding *models.CryptoFinding
	skipped string
}

// Run ingests every eligible file under state.Config.UploadsPath.
func (a *Agent) Run(ctx context.Context, state *models.InvestigationState) error {
	uploads := state.Config.UploadsPath
	investigationID := state.Config.InvestigationID

	a.logger.WithFields(logrus.Fields{
		"investigation_id": investigationID,
		"uploads_path":     uploads,
	}).Info("Starting ingestion")

	entries, err := os.ReadDir(uploads)
	if err != nil {
		return fmt.Errorf("read uploads directory: %w", err)
	}

	descriptions := a.loadDescriptions(uploads)

	var names []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == descriptionsFile {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	outcomes := make([]*fileOutcome, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxWorkers())
	for i, name := range names {
		g.Go(func() error {
			outcomes[i] = a.processFile(gctx, state, filepath.Join(uploads, name))
			return nil
		})
	}
	g.Wait()

	// deterministic merge, sorted by filename
	ingested := 0
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		if out.skipped != "" {
			a.logger.WithField("reason", out.skipped).Debug("File skipped")
			continue
		}
		if out.doc == nil {
			continue
		}
		if state.HasDocument(out.doc.ContentHash) {
			// duplicate content within the same batch
			a.logger.WithField("document_id", out.doc.ID).Debug("Duplicate content hash")
			continue
		}
		if desc, ok := descriptions[out.doc.Filename]; ok {
			if out.doc.Metadata == nil {
				out.doc.Metadata = make(map[string]any)
			}
			out.doc.Metadata["description"] = desc
		}
		state.Documents = append(state.Documents, *out.doc)
		state.ExtractedText[out.doc.ID] = out.text
		if out.finding != nil {
			state.CryptographyFindings = append(state.CryptographyFindings, *out.finding)
		}
		ingested++
	}

	a.logger.WithFields(logrus.Fields{
		"investigation_id": investigationID,
		"files_seen":       len(names),
		"documents":        ingested,
	}).Info("Ingestion completed")

	return nil
}

func (a *Agent) maxWorkers() int {
	if n := a.cfg.Pipeline.MaxWorkers; n > 0 {
		return n
	}
	return 4
}

// processFile runs the full per-file flow. All failures are converted into
// outcomes; the returned value is never an error.
func (a *Agent) processFile(ctx context.Context, state *models.InvestigationState, path string) *fileOutcome {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))

	if !a.supported(ext) {
		return &fileOutcome{skipped: fmt.Sprintf("unsupported extension %s (%s)", ext, name)}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &fileOutcome{skipped: fmt.Sprintf("stat failed: %v", err)}
	}
	if maxBytes := a.cfg.Ingestion.MaxFileSizeMB * 1024 * 1024; info.Size() > maxBytes {
		return &fileOutcome{skipped: fmt.Sprintf("%s exceeds max size (%d bytes)", name, info.Size())}
	}

	contentHash, err := hashFile(path)
	if err != nil {
		return &fileOutcome{skipped: fmt.Sprintf("hash failed: %v", err)}
	}
	docID := contentHash[:16]

	if state.HasDocument(contentHash) {
		return &fileOutcome{skipped: fmt.Sprintf("duplicate content hash %s", docID)}
	}
	if entry, err := a.ledger.GetStatus(ctx, contentHash, state.Config.InvestigationID); err == nil && entry.Status == ledger.StatusDone {
		return &fileOutcome{skipped: fmt.Sprintf("ledger DONE for %s", docID)}
	}

	if err := a.ledger.MarkStart(ctx, contentHash, state.Config.InvestigationID, AgentID); err != nil {
		a.logger.WithError(err).Warn("Ledger mark_start failed")
	}

	started := time.Now()
	doc := &models.Document{
		ID:          docID,
		Filename:    name,
		FileType:    strings.TrimPrefix(ext, "."),
		ContentHash: contentHash,
		SizeBytes:   info.Size(),
		IngestedAt:  time.Now().UTC(),
		SourceDir:   filepath.Dir(path),
		FilePath:    path,
	}

	extractor := ForExtension(ext)
	if extractor == nil {
		doc.Status = models.ExtractionUnsupported
		doc.Language = "unknown"
		if err := a.ledger.MarkSuccess(ctx, contentHash, state.Config.InvestigationID, AgentID); err != nil {
			a.logger.WithError(err).Warn("Ledger mark_success failed")
		}
		return &fileOutcome{doc: doc, text: ""}
	}

	res, err := extractor.Extract(path)
	if err == ErrEncrypted {
		doc.Status = models.ExtractionEncrypted
		doc.ExtractionMethod = extractor.Name()
		doc.Language = "unknown"
		doc.ProcessingTime = time.Since(started).Seconds()
		if err := a.ledger.MarkSuccess(ctx, contentHash, state.Config.InvestigationID, AgentID); err != nil {
			a.logger.WithError(err).Warn("Ledger mark_success failed")
		}
		return &fileOutcome{
			doc:  doc,
			text: "",
			finding: &models.CryptoFinding{
				DocumentID:       docID,
				FindingType:      "pdf_encrypted",
				RequiresPassword: true,
				Confidence:       1.0,
			},
		}
	}
	if err != nil {
		return a.failFile(ctx, state, doc, path, apperrors.ExtractionErrorf(err, "extract %s", filepath.Base(path)))
	}

	text := NormalizeText(res.Text)
	if text == "" && res.Status == models.ExtractionSuccess {
		// empty extraction from a supported type counts as failure
		return a.failFile(ctx, state, doc, path, apperrors.ExtractionError(errEmptyExtraction, filepath.Base(path)))
	}

	doc.Status = res.Status
	doc.ExtractionMethod = res.Method
	doc.PageCount = res.PageCount
	doc.Language = DetectLanguage(text)
	doc.ProcessingTime = time.Since(started).Seconds()
	if len(res.Metadata) > 0 {
		doc.Metadata = res.Metadata
	}

	if err := a.ledger.MarkSuccess(ctx, contentHash, state.Config.InvestigationID, AgentID); err != nil {
		a.logger.WithError(err).Warn("Ledger mark_success failed")
	}

	return &fileOutcome{doc: doc, text: text}
}

func (a *Agent) failFile(ctx context.Context, state *models.InvestigationState, doc *models.Document, path string, cause error) *fileOutcome {
	doc.Status = models.ExtractionFailed
	doc.Error = cause.Error()
	doc.Language = "unknown"

	if qpath, err := a.quarantine(path); err != nil {
		a.logger.WithError(err).WithField("file", path).Warn("Quarantine failed")
	} else {
		a.logger.WithFields(logrus.Fields{
			"file":       filepath.Base(path),
			"quarantine": qpath,
			"cause":      cause.Error(),
		}).Warn("File quarantined")
	}

	if err := a.ledger.MarkFailed(ctx, doc.ContentHash, state.Config.InvestigationID, AgentID); err != nil {
		a.logger.WithError(err).Warn("Ledger mark_failed failed")
	}

	return &fileOutcome{doc: doc, text: ""}
}

// quarantine copies the file into the quarantine directory with a random
// suffix so repeated failures never collide.
func (a *Agent) quarantine(path string) (string, error) {
	dir := a.cfg.Storage.QuarantineDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(path), "quarantine")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	suffix := make([]byte, 4)
	rand.Read(suffix)
	dst := filepath.Join(dir, fmt.Sprintf("%s.%s", filepath.Base(path), hex.EncodeToString(suffix)))

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	return dst, nil
}

func (a *Agent) supported(ext string) bool {
	for _, s := range a.cfg.Ingestion.SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

func (a *Agent) loadDescriptions(uploads string) map[string]string {
	data, err := os.ReadFile(filepath.Join(uploads, descriptionsFile))
	if err != nil {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		a.logger.WithError(err).Warn("Invalid descriptions.json, ignoring")
		return nil
	}
	return out
}

// hashFile streams the file through SHA-256.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
