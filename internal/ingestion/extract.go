package ingestion

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"net/mail"
	"os"
	"regexp"
	"strings"

	"github.com/sherlockintel/sherlock/internal/models"
)

// Result is the outcome of one extraction attempt. Status defaults to
// success; extractors downgrade it for encrypted or degraded input.
type Result struct {
	Text      string
	Method    string
	PageCount int
	Status    models.ExtractionStatus
	Metadata  map[string]any
}

// Extractor converts one file into text. Heavyweight backends (OCR, office
// suites, transcription) are optional capabilities; each built-in extractor
// is the always-available fallback for its formats.
type Extractor interface {
	Name() string
	Extract(path string) (*Result, error)
}

// ErrEncrypted marks password-protected input. The caller turns it into an
// encrypted document plus a cryptography finding.
var ErrEncrypted = fmt.Errorf("input is encrypted")

// ForExtension returns the extractor responsible for a lowercase extension,
// or nil when the extension is unsupported.
func ForExtension(ext string) Extractor {
	switch ext {
	case ".txt", ".csv", ".json", ".xml":
		return plainTextExtractor{}
	case ".html":
		return htmlExtractor{}
	case ".eml":
		return emlExtractor{}
	case ".msg":
		return binarySalvageExtractor{method: "msg_salvage"}
	case ".pdf":
		return pdfExtractor{}
	case ".docx":
		return docxExtractor{}
	case ".doc":
		return binarySalvageExtractor{method: "doc_salvage"}
	case ".xlsx", ".xls":
		return xlsxExtractor{}
	case ".png", ".jpg", ".jpeg":
		return mediaExtractor{method: "ocr_unavailable"}
	case ".mp3", ".wav":
		return mediaExtractor{method: "transcription_unavailable"}
	default:
		return nil
	}
}

type plainTextExtractor struct{}

func (plainTextExtractor) Name() string { return "plain_text" }

func (plainTextExtractor) Extract(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Result{Text: string(data), Method: "plain_text", Status: models.ExtractionSuccess}, nil
}

type htmlExtractor struct{}

func (htmlExtractor) Name() string { return "html_strip" }

var (
	htmlScriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
)

func (htmlExtractor) Extract(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := htmlScriptRe.ReplaceAllString(string(data), " ")
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`).Replace(text)
	return &Result{Text: text, Method: "html_strip", Status: models.ExtractionSuccess}, nil
}

type emlExtractor struct{}

func (emlExtractor) Name() string { return "eml" }

func (emlExtractor) Extract(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, fmt.Errorf("parse email: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(msg.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read email body: %w", err)
	}

	var sb strings.Builder
	for _, h := range []string{"From", "To", "Subject", "Date"} {
		if v := msg.Header.Get(h); v != "" {
			sb.WriteString(h)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.Write(body)

	meta := map[string]any{}
	if from := msg.Header.Get("From"); from != "" {
		meta["email_from"] = from
	}
	if subject := msg.Header.Get("Subject"); subject != "" {
		meta["email_subject"] = subject
	}

	return &Result{Text: sb.String(), Method: "eml", Status: models.ExtractionSuccess, Metadata: meta}, nil
}

// binarySalvageExtractor recovers printable runs from legacy binary formats
// (.doc, .msg) for which no parser capability is wired.
type binarySalvageExtractor struct {
	method string
}

func (e binarySalvageExtractor) Name() string { return e.method }

var printableRunRe = regexp.MustCompile(`[\x20-\x7E\xC0-\xFF]{8,}`)

func (e binarySalvageExtractor) Extract(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	runs := printableRunRe.FindAllString(string(data), -1)
	text := strings.Join(runs, "\n")
	status := models.ExtractionPartial
	if text == "" {
		status = models.ExtractionFailed
	}
	return &Result{Text: text, Method: e.method, Status: status}, nil
}

type pdfExtractor struct{}

func (pdfExtractor) Name() string { return "pdf_native" }

var (
	pdfTextShowRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*T[jJ]`)
	pdfParenRe    = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	pdfPageRe     = regexp.MustCompile(`/Type\s*/Page[^s]`)
)

// Extract runs the tiered PDF strategy: native text operators, then a
// repair-tolerant scan of all string literals. Rasterize-and-OCR is an
// optional capability and not wired here, so an image-only PDF degrades to
// partial. Encrypted PDFs short-circuit with ErrEncrypted.
func (pdfExtractor) Extract(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := string(data)
	if !strings.HasPrefix(raw, "%PDF") {
		return nil, fmt.Errorf("not a PDF file")
	}
	if strings.Contains(raw, "/Encrypt") {
		return nil, ErrEncrypted
	}

	pageCount := len(pdfPageRe.FindAllString(raw, -1))

	text := decodePDFStrings(pdfTextShowRe.FindAllStringSubmatch(raw, -1))
	method := "pdf_native"
	if len(text) < 50 {
		// repair-tolerant tier: any string literal in the file
		text = decodePDFStrings(pdfParenRe.FindAllStringSubmatch(raw, -1))
		method = "pdf_repair"
	}

	status := models.ExtractionSuccess
	if strings.TrimSpace(text) == "" {
		// compressed or image-only content; OCR capability not present
		status = models.ExtractionPartial
		method = "pdf_ocr_unavailable"
	}

	return &Result{Text: text, Method: method, PageCount: pageCount, Status: status}, nil
}

func decodePDFStrings(matches [][]string) string {
	var sb strings.Builder
	for _, m := range matches {
		s := m[1]
		s = strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\n`, "\n", `\r`, " ").Replace(s)
		sb.WriteString(s)
		sb.WriteString(" ")
	}
	return sb.String()
}

type docxExtractor struct{}

func (docxExtractor) Name() string { return "docx" }

func (docxExtractor) Extract(path string) (*Result, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		text, err := collectXMLText(rc, "t", "p")
		rc.Close()
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, Method: "docx", Status: models.ExtractionSuccess}, nil
	}
	return nil, fmt.Errorf("docx missing word/document.xml")
}

type xlsxExtractor struct{}

func (xlsxExtractor) Name() string { return "xlsx" }

func (xlsxExtractor) Extract(path string) (*Result, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer r.Close()

	var sb strings.Builder
	for _, f := range r.File {
		if f.Name != "xl/sharedStrings.xml" && !strings.HasPrefix(f.Name, "xl/worksheets/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		text, err := collectXMLText(rc, "t", "row")
		rc.Close()
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return &Result{Text: sb.String(), Method: "xlsx", Status: models.ExtractionSuccess}, nil
}

// collectXMLText streams an XML document and concatenates the character data
// of textElem elements, inserting newlines at breakElem boundaries.
func collectXMLText(r io.Reader, textElem, breakElem string) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sb.String(), err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == textElem {
				inText = false
				sb.WriteString(" ")
			}
			if t.Name.Local == breakElem {
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// mediaExtractor stands in for the OCR and transcription capabilities.
// Output degrades to an empty partial extraction rather than failing.
type mediaExtractor struct {
	method string
}

func (e mediaExtractor) Name() string { return e.method }

func (e mediaExtractor) Extract(path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &Result{Text: "", Method: e.method, Status: models.ExtractionPartial}, nil
}
