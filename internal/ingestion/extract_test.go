package ingestion

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlockintel/sherlock/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeZip(t *testing.T, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for entry, content := range entries {
		zf, err := w.Create(entry)
		require.NoError(t, err)
		_, err = zf.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestForExtension(t *testing.T) {
	assert.Equal(t, "plain_text", ForExtension(".txt").Name())
	assert.Equal(t, "plain_text", ForExtension(".csv").Name())
	assert.Equal(t, "html_strip", ForExtension(".html").Name())
	assert.Equal(t, "eml", ForExtension(".eml").Name())
	assert.Equal(t, "pdf_native", ForExtension(".pdf").Name())
	assert.Equal(t, "docx", ForExtension(".docx").Name())
	assert.Equal(t, "doc_salvage", ForExtension(".doc").Name())
	assert.Nil(t, ForExtension(".zzz"))
}

func TestPlainTextExtract(t *testing.T) {
	path := writeFile(t, "nota.txt", "Pagamento efetuado em março.")

	res, err := plainTextExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Pagamento efetuado em março.", res.Text)
	assert.Equal(t, models.ExtractionSuccess, res.Status)
}

func TestHTMLExtract(t *testing.T) {
	html := `<html><head><script>var x = 1;</script><style>p{color:red}</style></head>
<body><p>Contrato &amp; anexos</p><div>valor &lt; 100</div></body></html>`
	path := writeFile(t, "doc.html", html)

	res, err := htmlExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.NotContains(t, res.Text, "var x")
	assert.NotContains(t, res.Text, "color:red")
	assert.NotContains(t, res.Text, "<p>")
	assert.Contains(t, res.Text, "Contrato & anexos")
	assert.Contains(t, res.Text, "valor < 100")
}

func TestEMLExtract(t *testing.T) {
	eml := "From: maria@example.com\r\nTo: joao@example.com\r\nSubject: Transferência\r\n\r\nSegue o comprovante da transferência.\r\n"
	path := writeFile(t, "msg.eml", eml)

	res, err := emlExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "From: maria@example.com")
	assert.Contains(t, res.Text, "Subject: Transferência")
	assert.Contains(t, res.Text, "Segue o comprovante")
	assert.Equal(t, "maria@example.com", res.Metadata["email_from"])
	assert.Equal(t, "Transferência", res.Metadata["email_subject"])
}

func TestBinarySalvageExtract(t *testing.T) {
	content := "\x00\x01\x02Pagamento confidencial de 1500 reais\x03\x04\xFE\x00ab"
	path := writeFile(t, "legacy.doc", content)

	res, err := binarySalvageExtractor{method: "doc_salvage"}.Extract(path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Pagamento confidencial")
	// short runs are noise, not text
	assert.NotContains(t, res.Text, "ab")
	assert.Equal(t, models.ExtractionPartial, res.Status)

	empty := writeFile(t, "noise.doc", "\x00\x01\x02\x03")
	res, err = binarySalvageExtractor{method: "doc_salvage"}.Extract(empty)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionFailed, res.Status)
}

func TestPDFExtractNative(t *testing.T) {
	pdf := "%PDF-1.4\n/Type /Page>>\n/Type /Page>>\n" +
		"BT (Relatório de auditoria sobre os pagamentos realizados pela empresa Acme) Tj ET\n" +
		"BT (Os valores foram transferidos em parcelas mensais para contas no exterior) Tj ET\n"
	path := writeFile(t, "doc.pdf", pdf)

	res, err := pdfExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "pdf_native", res.Method)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, models.ExtractionSuccess, res.Status)
	assert.Contains(t, res.Text, "Relatório de auditoria")
	assert.Contains(t, res.Text, "contas no exterior")
}

func TestPDFExtractRepairTier(t *testing.T) {
	// no Tj operators at all, only bare string literals
	pdf := "%PDF-1.4\n(Comprovante de pagamento anexo ao processo administrativo)\n"
	path := writeFile(t, "broken.pdf", pdf)

	res, err := pdfExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "pdf_repair", res.Method)
	assert.Contains(t, res.Text, "Comprovante de pagamento")
}

func TestPDFExtractEncrypted(t *testing.T) {
	path := writeFile(t, "locked.pdf", "%PDF-1.4\n<< /Encrypt 5 0 R >>\n")

	_, err := pdfExtractor{}.Extract(path)
	assert.ErrorIs(t, err, ErrEncrypted)
}

func TestPDFExtractNotAPDF(t *testing.T) {
	path := writeFile(t, "fake.pdf", "isto não é um pdf")

	_, err := pdfExtractor{}.Extract(path)
	assert.Error(t, err)
}

func TestPDFExtractImageOnly(t *testing.T) {
	path := writeFile(t, "scan.pdf", "%PDF-1.4\n/Type /Page>>\nstream...endstream\n")

	res, err := pdfExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionPartial, res.Status)
	assert.Equal(t, "pdf_ocr_unavailable", res.Method)
}

func TestDocxExtract(t *testing.T) {
	doc := `<w:document xmlns:w="ns"><w:body>` +
		`<w:p><w:r><w:t>Primeira linha do contrato</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Segunda linha com valores</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	path := writeZip(t, "contrato.docx", map[string]string{"word/document.xml": doc})

	res, err := docxExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Primeira linha do contrato")
	assert.Contains(t, res.Text, "Segunda linha com valores")
	// paragraph boundary becomes a line break
	lines := strings.Split(strings.TrimSpace(res.Text), "\n")
	assert.Len(t, lines, 2)
}

func TestDocxExtractMissingDocument(t *testing.T) {
	path := writeZip(t, "vazio.docx", map[string]string{"other.xml": "<x/>"})

	_, err := docxExtractor{}.Extract(path)
	assert.Error(t, err)
}

func TestXlsxExtract(t *testing.T) {
	shared := `<sst xmlns="ns"><si><t>Fornecedor</t></si><si><t>Acme Ltda</t></si></sst>`
	path := writeZip(t, "planilha.xlsx", map[string]string{"xl/sharedStrings.xml": shared})

	res, err := xlsxExtractor{}.Extract(path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Fornecedor")
	assert.Contains(t, res.Text, "Acme Ltda")
}

func TestMediaExtractDegradesToPartial(t *testing.T) {
	path := writeFile(t, "foto.png", "\x89PNG fake")

	res, err := mediaExtractor{method: "ocr_unavailable"}.Extract(path)
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, models.ExtractionPartial, res.Status)
}
