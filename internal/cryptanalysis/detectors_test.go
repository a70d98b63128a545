package cryptanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBase64PaddedPayload(t *testing.T) {
	text := "segue o anexo combinado: SGVsbG8gd29ybGQ= conforme conversado"

	dets := DetectBase64(text)
	require.Len(t, dets, 1)

	assert.Equal(t, "base64", dets[0].Scheme)
	assert.Equal(t, "SGVsbG8gd29ybGQ=", dets[0].Content)
	assert.Equal(t, "Hello world", dets[0].Decoded)
	assert.Equal(t, 0.95, dets[0].Confidence)
	assert.Equal(t, text[dets[0].Start:dets[0].End], dets[0].Content)
}

func TestDetectBase64UnpaddedRun(t *testing.T) {
	// "investigation notes" without padding
	dets := DetectBase64("payload aW52ZXN0aWdhdGlvbiBub3Rlcw here")
	require.Len(t, dets, 1)

	assert.Equal(t, "investigation notes", dets[0].Decoded)
	assert.Equal(t, 0.95, dets[0].Confidence)
}

func TestDetectBase64IgnoresShortWords(t *testing.T) {
	assert.Empty(t, DetectBase64("confidencialidade assinatura"))
}

func TestDetectHex(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantDecoded string
		wantConf    float64
	}{
		{
			name:        "printable payload",
			text:        "chave 48656c6c6f20776f726c64 anotada",
			wantDecoded: "Hello world",
			wantConf:    0.95,
		},
		{
			name:        "binary payload keeps lower confidence",
			text:        "hash 00ff00ff00ff00ff00ff no registro",
			wantDecoded: "",
			wantConf:    0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets := DetectHex(tt.text)
			require.Len(t, dets, 1)
			assert.Equal(t, "hex", dets[0].Scheme)
			assert.Equal(t, tt.wantDecoded, dets[0].Decoded)
			assert.Equal(t, tt.wantConf, dets[0].Confidence)
		})
	}
}

func TestDetectHexSkipsOddLength(t *testing.T) {
	assert.Empty(t, DetectHex("run 48656c6c6f20776f726c6 end"))
}

func TestDetectCaesarRoundTrip(t *testing.T) {
	plain := "the quick brown fox jumps over the lazy dog and keeps on running through the field"
	encoded := caesarShift(plain, 3)

	dets := DetectCaesar(encoded)
	require.NotEmpty(t, dets)

	assert.Equal(t, "caesar", dets[0].Scheme)
	assert.Equal(t, 3, dets[0].Shift)
	assert.Equal(t, plain, dets[0].Decoded)
	assert.Equal(t, 0.95, dets[0].Confidence)
}

func TestDetectCaesarReportsRot13(t *testing.T) {
	plain := "meeting confirmed for tomorrow at the usual place bring the documents"
	encoded := caesarShift(plain, 13)

	dets := DetectCaesar(encoded)
	require.NotEmpty(t, dets)
	assert.Equal(t, "rot13", dets[0].Scheme)
	assert.Equal(t, 13, dets[0].Shift)
}

func TestDetectCaesarIgnoresPlainText(t *testing.T) {
	assert.Empty(t, DetectCaesar("this is a perfectly ordinary english sentence with no cipher in it"))
}

func TestMostlyPrintable(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain text", "Hello world", true},
		{"with newline and tab", "a\n\tb", true},
		{"binary", "\x00\x01\x02\x03", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mostlyPrintable(tt.in))
		})
	}
}
