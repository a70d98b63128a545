package cryptanalysis

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// Detection is one encoded span found in text.
type Detection struct {
	Scheme     string
	Start, End int
	Content    string
	Decoded    string
	Shift      int // Caesar only
	Confidence float64
}

var (
	// Unpadded runs need 20 chars to bound false positives; explicit "="
	// padding is a strong enough signal to accept shorter runs.
	base64Re    = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}|[A-Za-z0-9+/]{12,}={1,2}`)
	hexRe       = regexp.MustCompile(`\b(?:0x)?[0-9a-fA-F]{16,}\b`)
	letterRunRe = regexp.MustCompile(`[A-Za-z][A-Za-z ]{19,}`)
)

// Caesar candidates below this correlation are noise, not cipher text.
const caesarMinCorrelation = 0.55

// DetectBase64 finds base64 runs validated by a round-trip decode.
func DetectBase64(text string) []Detection {
	var out []Detection
	for _, span := range base64Re.FindAllStringIndex(text, -1) {
		candidate := text[span[0]:span[1]]
		data, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			if data, err = base64.RawStdEncoding.DecodeString(candidate); err != nil {
				continue
			}
		}
		decoded := string(data)
		det := Detection{
			Scheme:     "base64",
			Start:      span[0],
			End:        span[1],
			Content:    candidate,
			Confidence: 0.7,
		}
		if mostlyPrintable(decoded) {
			det.Decoded = decoded
			det.Confidence = 0.95
		}
		out = append(out, det)
	}
	return out
}

// DetectHex finds even-length hex runs of at least 16 characters.
func DetectHex(text string) []Detection {
	var out []Detection
	for _, span := range hexRe.FindAllStringIndex(text, -1) {
		candidate := strings.TrimPrefix(text[span[0]:span[1]], "0x")
		if len(candidate)%2 != 0 {
			continue
		}
		det := Detection{
			Scheme:     "hex",
			Start:      span[0],
			End:        span[1],
			Content:    text[span[0]:span[1]],
			Confidence: 0.7,
		}
		if data, err := hex.DecodeString(candidate); err == nil {
			if decoded := string(data); mostlyPrintable(decoded) {
				det.Decoded = decoded
				det.Confidence = 0.95
			}
		}
		out = append(out, det)
	}
	return out
}

// DetectCaesar scans letter runs of at least 20 characters and suggests the
// shift whose decoding best matches PT/EN letter frequencies. A shift of 13
// is reported as rot13.
func DetectCaesar(text string) []Detection {
	var out []Detection
	for _, span := range letterRunRe.FindAllStringIndex(text, -1) {
		run := text[span[0]:span[1]]
		shift, corr := SuggestShift(run)
		if shift == 0 || corr < caesarMinCorrelation {
			continue
		}
		scheme := "caesar"
		if shift == 13 {
			scheme = "rot13"
		}
		out = append(out, Detection{
			Scheme:     scheme,
			Start:      span[0],
			End:        span[1],
			Content:    run,
			Decoded:    caesarShift(run, -shift),
			Shift:      shift,
			Confidence: 0.95,
		})
	}
	return out
}

// mostlyPrintable reports whether at least 85% of the runes are printable
// text, the round-trip criterion for a decode to count.
func mostlyPrintable(s string) bool {
	if s == "" {
		return false
	}
	printable := 0
	total := 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			printable++
		}
	}
	return float64(printable)/float64(total) >= 0.85
}
