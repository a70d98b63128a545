package cryptanalysis

import (
	"image"
	"image/png"
	"os"
	"unicode"
)

// Minimum recovered printable length before an LSB extraction is reported.
const stegoMinLength = 8

// ExtractLSB reads the least-significant bits of the RGB channels of a PNG,
// row-major, and returns any leading printable message. An empty string
// means nothing plausible was hidden.
func ExtractLSB(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return "", err
	}

	bits := collectLSBs(img, 4096*8)

	var msg []byte
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | bits[i+j]
		}
		if b == 0 {
			break
		}
		if !unicode.IsPrint(rune(b)) && b != '\n' && b != '\t' {
			break
		}
		msg = append(msg, b)
	}

	if len(msg) < stegoMinLength {
		return "", nil
	}
	return string(msg), nil
}

func collectLSBs(img image.Image, max int) []byte {
	bounds := img.Bounds()
	bits := make([]byte, 0, max)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			for _, c := range []uint32{r >> 8, g >> 8, b >> 8} {
				bits = append(bits, byte(c&1))
				if len(bits) >= max {
					return bits
				}
			}
		}
	}
	return bits
}
