package cryptanalysis

import "math"

// Letter-frequency reference tables (percent) for Portuguese and English.
var (
	ptFreq = [26]float64{
		14.63, 1.04, 3.88, 4.99, 12.57, 1.02, 1.30, 1.28, 6.18, 0.40,
		0.02, 2.78, 4.74, 5.05, 10.73, 2.52, 1.20, 6.53, 7.81, 4.34,
		4.63, 1.67, 0.01, 0.21, 0.01, 0.47,
	}
	enFreq = [26]float64{
		8.167, 1.492, 2.782, 4.253, 12.702, 2.228, 2.015, 6.094, 6.966, 0.153,
		0.772, 4.025, 2.406, 6.749, 7.507, 1.929, 0.095, 5.987, 6.327, 9.056,
		2.758, 0.978, 2.360, 0.150, 1.974, 0.074,
	}
)

// letterHistogram counts a-z occurrences (case-insensitive) as percentages.
func letterHistogram(text string) ([26]float64, int) {
	var counts [26]float64
	total := 0
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			counts[r-'a']++
			total++
		case r >= 'A' && r <= 'Z':
			counts[r-'A']++
			total++
		}
	}
	if total > 0 {
		for i := range counts {
			counts[i] = counts[i] / float64(total) * 100
		}
	}
	return counts, total
}

// correlation is the Pearson correlation coefficient between two frequency
// vectors.
func correlation(a, b [26]float64) float64 {
	var meanA, meanB float64
	for i := 0; i < 26; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= 26
	meanB /= 26

	var num, denA, denB float64
	for i := 0; i < 26; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		denA += da * da
		denB += db * db
	}
	if denA == 0 || denB == 0 {
		return 0
	}
	return num / math.Sqrt(denA*denB)
}

// SuggestShift returns the Caesar shift in [0,25] whose decoding best
// matches PT or EN letter frequencies, with the winning correlation.
func SuggestShift(text string) (int, float64) {
	bestShift := 0
	bestCorr := math.Inf(-1)

	for shift := 0; shift < 26; shift++ {
		decoded := caesarShift(text, -shift)
		hist, total := letterHistogram(decoded)
		if total == 0 {
			continue
		}
		corr := math.Max(correlation(hist, ptFreq), correlation(hist, enFreq))
		if corr > bestCorr {
			bestCorr = corr
			bestShift = shift
		}
	}
	return bestShift, bestCorr
}

// caesarShift rotates alphabetic characters by n positions, preserving case
// and leaving everything else untouched.
func caesarShift(text string, n int) string {
	n = ((n % 26) + 26) % 26
	out := []rune(text)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+rune(n))%26
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+rune(n))%26
		}
	}
	return string(out)
}
