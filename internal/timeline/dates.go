// Package timeline extracts dated events from document text, orders them
// chronologically, and flags duplicate-date anomalies.
package timeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type datePattern struct {
	re    *regexp.Regexp
	parse func(match []string) (time.Time, bool)
}

var ptMonths = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "março": time.March,
	"marco": time.March, "abril": time.April, "maio": time.May,
	"junho": time.June, "julho": time.July, "agosto": time.August,
	"setembro": time.September, "outubro": time.October,
	"novembro": time.November, "dezembro": time.December,
}

var enMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var datePatterns = []datePattern{
	{
		// 2024-01-15
		re: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		parse: func(m []string) (time.Time, bool) {
			return buildDate(m[1], m[2], m[3])
		},
	},
	{
		// 15/01/2024
		re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			return buildDate(m[3], m[2], m[1])
		},
	},
	{
		// 15-01-2024
		re: regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			return buildDate(m[3], m[2], m[1])
		},
	},
	{
		// 15 de janeiro de 2024
		re: regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+([a-zçã]+)\s+de\s+(\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			month, ok := ptMonths[strings.ToLower(m[2])]
			if !ok {
				return time.Time{}, false
			}
			return buildDate(m[3], strconv.Itoa(int(month)), m[1])
		},
	},
	{
		// January 15, 2024
		re: regexp.MustCompile(`(?i)\b([a-z]+)\s+(\d{1,2}),?\s+(\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			month, ok := enMonths[strings.ToLower(m[1])]
			if !ok {
				return time.Time{}, false
			}
			return buildDate(m[3], strconv.Itoa(int(month)), m[2])
		},
	},
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1900 || y > 2100 {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
}

type dateMatch struct {
	ts    time.Time
	text  string
	start int
	end   int
}

// findDates returns every parseable date occurrence with its span, deduped
// by span start so overlapping patterns report once.
func findDates(text string) []dateMatch {
	seen := make(map[int]bool)
	var matches []dateMatch
	for _, p := range datePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if seen[start] {
				continue
			}
			groups := make([]string, 0, len(loc)/2)
			for i := 0; i < len(loc); i += 2 {
				if loc[i] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, text[loc[i]:loc[i+1]])
			}
			ts, ok := p.parse(groups)
			if !ok {
				continue
			}
			seen[start] = true
			matches = append(matches, dateMatch{ts: ts, text: text[start:end], start: start, end: end})
		}
	}
	return matches
}
