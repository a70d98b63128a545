package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/config"
	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "pattern_recognition"

const (
	topDegreeCount      = 10
	topFrequencyCount   = 15
	minTermLen          = 4
	temporalSampleTypes = 5
)

// Recognizer is the pattern recognition stage.
type Recognizer struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewRecognizer creates the stage.
func NewRecognizer(cfg *config.Config, logger *logrus.Logger) *Recognizer {
	return &Recognizer{cfg: cfg, logger: logger}
}

// Run mines degree, community, temporal, and frequency patterns.
func (r *Recognizer) Run(state *models.InvestigationState) error {
	g := buildGraph(state.Entities, state.Relationships)

	r.degreePatterns(state, g)
	r.communityPatterns(state, g)
	r.temporalPattern(state)
	r.frequencyPatterns(state)

	r.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"patterns":         len(state.Patterns),
		"anomalies":        len(state.Anomalies),
	}).Info("Pattern recognition completed")

	return nil
}

// degreePatterns reports the most connected entities and z-score outliers.
func (r *Recognizer) degreePatterns(state *models.InvestigationState, g *memGraph) {
	if len(g.nodes) == 0 {
		return
	}

	degrees := make([]float64, len(g.nodes))
	for i, n := range g.nodes {
		degrees[i] = float64(g.degree(n))
	}
	mean, stddev := meanStddev(degrees)

	ranked := append([]string(nil), g.nodes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := g.degree(ranked[i]), g.degree(ranked[j])
		if di != dj {
			return di > dj
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > topDegreeCount {
		ranked = ranked[:topDegreeCount]
	}

	for i, id := range ranked {
		d := float64(g.degree(id))
		if d == 0 {
			continue
		}
		z := 0.0
		if stddev > 0 {
			z = (d - mean) / stddev
		}
		severity := "medium"
		if z > 2 {
			severity = "high"
		}
		state.Patterns = append(state.Patterns, models.Pattern{
			ID:          fmt.Sprintf("degree_%d", i+1),
			Category:    "high_degree",
			Description: fmt.Sprintf("%s is connected to %d entities", g.labels[id], int(d)),
			Entities:    []string{id},
			Severity:    severity,
			Occurrences: int(d),
			Confidence:  math.Min(0.95, 0.5+0.1*d),
		})
		if z >= r.outlierThreshold() {
			state.Anomalies = append(state.Anomalies, models.Anomaly{
				Category:    "degree_outlier",
				Description: fmt.Sprintf("%s has an unusually high connection count (%d)", g.labels[id], int(d)),
				Severity:    "high",
				Entity:      id,
				ZScore:      round2(z),
			})
		}
	}
}

func (r *Recognizer) communityPatterns(state *models.InvestigationState, g *memGraph) {
	groups := g.communities()

	roots := make([]string, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	idx := 0
	for _, root := range roots {
		members := groups[root]
		if len(members) < r.minClusterSize() {
			continue
		}
		sort.Strings(members)
		idx++

		names := make([]string, 0, len(members))
		for _, id := range members {
			names = append(names, g.labels[id])
		}
		state.Patterns = append(state.Patterns, models.Pattern{
			ID:          fmt.Sprintf("community_%d", idx),
			Category:    "community",
			Description: fmt.Sprintf("cluster of %d connected entities: %s", len(members), strings.Join(sample(names, 5), ", ")),
			Entities:    members,
			Severity:    "medium",
			Occurrences: len(members),
			Confidence:  0.8,
		})
	}
}

// temporalPattern summarizes the ordering of the first few timeline events.
func (r *Recognizer) temporalPattern(state *models.InvestigationState) {
	if len(state.Timeline) < 2 {
		return
	}
	types := make([]string, 0, temporalSampleTypes)
	for _, e := range state.Timeline {
		types = append(types, e.EventType)
		if len(types) == temporalSampleTypes {
			break
		}
	}
	state.Patterns = append(state.Patterns, models.Pattern{
		ID:          "temporal_1",
		Category:    "temporal_sequence",
		Description: fmt.Sprintf("chronological sequence of %d events: %s", len(state.Timeline), strings.Join(types, " -> ")),
		Severity:    "low",
		Occurrences: len(state.Timeline),
		Confidence:  0.75,
	})
}

// frequencyPatterns surfaces the dominant vocabulary and term-count
// outliers across all extracted text.
func (r *Recognizer) frequencyPatterns(state *models.InvestigationState) {
	counts := make(map[string]int)
	for _, text := range state.ExtractedText {
		for _, w := range strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
			return !unicode.IsLetter(c) && !unicode.IsDigit(c)
		}) {
			if len([]rune(w)) >= minTermLen {
				counts[w]++
			}
		}
	}
	if len(counts) == 0 {
		return
	}

	terms := make([]string, 0, len(counts))
	values := make([]float64, 0, len(counts))
	for t, c := range counts {
		terms = append(terms, t)
		values = append(values, float64(c))
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	mean, stddev := meanStddev(values)

	top := terms
	if len(top) > topFrequencyCount {
		top = top[:topFrequencyCount]
	}
	for i, term := range top {
		c := counts[term]
		state.Patterns = append(state.Patterns, models.Pattern{
			ID:          fmt.Sprintf("frequency_%d", i+1),
			Category:    "frequency",
			Description: fmt.Sprintf("term %q appears %d times across the corpus", term, c),
			Severity:    "low",
			Occurrences: c,
			Confidence:  math.Min(0.9, 0.5+float64(c)/100),
		})
		if stddev > 0 {
			z := (float64(c) - mean) / stddev
			if z >= r.outlierThreshold() {
				state.Anomalies = append(state.Anomalies, models.Anomaly{
					Category:    "frequency_outlier",
					Description: fmt.Sprintf("term %q dominates the corpus (%d occurrences)", term, c),
					Severity:    "medium",
					ZScore:      round2(z),
				})
			}
		}
	}
}

func (r *Recognizer) outlierThreshold() float64 {
	if t := r.cfg.Analysis.OutlierThreshold; t > 0 {
		return t
	}
	return 3.0
}

func (r *Recognizer) minClusterSize() int {
	if n := r.cfg.Analysis.MinClusterSize; n > 0 {
		return n
	}
	return 3
}

func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func sample(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
