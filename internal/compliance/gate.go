package compliance

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sherlockintel/sherlock/internal/config"
	"github.com/sherlockintel/sherlock/internal/models"
)

// AgentID identifies this stage in the activity stream.
const AgentID = "odos_guardian"

// Gate is the compliance gate stage.
type Gate struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewGate creates the stage.
func NewGate(cfg *config.Config, logger *logrus.Logger) *Gate {
	return &Gate{cfg: cfg, logger: logger}
}

// Run computes the gate metrics, applies ODOS, and writes the compliance
// report. A panic inside the gate degrades to NEEDS_REVIEW rather than
// losing the run.
func (g *Gate) Run(state *models.InvestigationState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			state.ComplianceReport = &models.ComplianceReport{
				OverallStatus:   models.ComplianceNeedsReview,
				DeltaE:          0.1,
				Fidelity:        0,
				RCF:             0,
				Recommendations: []string{fmt.Sprintf("compliance evaluation failed: %v", r)},
			}
			err = nil
		}
	}()

	metrics := ComputeMetrics(state)
	odos := EvaluateODOS(state)
	alerts := BiasAlerts(state, g.cfg.Compliance.BiasMinHypotheses)

	report := &models.ComplianceReport{
		DeltaE:     metrics.DeltaE,
		Fidelity:   metrics.Fidelity,
		RCF:        metrics.RCF,
		Violations: odos.Violations,
		BiasAlerts: alerts,
	}

	report.OverallStatus = g.decide(metrics)
	switch {
	case odos.Status == models.ComplianceBlocked:
		report.OverallStatus = models.ComplianceBlocked
		report.Recommendations = append(report.Recommendations, odos.Message)
	case odos.Status == models.ComplianceNeedsReview && report.OverallStatus == models.ComplianceValid:
		report.OverallStatus = models.ComplianceNeedsReview
		report.Recommendations = append([]string{odos.Message}, report.Recommendations...)
	}

	if report.OverallStatus != models.ComplianceValid {
		report.Recommendations = append(report.Recommendations, g.thresholdSummary(metrics))
	}

	state.ComplianceReport = report

	g.logger.WithFields(logrus.Fields{
		"investigation_id": state.Config.InvestigationID,
		"status":           report.OverallStatus,
		"delta_e":          report.DeltaE,
		"fidelity":         report.Fidelity,
		"rcf":              report.RCF,
		"violations":       len(report.Violations),
	}).Info("Compliance gate decided")

	return nil
}

// decide applies the threshold table to the metrics.
func (g *Gate) decide(m Metrics) string {
	c := g.cfg.Compliance
	switch {
	case m.DeltaE < c.DriftValid && m.Fidelity >= c.FidelityValid && m.RCF >= c.RCFValid:
		return models.ComplianceValid
	case m.DeltaE < c.DriftReview && m.Fidelity >= c.FidelityReview:
		return models.ComplianceNeedsReview
	default:
		return models.ComplianceBlocked
	}
}

func (g *Gate) thresholdSummary(m Metrics) string {
	c := g.cfg.Compliance
	return fmt.Sprintf("metrics ΔE=%.4f fidelity=%.4f rcf=%.4f against thresholds drift<%.2f/%.2f fidelity≥%.2f/%.2f rcf≥%.2f",
		m.DeltaE, m.Fidelity, m.RCF, c.DriftValid, c.DriftReview, c.FidelityValid, c.FidelityReview, c.RCFValid)
}
