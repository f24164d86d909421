package usecase

import (
	"fmt"
	"strings"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// ScorerConfig tunes the confidence blend and review priority cutoffs.
// The default 50/50 quality+OCR blend is the authoritative scheme; other
// weightings stay expressible through configuration.
type ScorerConfig struct {
	WeightQuality   float64
	WeightOCR       float64
	PriorityCutoffs domain.PriorityCutoffs
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		WeightQuality:   0.5,
		WeightOCR:       0.5,
		PriorityCutoffs: domain.DefaultPriorityCutoffs(),
	}
}

func (c ScorerConfig) normalize() ScorerConfig {
	out := c
	if out.WeightQuality <= 0 && out.WeightOCR <= 0 {
		return DefaultScorerConfig()
	}
	if out.PriorityCutoffs.High <= 0 {
		out.PriorityCutoffs.High = domain.DefaultPriorityCutoffs().High
	}
	if out.PriorityCutoffs.Medium <= 0 {
		out.PriorityCutoffs.Medium = domain.DefaultPriorityCutoffs().Medium
	}
	return out
}

// ConfidenceScorer combines quality and OCR confidence into the final
// score and issues the routing verdict.
type ConfidenceScorer struct {
	cfg ScorerConfig
}

func NewConfidenceScorer(cfg ScorerConfig) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg.normalize()}
}

// FinalConfidence blends the quality score with the OCR confidence.
// With no OCR contribution the quality score stands alone (degraded mode).
func (s *ConfidenceScorer) FinalConfidence(qualityScore float64, ocr *domain.OCRResult) float64 {
	if ocr == nil {
		return qualityScore
	}
	total := s.cfg.WeightQuality + s.cfg.WeightOCR
	return (qualityScore*s.cfg.WeightQuality + ocr.ConfidenceScore*s.cfg.WeightOCR) / total
}

// BuildReport evaluates both checks and produces the routing decision.
// The document passes iff the quality check and the confidence check both
// pass; the reason names every failing check.
func (s *ConfidenceScorer) BuildReport(
	quality domain.QualityAssessment,
	ocr *domain.OCRResult,
	confidenceThreshold float64,
) domain.ConfidenceReport {
	final := s.FinalConfidence(quality.Score, ocr)
	confidencePassed := final >= confidenceThreshold

	report := domain.ConfidenceReport{
		ImageQualityScore:     quality.Score,
		FinalConfidence:       final,
		QualityCheckPassed:    quality.Passed,
		ConfidenceCheckPassed: confidencePassed,
	}
	if ocr != nil {
		report.OCRConfidenceScore = ocr.ConfidenceScore
	}

	var failures []string
	if !quality.Passed {
		failures = append(failures, fmt.Sprintf("image quality %.1f below threshold", quality.Score))
	}
	if !confidencePassed {
		failures = append(failures, fmt.Sprintf("final confidence %.1f below threshold %.1f", final, confidenceThreshold))
	}
	if ocr == nil {
		failures = append(failures, "text extraction was not attempted")
	}

	if len(failures) == 0 {
		report.RoutingDecision = domain.RoutePass
		report.RoutingReason = "quality and confidence checks passed"
	} else {
		report.RoutingDecision = domain.RouteRequiresReview
		report.RoutingReason = strings.Join(failures, "; ")
	}
	return report
}

// ReviewPriority grades the urgency of a record routed to manual review.
func (s *ConfidenceScorer) ReviewPriority(finalConfidence, confidenceThreshold float64) domain.ReviewPriority {
	return domain.DeriveReviewPriority(finalConfidence, confidenceThreshold, s.cfg.PriorityCutoffs)
}
