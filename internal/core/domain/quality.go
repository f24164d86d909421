package domain

import "fmt"

// QualityMetrics is the per-metric breakdown returned by the vision
// capability, each on a 0-100 scale (noise inverted: higher is cleaner).
type QualityMetrics struct {
	Sharpness  float64 `json:"sharpness"`
	Contrast   float64 `json:"contrast"`
	Resolution float64 `json:"resolution"`
	Noise      float64 `json:"noise"`
}

// Metric weights for the overall score. Sharpness dominates because blur
// hurts character segmentation the most.
const (
	weightSharpness  = 0.35
	weightContrast   = 0.30
	weightResolution = 0.20
	weightNoise      = 0.15
)

func (m QualityMetrics) OverallScore() float64 {
	score := m.Sharpness*weightSharpness +
		m.Contrast*weightContrast +
		m.Resolution*weightResolution +
		m.Noise*weightNoise
	return clampScore(score)
}

// Issues lists human-readable quality problems for metrics below their
// acceptable floor.
func (m QualityMetrics) Issues() []string {
	var issues []string
	if m.Sharpness < 50 {
		issues = append(issues, fmt.Sprintf("image blur detected (sharpness %.1f)", m.Sharpness))
	}
	if m.Contrast < 50 {
		issues = append(issues, fmt.Sprintf("low contrast between text and background (contrast %.1f)", m.Contrast))
	}
	if m.Resolution < 50 {
		issues = append(issues, fmt.Sprintf("resolution below optimal level (resolution %.1f)", m.Resolution))
	}
	if m.Noise < 50 {
		issues = append(issues, fmt.Sprintf("significant noise present (noise %.1f)", m.Noise))
	}
	return issues
}

// QualityAssessment is the quality gate verdict for one set of bytes.
// A submission carries at most two: the initial assessment and, when
// preprocessing ran, the authoritative post-preprocessing one.
type QualityAssessment struct {
	Score   float64        `json:"score"`
	Metrics QualityMetrics `json:"metrics"`
	Passed  bool           `json:"passed"`
	Issues  []string       `json:"issues,omitempty"`
}

func NewQualityAssessment(metrics QualityMetrics, threshold float64) QualityAssessment {
	score := metrics.OverallScore()
	return QualityAssessment{
		Score:   score,
		Metrics: metrics,
		Passed:  score >= threshold,
		Issues:  metrics.Issues(),
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
