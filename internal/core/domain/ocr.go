package domain

// ConfidenceDistribution buckets recognized words by per-token confidence:
// high >= 95%, medium 80-95%, low 60-80%, very low < 60%.
type ConfidenceDistribution struct {
	High    int `json:"high"`
	Medium  int `json:"medium"`
	Low     int `json:"low"`
	VeryLow int `json:"very_low"`
}

func (d ConfidenceDistribution) TotalWords() int {
	return d.High + d.Medium + d.Low + d.VeryLow
}

// QualityLabel grades the extraction from the bucket mix. Buckets are
// weighted 1.0 / 0.7 / 0.3 / 0 from high to very low.
func (d ConfidenceDistribution) QualityLabel() string {
	total := d.TotalWords()
	if total == 0 {
		return "no_data"
	}
	score := (float64(d.High)*1.0 + float64(d.Medium)*0.7 + float64(d.Low)*0.3) / float64(total)
	switch {
	case score >= 0.95 && d.VeryLow == 0:
		return "excellent"
	case score >= 0.85 && d.VeryLow <= 1:
		return "good"
	case score >= 0.70:
		return "acceptable"
	case score >= 0.50:
		return "poor"
	default:
		return "very_poor"
	}
}

// OCRResult is present iff text extraction was attempted and succeeded.
type OCRResult struct {
	Text            string                 `json:"text"`
	WordCount       int                    `json:"word_count"`
	ConfidenceScore float64                `json:"confidence_score"`
	Distribution    ConfidenceDistribution `json:"confidence_distribution"`
}
