package domain

import "time"

// StageTimings records wall-clock seconds spent per pipeline stage.
// Stages that were skipped stay at zero.
type StageTimings struct {
	QualitySeconds     float64 `json:"quality_seconds"`
	PreprocessSeconds  float64 `json:"preprocess_seconds,omitempty"`
	OCRSeconds         float64 `json:"ocr_seconds,omitempty"`
	EnhancementSeconds float64 `json:"enhancement_seconds,omitempty"`
	TotalSeconds       float64 `json:"total_seconds"`
}

// ProcessingResult aggregates everything one pipeline run produced. It is
// the unit returned to the caller and persisted in history.
type ProcessingResult struct {
	DocumentID string     `json:"document_id"`
	Filename   string     `json:"filename,omitempty"`
	Format     FileFormat `json:"format"`
	SizeBytes  int        `json:"size_bytes"`
	PageCount  int        `json:"page_count,omitempty"`

	Quality     *QualityAssessment `json:"quality,omitempty"`
	OCR         *OCRResult         `json:"ocr,omitempty"`
	Enhancement *EnhancementResult `json:"enhancement,omitempty"`
	Confidence  ConfidenceReport   `json:"confidence"`

	Preprocessed bool     `json:"preprocessed"`
	Warnings     []string `json:"warnings,omitempty"`

	Timings   StageTimings `json:"timings"`
	CreatedAt time.Time    `json:"created_at"`
}

// FinalText is the best text available: enhanced when present, raw OCR
// otherwise, empty when extraction never ran.
func (r *ProcessingResult) FinalText() string {
	if r.Enhancement != nil {
		return r.Enhancement.EnhancedText
	}
	if r.OCR != nil {
		return r.OCR.Text
	}
	return ""
}

// ResultView is the caller-facing projection of a ProcessingResult.
type ResultView struct {
	DocumentID      string          `json:"document_id"`
	RoutingDecision RoutingDecision `json:"routing_decision"`
	FinalConfidence float64         `json:"final_confidence"`
	Text            string          `json:"text,omitempty"`

	Format      FileFormat         `json:"format,omitempty"`
	Quality     *QualityAssessment `json:"quality,omitempty"`
	OCR         *OCRResult         `json:"ocr,omitempty"`
	Enhancement *EnhancementResult `json:"enhancement,omitempty"`
	Confidence  *ConfidenceReport  `json:"confidence,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	Metrics     *ResultMetrics     `json:"processing_metrics,omitempty"`
	CreatedAt   *time.Time         `json:"created_at,omitempty"`
}

// ResultMetrics is the processing_metrics block of the full projection.
type ResultMetrics struct {
	Timings            StageTimings `json:"timings"`
	WordsExtracted     int          `json:"words_extracted"`
	CorrectionsApplied int          `json:"corrections_applied"`
	Preprocessed       bool         `json:"preprocessed"`
}

// Project renders the result in the requested return format:
// full carries every sub-result, minimal only the routing essentials,
// ocr_only just the extraction-stage fields.
func (r *ProcessingResult) Project(format ReturnFormat) ResultView {
	view := ResultView{
		DocumentID:      r.DocumentID,
		RoutingDecision: r.Confidence.RoutingDecision,
		FinalConfidence: r.Confidence.FinalConfidence,
		Text:            r.FinalText(),
	}

	switch format {
	case ReturnMinimal:
		return view
	case ReturnOCROnly:
		view.OCR = r.OCR
		view.Format = r.Format
		return view
	default:
		corrections := 0
		if r.Enhancement != nil {
			corrections = len(r.Enhancement.Corrections)
		}
		words := 0
		if r.OCR != nil {
			words = r.OCR.WordCount
		}
		created := r.CreatedAt
		confidence := r.Confidence

		view.Format = r.Format
		view.Quality = r.Quality
		view.OCR = r.OCR
		view.Enhancement = r.Enhancement
		view.Confidence = &confidence
		view.Warnings = r.Warnings
		view.CreatedAt = &created
		view.Metrics = &ResultMetrics{
			Timings:            r.Timings,
			WordsExtracted:     words,
			CorrectionsApplied: corrections,
			Preprocessed:       r.Preprocessed,
		}
		return view
	}
}
