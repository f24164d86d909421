package domain

// Correction is one text fix proposed by the enhancement capability.
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
}

// EnhancementResult is present iff OCR succeeded and enhancement was
// requested and succeeded. Enhancement failures never fail the pipeline.
type EnhancementResult struct {
	EnhancedText string       `json:"enhanced_text"`
	Corrections  []Correction `json:"corrections"`
	TokensUsed   int          `json:"tokens_used"`
}
