package domain

// RoutingDecision steers a document to automatic acceptance or human review.
type RoutingDecision string

const (
	RoutePass           RoutingDecision = "pass"
	RouteRequiresReview RoutingDecision = "requires_review"
)

// ConfidenceReport blends quality and extraction confidence into the final
// routing verdict. Immutable once computed.
type ConfidenceReport struct {
	ImageQualityScore     float64         `json:"image_quality_score"`
	OCRConfidenceScore    float64         `json:"ocr_confidence_score"`
	FinalConfidence       float64         `json:"final_confidence"`
	QualityCheckPassed    bool            `json:"quality_check_passed"`
	ConfidenceCheckPassed bool            `json:"confidence_check_passed"`
	RoutingDecision       RoutingDecision `json:"routing_decision"`
	RoutingReason         string          `json:"routing_reason"`
}
