package domain

import "time"

// HistoryStatus is the persisted outcome of a pipeline run. Successful runs
// keep their routing decision; fatal failures are recorded as failed.
const (
	HistoryStatusPass           = string(RoutePass)
	HistoryStatusRequiresReview = string(RouteRequiresReview)
	HistoryStatusFailed         = "failed"
)

// ReviewPriority orders the manual-review queue.
type ReviewPriority string

const (
	PriorityHigh   ReviewPriority = "high"
	PriorityMedium ReviewPriority = "medium"
	PriorityLow    ReviewPriority = "low"
)

// PriorityCutoffs are fractions of the confidence threshold below which a
// reviewed document is bumped to higher priority.
type PriorityCutoffs struct {
	High   float64
	Medium float64
}

func DefaultPriorityCutoffs() PriorityCutoffs {
	return PriorityCutoffs{High: 0.5, Medium: 0.85}
}

// DeriveReviewPriority grades urgency by how far the final confidence fell
// below the threshold that would have let the document pass.
func DeriveReviewPriority(finalConfidence, confidenceThreshold float64, cutoffs PriorityCutoffs) ReviewPriority {
	switch {
	case finalConfidence < cutoffs.High*confidenceThreshold:
		return PriorityHigh
	case finalConfidence < cutoffs.Medium*confidenceThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// HistoryRecord is a time-bounded persisted record of one pipeline run.
// Once ExpiresAt passes, the record is invisible to every read path and
// eligible for physical deletion.
type HistoryRecord struct {
	DocumentID string            `json:"document_id"`
	Status     string            `json:"status"`
	Priority   ReviewPriority    `json:"priority,omitempty"`
	Result     *ProcessingResult `json:"result,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h HistoryRecord) Expired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// HistoryQuery filters history reads. Zero values mean "any".
type HistoryQuery struct {
	Status   string
	Priority ReviewPriority
	Limit    int
	Offset   int
}

// HistoryStatistics summarizes the live (unexpired) history.
type HistoryStatistics struct {
	TotalRecords       int                `json:"total_records"`
	PassedRecords      int                `json:"passed_records"`
	ReviewRecords      int                `json:"review_records"`
	FailedRecords      int                `json:"failed_records"`
	SuccessRate        float64            `json:"success_rate"`
	FormatDistribution map[FileFormat]int `json:"format_distribution"`
	AverageTimeSeconds float64            `json:"average_time_seconds"`
	RetentionDays      int                `json:"retention_days"`
}

// ReviewQueuePage is one page of the manual-review queue.
type ReviewQueuePage struct {
	Documents []HistoryRecord `json:"documents"`
	Total     int             `json:"total"`
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
}
