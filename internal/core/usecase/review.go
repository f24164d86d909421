package usecase

import (
	"context"
	"fmt"

	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/core/ports"
)

const (
	defaultReviewPageSize = 20
	maxReviewPageSize     = 100
)

// ReviewQueueUseCase serves the manual-review backlog: paged listing,
// spreadsheet export, history lookups and aggregate statistics.
type ReviewQueueUseCase struct {
	history  ports.HistoryStore
	exporter ports.ReviewExporter
}

func NewReviewQueueUseCase(history ports.HistoryStore, exporter ports.ReviewExporter) *ReviewQueueUseCase {
	return &ReviewQueueUseCase{history: history, exporter: exporter}
}

// Queue lists documents routed to manual review, optionally narrowed to
// one priority, newest first.
func (uc *ReviewQueueUseCase) Queue(ctx context.Context, priority domain.ReviewPriority, limit, offset int) (*domain.ReviewQueuePage, error) {
	limit = clampPageSize(limit)
	if offset < 0 {
		offset = 0
	}

	query := domain.HistoryQuery{
		Status:   domain.HistoryStatusRequiresReview,
		Priority: priority,
		Limit:    limit,
		Offset:   offset,
	}
	records, total, err := uc.history.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}
	return &domain.ReviewQueuePage{
		Documents: records,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// Export renders the entire current review backlog as a spreadsheet.
func (uc *ReviewQueueUseCase) Export(ctx context.Context) ([]byte, error) {
	query := domain.HistoryQuery{Status: domain.HistoryStatusRequiresReview}
	records, _, err := uc.history.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query review queue for export: %w", err)
	}
	data, err := uc.exporter.ExportReviewQueue(records)
	if err != nil {
		return nil, fmt.Errorf("export review queue: %w", err)
	}
	return data, nil
}

// Record fetches one unexpired history record by document ID.
func (uc *ReviewQueueUseCase) Record(ctx context.Context, documentID string) (*domain.HistoryRecord, error) {
	record, err := uc.history.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch history record: %w", err)
	}
	return record, nil
}

// Statistics summarizes the live history.
func (uc *ReviewQueueUseCase) Statistics(ctx context.Context) (*domain.HistoryStatistics, error) {
	stats, err := uc.history.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("history statistics: %w", err)
	}
	return stats, nil
}

func clampPageSize(limit int) int {
	if limit <= 0 {
		return defaultReviewPageSize
	}
	if limit > maxReviewPageSize {
		return maxReviewPageSize
	}
	return limit
}
