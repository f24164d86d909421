package ports

import (
	"context"
	"io"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// SourceResolver turns a submission's source descriptor into bytes plus a
// detected format. Fails fast on unsupported or undecodable input.
type SourceResolver interface {
	Resolve(ctx context.Context, source domain.SourceDescriptor) (*domain.ResolvedSource, error)
}

// VisionService is the remote image capability: perceptual quality metrics
// and best-effort preprocessing.
type VisionService interface {
	AssessQuality(ctx context.Context, data []byte) (domain.QualityMetrics, error)
	Preprocess(ctx context.Context, data []byte) ([]byte, error)
}

// TextExtractor is the remote OCR capability.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (*domain.OCRResult, error)
}

// TextEnhancer is the remote LLM post-correction capability.
type TextEnhancer interface {
	Enhance(ctx context.Context, text string) (*domain.EnhancementResult, error)
}

// ObjectStorage stores source documents referenced by storage key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// HistoryStore persists processing results with a retention window.
// Every read filters out expired records; Insert also removes any records
// that have already expired.
type HistoryStore interface {
	Insert(ctx context.Context, record *domain.HistoryRecord) error
	GetByDocumentID(ctx context.Context, documentID string) (*domain.HistoryRecord, error)
	Query(ctx context.Context, query domain.HistoryQuery) ([]domain.HistoryRecord, int, error)
	Statistics(ctx context.Context) (*domain.HistoryStatistics, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// JobStore persists the asynchronous job table. Transition methods guard
// the forward-only state machine at the storage layer.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result *domain.ProcessingResult) error
	Fail(ctx context.Context, id, errorCode, errorMessage string) error
	CountActive(ctx context.Context) (int, error)
}

// ReviewExporter renders review-queue records into a downloadable file.
type ReviewExporter interface {
	ExportReviewQueue(records []domain.HistoryRecord) ([]byte, error)
}

// JobQueue dispatches queued job IDs from the API to workers.
type JobQueue interface {
	PublishJobQueued(ctx context.Context, jobID string) error
	SubscribeJobQueued(ctx context.Context, handler func(context.Context, string) error) error
}
