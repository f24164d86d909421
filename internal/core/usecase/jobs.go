package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/core/ports"
)

// DocumentProcessor is the synchronous pipeline behind deferred jobs.
type DocumentProcessor interface {
	Process(ctx context.Context, sub domain.Submission) (*domain.ProcessingResult, error)
}

// JobManagerConfig bounds the asynchronous lane: at most MaxActiveJobs
// jobs may be pending or processing at once, and a single run is cut off
// after JobTimeout.
type JobManagerConfig struct {
	MaxActiveJobs int
	JobTimeout    time.Duration
}

func DefaultJobManagerConfig() JobManagerConfig {
	return JobManagerConfig{
		MaxActiveJobs: 100,
		JobTimeout:    180 * time.Second,
	}
}

// JobManagerUseCase owns the deferred-execution lifecycle: accept, queue,
// run with a deadline, expose state to pollers.
type JobManagerUseCase struct {
	jobs      ports.JobStore
	queue     ports.JobQueue
	processor DocumentProcessor
	cfg       JobManagerConfig
	now       func() time.Time
}

func NewJobManagerUseCase(
	jobs ports.JobStore,
	queue ports.JobQueue,
	processor DocumentProcessor,
	cfg JobManagerConfig,
) *JobManagerUseCase {
	if cfg.MaxActiveJobs <= 0 {
		cfg.MaxActiveJobs = DefaultJobManagerConfig().MaxActiveJobs
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobManagerConfig().JobTimeout
	}
	return &JobManagerUseCase{
		jobs:      jobs,
		queue:     queue,
		processor: processor,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SubmitAsync accepts a submission for deferred execution. The job is
// rejected outright when the active set is already at capacity; admission
// is never queued behind a full pool.
func (uc *JobManagerUseCase) SubmitAsync(ctx context.Context, sub domain.Submission) (*domain.Job, error) {
	if sub.ReturnFormat == "" {
		sub.ReturnFormat = domain.ReturnFull
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	active, err := uc.jobs.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active jobs: %w", err)
	}
	if active >= uc.cfg.MaxActiveJobs {
		return nil, domain.WrapError(domain.ErrOverloaded, "submit async",
			fmt.Errorf("%d active jobs at limit %d", active, uc.cfg.MaxActiveJobs))
	}

	if sub.DocumentID == "" {
		sub.DocumentID = uuid.NewString()
	}
	now := uc.now()
	job := &domain.Job{
		ID:         uuid.NewString(),
		DocumentID: sub.DocumentID,
		State:      domain.JobPending,
		Submission: sub,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := uc.queue.PublishJobQueued(ctx, job.ID); err != nil {
		failErr := uc.jobs.Fail(ctx, job.ID, domain.CodeInternal, "job could not be queued")
		if failErr != nil {
			return nil, fmt.Errorf("publish job: %w; mark failed: %v", err, failErr)
		}
		return nil, fmt.Errorf("publish job: %w", err)
	}
	return job, nil
}

// Status returns the job in its current state for pollers.
func (uc *JobManagerUseCase) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch job: %w", err)
	}
	return job, nil
}

// Run executes one queued job under the configured deadline. Redelivered
// IDs whose job already reached a terminal state are acknowledged without
// re-running the pipeline.
func (uc *JobManagerUseCase) Run(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch job: %w", err)
	}
	if job.State.Terminal() {
		return nil
	}

	if err := uc.jobs.MarkProcessing(ctx, jobID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, uc.cfg.JobTimeout)
	defer cancel()

	result, err := uc.processor.Process(runCtx, job.Submission)
	if err != nil {
		code := domain.ErrorCode(err)
		if failErr := uc.jobs.Fail(ctx, jobID, code, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed: %v", err, failErr)
		}
		return err
	}

	if err := uc.jobs.Complete(ctx, jobID, result); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// EstimateSeconds predicts the wall-clock cost of a submission from the
// stages it enables and the payload size. Storage-referenced sources are
// costed as one megabyte until resolved.
func (uc *JobManagerUseCase) EstimateSeconds(sub domain.Submission) int {
	sizeMB := float64(len(sub.Source.InlineData)) / (1 << 20)
	if sub.Source.StorageKey != "" {
		sizeMB = 1
	}

	estimate := 1.0
	if sub.EnableOCR {
		ocrCost := sizeMB * 2
		if ocrCost > 6 {
			ocrCost = 6
		}
		if ocrCost < 1 {
			ocrCost = 1
		}
		estimate += ocrCost
	}
	if sub.EnableEnhancement {
		estimate += 25
	}
	return int(estimate + 0.5)
}
