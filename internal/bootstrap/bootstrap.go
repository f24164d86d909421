package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/vbelyaev/docgate/internal/config"
	"github.com/vbelyaev/docgate/internal/core/domain"
	"github.com/vbelyaev/docgate/internal/core/ports"
	"github.com/vbelyaev/docgate/internal/core/usecase"
	"github.com/vbelyaev/docgate/internal/infrastructure/export"
	natsqueue "github.com/vbelyaev/docgate/internal/infrastructure/queue/nats"
	"github.com/vbelyaev/docgate/internal/infrastructure/remote"
	"github.com/vbelyaev/docgate/internal/infrastructure/repository/postgres"
	"github.com/vbelyaev/docgate/internal/infrastructure/resilience"
	"github.com/vbelyaev/docgate/internal/infrastructure/source"
	"github.com/vbelyaev/docgate/internal/infrastructure/storage/localfs"
)

// App holds every wired component shared by the api and worker binaries.
type App struct {
	Config config.Config

	Queue   ports.JobQueue
	History ports.HistoryStore

	Process *usecase.ProcessDocumentUseCase
	Jobs    *usecase.JobManagerUseCase
	Review  *usecase.ReviewQueueUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	history := postgres.NewHistoryRepository(db, retention)
	jobRepo := postgres.NewJobRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	// Each capability gets its own executor so breaker state is isolated:
	// a flapping enhancer must not open the circuit in front of extraction.
	queuePolicy := resilience.DefaultPolicy()
	queuePolicy.Retry.InitialDelay = 50 * time.Millisecond
	queuePolicy.Retry.MaxDelay = 500 * time.Millisecond
	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: resilience.NewExecutor(queuePolicy),
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	// Enhancement is best-effort; give up quickly and let the pipeline
	// fall back to the raw extraction.
	enhancerPolicy := resilience.DefaultPolicy()
	enhancerPolicy.Retry.MaxAttempts = 2

	remoteTimeout := time.Duration(cfg.RemoteTimeoutSeconds) * time.Second
	vision := remote.NewVisionClient(remote.NewClient(cfg.VisionURL, remoteTimeout, resilience.NewExecutor(resilience.DefaultPolicy())))
	extractor := remote.NewOCRClient(remote.NewClient(cfg.OCRURL, remoteTimeout, resilience.NewExecutor(resilience.DefaultPolicy())))
	enhancer := remote.NewEnhancerClient(remote.NewClient(cfg.EnhancerURL, remoteTimeout, resilience.NewExecutor(enhancerPolicy)))

	resolver := source.NewResolver(storage, cfg.MaxDocumentBytes)
	scorer := usecase.NewConfidenceScorer(usecase.ScorerConfig{
		WeightQuality: cfg.WeightQuality,
		WeightOCR:     cfg.WeightOCR,
		PriorityCutoffs: domain.PriorityCutoffs{
			High:   cfg.PriorityHighCutoff,
			Medium: cfg.PriorityMediumCutoff,
		},
	})

	processUC := usecase.NewProcessDocumentUseCase(
		resolver, vision, extractor, enhancer, history, scorer,
		usecase.PipelineConfig{
			DefaultQualityThreshold:    cfg.QualityThreshold,
			DefaultConfidenceThreshold: cfg.ConfidenceThreshold,
			Retention:                  retention,
		},
	)
	jobsUC := usecase.NewJobManagerUseCase(jobRepo, queue, processUC, usecase.JobManagerConfig{
		MaxActiveJobs: cfg.MaxActiveJobs,
		JobTimeout:    time.Duration(cfg.JobTimeoutSeconds) * time.Second,
	})
	reviewUC := usecase.NewReviewQueueUseCase(history, export.NewXLSXExporter())

	return &App{
		Config:  cfg,
		Queue:   queue,
		History: history,
		Process: processUC,
		Jobs:    jobsUC,
		Review:  reviewUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
