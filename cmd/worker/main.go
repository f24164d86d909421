package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vbelyaev/docgate/internal/bootstrap"
	"github.com/vbelyaev/docgate/internal/config"
	"github.com/vbelyaev/docgate/internal/observability/logging"
	"github.com/vbelyaev/docgate/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("docgate-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	purger := cron.New()
	if _, err := purger.AddFunc("@hourly", func() {
		purgeCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		purged, err := app.History.PurgeExpired(purgeCtx)
		if err != nil {
			slog.Error("history_purge_failed", "error", err)
			return
		}
		workerMetrics.RecordPurged("worker", purged)
		if purged > 0 {
			slog.Info("history_purged", "records", purged)
		}
	}); err != nil {
		log.Fatalf("schedule purge error: %v", err)
	}
	purger.Start()
	defer purger.Stop()

	// Each delivery takes a semaphore slot so at most WorkerConcurrency
	// jobs run on one worker process.
	semaphore := make(chan struct{}, cfg.WorkerConcurrency)
	slog.Info("worker_subscribed",
		"subject", cfg.NATSSubject,
		"concurrency", cfg.WorkerConcurrency,
	)

	err = app.Queue.SubscribeJobQueued(ctx, func(handlerCtx context.Context, jobID string) error {
		select {
		case semaphore <- struct{}{}:
		case <-handlerCtx.Done():
			return handlerCtx.Err()
		}
		defer func() { <-semaphore }()

		if job, statusErr := app.Jobs.Status(handlerCtx, jobID); statusErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(job.CreatedAt))
		}

		workerMetrics.StartJob()
		start := time.Now()
		runErr := app.Jobs.Run(handlerCtx, jobID)
		workerMetrics.FinishJob("worker", time.Since(start), runErr)

		if runErr == nil {
			observeStageTimings(handlerCtx, app, workerMetrics, jobID)
		}
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func observeStageTimings(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, jobID string) {
	job, err := app.Jobs.Status(ctx, jobID)
	if err != nil || job.Result == nil {
		return
	}
	timings := job.Result.Timings
	m.ObserveStage("worker", "quality", timings.QualitySeconds)
	if timings.PreprocessSeconds > 0 {
		m.ObserveStage("worker", "preprocess", timings.PreprocessSeconds)
	}
	if timings.OCRSeconds > 0 {
		m.ObserveStage("worker", "ocr", timings.OCRSeconds)
	}
	if timings.EnhancementSeconds > 0 {
		m.ObserveStage("worker", "enhancement", timings.EnhancementSeconds)
	}
}

func startMetricsServer(port string, m *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		slog.Info("worker_metrics_listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	return server
}
