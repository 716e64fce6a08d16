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

	"github.com/oyvindhag/cleansync/internal/bootstrap"
	"github.com/oyvindhag/cleansync/internal/config"
	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/observability/logging"
	"github.com/oyvindhag/cleansync/internal/observability/metrics"
)

const serviceName = "cleansync-worker"

// jobTimeout bounds a single dispatched job, batches included.
const jobTimeout = 15 * time.Minute

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	workerMet := metrics.NewWorkerMetrics(serviceName)

	app, err := bootstrap.New(ctx, cfg, workerMet)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMet),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	runners := map[domain.JobKind]ports.JobRunner{
		domain.KindPlan:    app.PlanRunner,
		domain.KindConvert: app.ConvertRunner,
		domain.KindBatch:   app.BatchRunner,
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJobDispatch(ctx, func(handlerCtx context.Context, dispatch domain.JobDispatch) error {
		runner, ok := runners[dispatch.Kind]
		if !ok {
			slog.Error("discard_unknown_job_kind", "kind", dispatch.Kind, "job_id", dispatch.JobID)
			return nil
		}

		if job, err := app.JobRepo.GetByID(handlerCtx, dispatch.JobID); err == nil {
			workerMet.ObserveQueueLag(serviceName, time.Since(job.CreatedAt))
		}

		runCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		workerMet.StartJob()
		start := time.Now()
		runErr := runner.Run(runCtx, dispatch.JobID)
		workerMet.FinishJob(serviceName, string(dispatch.Kind), time.Since(start), runErr)
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsHandler(workerMet *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMet.Handler())
	return mux
}
