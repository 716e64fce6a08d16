package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/oyvindhag/cleansync/internal/config"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/core/usecase"
	"github.com/oyvindhag/cleansync/internal/infrastructure/export/xlsx"
	"github.com/oyvindhag/cleansync/internal/infrastructure/extractor/plantext"
	"github.com/oyvindhag/cleansync/internal/infrastructure/llm/gemini"
	"github.com/oyvindhag/cleansync/internal/infrastructure/queue/nats"
	"github.com/oyvindhag/cleansync/internal/infrastructure/repository/postgres"
	"github.com/oyvindhag/cleansync/internal/infrastructure/resilience"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
	"github.com/oyvindhag/cleansync/internal/observability/metrics"
	"github.com/oyvindhag/cleansync/internal/planprofile"
)

const workerServiceName = "cleansync-worker"

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Storage  ports.ObjectStorage
	UploadUC ports.FileUploader
	SubmitUC ports.JobSubmitter
	JobsUC   ports.JobReader
	PlansUC  ports.PlanReader
	AdminUC  *usecase.AdminUseCase

	PlanRunner    ports.JobRunner
	ConvertRunner ports.JobRunner
	BatchRunner   *usecase.BatchRunnerUseCase

	JobRepo ports.JobRepository

	closeFn func()
}

// New wires the full dependency graph. WorkerMet may be nil for the API
// process; engine call metrics are then not recorded.
func New(ctx context.Context, cfg config.Config, workerMet *metrics.WorkerMetrics) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobRepo := postgres.NewJobRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: time.Duration(cfg.RetryInitialDelayMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond,
		Multiplier:     2.0,
		BreakerEnabled: cfg.BreakerEnabled,
		BreakerOpenFor: time.Duration(cfg.BreakerOpenForSec) * time.Second,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	engine := gemini.New(
		cfg.GeminiBaseURL,
		cfg.GeminiModel,
		time.Duration(cfg.GeminiCallTimeout)*time.Second,
		executor,
	)
	if workerMet != nil {
		engine.WithCallRecorder(func(capability, outcome string) {
			workerMet.RecordEngineCall(workerServiceName, capability, outcome)
		})
	}

	profile, err := planprofile.Load(cfg.PlanProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load plan profile: %w", err)
	}

	configSvc := usecase.NewConfigService(settingsRepo, cfg.GeminiAPIKey)
	extractor := plantext.New(storage, cfg.MaxUploadBytes)
	exporter := xlsx.New()

	uploadUC := usecase.NewUploadUseCase(storage)
	submitUC := usecase.NewSubmitUseCase(jobRepo, queue, cfg.MaxBatchFiles)
	jobsUC := usecase.NewJobQueryUseCase(jobRepo)
	plansUC := usecase.NewPlanQueryUseCase(planRepo)
	adminUC := usecase.NewAdminUseCase(settingsRepo)

	planRunner := usecase.NewPlanRunnerUseCase(
		jobRepo, planRepo, storage, engine, exporter, configSvc, profile, cfg.MaxConcurrentAnalyses,
	)
	convertRunner := usecase.NewConvertRunnerUseCase(jobRepo, planRepo, extractor, engine, configSvc)
	batchRunner := usecase.NewBatchRunnerUseCase(
		jobRepo, planRepo, storage, engine, configSvc, profile, cfg.BatchWorkers,
	)
	if workerMet != nil {
		batchRunner.WithItemObserver(func(status string) {
			workerMet.RecordBatchItem(workerServiceName, status)
		})
	}

	return &App{
		Config: cfg,

		Queue:    queue,
		Storage:  storage,
		UploadUC: uploadUC,
		SubmitUC: submitUC,
		JobsUC:   jobsUC,
		PlansUC:  plansUC,
		AdminUC:  adminUC,

		PlanRunner:    planRunner,
		ConvertRunner: convertRunner,
		BatchRunner:   batchRunner,

		JobRepo: jobRepo,

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
