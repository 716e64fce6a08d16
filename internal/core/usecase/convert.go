package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/normalize"
	"github.com/oyvindhag/cleansync/internal/core/ports"
)

// ConvertRunnerUseCase drives one conversion job: extract the text of an
// externally authored plan document and have the engine restate it in the
// standard plan format.
type ConvertRunnerUseCase struct {
	jobs      ports.JobRepository
	plans     ports.PlanRepository
	extractor ports.PlanTextExtractor
	engine    ports.ReasoningEngine
	config    *ConfigService
}

func NewConvertRunnerUseCase(
	jobs ports.JobRepository,
	plans ports.PlanRepository,
	extractor ports.PlanTextExtractor,
	engine ports.ReasoningEngine,
	config *ConfigService,
) *ConvertRunnerUseCase {
	return &ConvertRunnerUseCase{
		jobs:      jobs,
		plans:     plans,
		extractor: extractor,
		engine:    engine,
		config:    config,
	}
}

func (uc *ConvertRunnerUseCase) Run(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch job: %w", err)
	}
	if job.Status.Terminal() {
		return nil
	}
	if err := uc.jobs.MarkRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	started := time.Now()
	stored, err := uc.pipeline(ctx, job)
	if err != nil {
		return failJob(ctx, uc.jobs, jobID, err)
	}
	stored.GenerationMS = time.Since(started).Milliseconds()

	writeCtx, cancel := terminalWriteContext(ctx)
	defer cancel()
	if err := uc.plans.Save(writeCtx, stored); err != nil {
		return failJob(ctx, uc.jobs, jobID, err)
	}
	if err := uc.jobs.MarkSuccess(writeCtx, jobID, stored.ID, 1); err != nil {
		return fmt.Errorf("mark job success: %w", err)
	}
	return nil
}

func (uc *ConvertRunnerUseCase) pipeline(ctx context.Context, job *domain.Job) (*domain.StoredPlan, error) {
	if len(job.Request.FileIDs) != 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "convert plan",
			errors.New("conversion expects exactly one document"))
	}
	fileID := job.Request.FileIDs[0]

	snap, err := uc.config.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	text, err := uc.extractor.Extract(ctx, fileID)
	if err != nil {
		return nil, err
	}

	raw, err := uc.engine.ConvertPlan(ctx, snap, text)
	if err != nil {
		return nil, fmt.Errorf("convert plan: %w", err)
	}
	plan, err := normalize.Plan(raw, domain.SourceConverter)
	if err != nil {
		return nil, err
	}
	plan.ID = uuid.NewString()
	plan.CreatedAt = time.Now().UTC()

	return &domain.StoredPlan{
		ID:     plan.ID,
		Source: domain.SourceConverter,
		Plan:   plan,
		Request: map[string]any{
			"file_id": fileID,
		},
		Metadata: map[string]any{
			"entry_count": len(plan.Entries),
			"text_length": len(text),
		},
		CreatedAt: plan.CreatedAt,
	}, nil
}
