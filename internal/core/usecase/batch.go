package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/normalize"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
	"github.com/oyvindhag/cleansync/internal/planprofile"
)

// BatchRunnerUseCase processes one batch job: every file becomes its own
// independent plan. Member failures are recorded on their item and do not
// fail the batch; only infrastructure faults (job store, plan store) take the
// whole job down, since they make further results unrecordable.
type BatchRunnerUseCase struct {
	jobs    ports.JobRepository
	plans   ports.PlanRepository
	storage ports.ObjectStorage
	engine  ports.ReasoningEngine
	config  *ConfigService
	profile planprofile.Profile

	workers      int
	itemObserver func(status string)
}

func NewBatchRunnerUseCase(
	jobs ports.JobRepository,
	plans ports.PlanRepository,
	storage ports.ObjectStorage,
	engine ports.ReasoningEngine,
	config *ConfigService,
	profile planprofile.Profile,
	workers int,
) *BatchRunnerUseCase {
	if workers <= 0 {
		workers = 2
	}
	return &BatchRunnerUseCase{
		jobs:    jobs,
		plans:   plans,
		storage: storage,
		engine:  engine,
		config:  config,
		profile: profile,
		workers: workers,
	}
}

// WithItemObserver registers a callback invoked once per terminal batch item.
func (uc *BatchRunnerUseCase) WithItemObserver(observer func(status string)) *BatchRunnerUseCase {
	uc.itemObserver = observer
	return uc
}

func (uc *BatchRunnerUseCase) Run(ctx context.Context, jobID string) error {
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

	if err := uc.processAll(ctx, job); err != nil {
		return failJob(ctx, uc.jobs, jobID, err)
	}
	writeCtx, cancel := terminalWriteContext(ctx)
	defer cancel()
	if err := uc.jobs.MarkSuccess(writeCtx, jobID, "", job.TotalFiles); err != nil {
		return fmt.Errorf("mark job success: %w", err)
	}
	return nil
}

func (uc *BatchRunnerUseCase) processAll(ctx context.Context, job *domain.Job) error {
	snap, err := uc.config.Snapshot(ctx)
	if err != nil {
		return err
	}
	// The template, when given, applies uniformly: resolved once, before the
	// fan-out, so every item generates against the same schema.
	schema, err := resolveTemplateSchema(ctx, uc.storage, uc.engine, uc.profile, snap, job.Request.TemplateID)
	if err != nil {
		return err
	}
	category := uc.profile.CategoryLabel(job.Request.Options.PlanCategory)

	// Items keep their submission-order slots; concurrent completions only
	// ever write their own index.
	items := make([]domain.BatchItem, len(job.Request.FileIDs))
	for i, fileID := range job.Request.FileIDs {
		items[i] = domain.BatchItem{FileID: fileID, Status: domain.BatchItemPending}
	}

	var mu sync.Mutex
	processed := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.workers)
	for i, fileID := range job.Request.FileIDs {
		i, fileID := i, fileID
		group.Go(func() error {
			item := uc.processItem(groupCtx, snap, schema, category, job, fileID)

			mu.Lock()
			defer mu.Unlock()
			items[i] = item
			processed++
			if uc.itemObserver != nil {
				uc.itemObserver(string(item.Status))
			}

			snapshot := make([]domain.BatchItem, len(items))
			copy(snapshot, items)
			if err := uc.jobs.UpdateBatchProgress(groupCtx, job.ID, processed, snapshot); err != nil {
				return fmt.Errorf("record batch progress: %w", err)
			}
			if item.Error != nil && item.Error.Kind == "storage_error" {
				return domain.WrapError(domain.ErrStorage, "batch item "+fileID,
					fmt.Errorf("%s", item.Error.Message))
			}
			return nil
		})
	}
	return group.Wait()
}

func (uc *BatchRunnerUseCase) processItem(
	ctx context.Context,
	snap domain.ConfigSnapshot,
	schema domain.TemplateSchema,
	category string,
	job *domain.Job,
	fileID string,
) domain.BatchItem {
	item := domain.BatchItem{FileID: fileID}

	stored, flags, err := uc.generateOne(ctx, snap, schema, category, job, fileID)
	if err != nil {
		detail := domain.ClassifyFailure(err)
		item.Status = domain.BatchItemFailed
		item.Error = &detail
		return item
	}

	item.Status = domain.BatchItemSuccess
	item.PlanID = stored.ID
	item.Flags = flags
	return item
}

func (uc *BatchRunnerUseCase) generateOne(
	ctx context.Context,
	snap domain.ConfigSnapshot,
	schema domain.TemplateSchema,
	category string,
	job *domain.Job,
	fileID string,
) (*domain.StoredPlan, []string, error) {
	started := time.Now()

	doc, err := loadDocument(ctx, uc.storage, localfs.CategoryUploads, fileID)
	if err != nil {
		return nil, nil, err
	}
	raw, err := uc.engine.AnalyzeFloorPlan(ctx, snap, doc, job.Request.Options)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze %s: %w", fileID, err)
	}
	rooms, err := normalize.Rooms(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize %s: %w", fileID, err)
	}

	rawPlan, err := uc.engine.GeneratePlan(ctx, snap, rooms, schema, category)
	if err != nil {
		return nil, nil, fmt.Errorf("generate plan for %s: %w", fileID, err)
	}
	plan, err := normalize.Plan(rawPlan, domain.SourceBatch)
	if err != nil {
		return nil, nil, err
	}
	plan.ID = uuid.NewString()
	plan.CreatedAt = time.Now().UTC()
	if plan.TemplateName == "" {
		plan.TemplateName = schema.Name
	}

	flags := uc.profile.Flags(plan)
	stored := &domain.StoredPlan{
		ID:     plan.ID,
		Source: domain.SourceBatch,
		Plan:   plan,
		Request: map[string]any{
			"batch_job_id": job.ID,
			"file_id":      fileID,
			"options":      job.Request.Options,
		},
		Metadata: map[string]any{
			"room_count":    len(rooms),
			"plan_category": job.Request.Options.PlanCategory,
			"flags":         flags,
		},
		CreatedAt:    plan.CreatedAt,
		GenerationMS: time.Since(started).Milliseconds(),
	}
	if err := uc.plans.Save(ctx, stored); err != nil {
		return nil, nil, err
	}
	return stored, flags, nil
}
