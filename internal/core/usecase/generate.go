package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/normalize"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
	"github.com/oyvindhag/cleansync/internal/planprofile"
)

// PlanRunnerUseCase drives one plan-generation job to a terminal state:
// analyze each floor-plan document, infer or apply a template, generate the
// plan, normalize it, render the export and persist the result. The pipeline
// is all or nothing; any stage failure fails the whole job.
type PlanRunnerUseCase struct {
	jobs     ports.JobRepository
	plans    ports.PlanRepository
	storage  ports.ObjectStorage
	engine   ports.ReasoningEngine
	exporter ports.PlanExporter
	config   *ConfigService
	profile  planprofile.Profile

	maxConcurrentAnalyses int
}

func NewPlanRunnerUseCase(
	jobs ports.JobRepository,
	plans ports.PlanRepository,
	storage ports.ObjectStorage,
	engine ports.ReasoningEngine,
	exporter ports.PlanExporter,
	config *ConfigService,
	profile planprofile.Profile,
	maxConcurrentAnalyses int,
) *PlanRunnerUseCase {
	if maxConcurrentAnalyses <= 0 {
		maxConcurrentAnalyses = 3
	}
	return &PlanRunnerUseCase{
		jobs:                  jobs,
		plans:                 plans,
		storage:               storage,
		engine:                engine,
		exporter:              exporter,
		config:                config,
		profile:               profile,
		maxConcurrentAnalyses: maxConcurrentAnalyses,
	}
}

func (uc *PlanRunnerUseCase) Run(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch job: %w", err)
	}
	// Queue redelivery of a finished job is a no-op.
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
	if err := uc.jobs.MarkSuccess(writeCtx, jobID, stored.ID, job.TotalFiles); err != nil {
		return fmt.Errorf("mark job success: %w", err)
	}
	return nil
}

func (uc *PlanRunnerUseCase) pipeline(ctx context.Context, job *domain.Job) (*domain.StoredPlan, error) {
	snap, err := uc.config.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rooms, err := uc.analyzeAll(ctx, snap, job.Request.FileIDs, job.Request.Options)
	if err != nil {
		return nil, err
	}

	schema, err := resolveTemplateSchema(ctx, uc.storage, uc.engine, uc.profile, snap, job.Request.TemplateID)
	if err != nil {
		return nil, err
	}

	category := uc.profile.CategoryLabel(job.Request.Options.PlanCategory)
	raw, err := uc.engine.GeneratePlan(ctx, snap, rooms, schema, category)
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	plan, err := normalize.Plan(raw, domain.SourceGenerator)
	if err != nil {
		return nil, err
	}
	plan.ID = uuid.NewString()
	plan.CreatedAt = time.Now().UTC()
	if plan.TemplateName == "" {
		plan.TemplateName = schema.Name
	}

	exportID, err := uc.export(ctx, plan)
	if err != nil {
		return nil, err
	}

	return &domain.StoredPlan{
		ID:     plan.ID,
		Source: domain.SourceGenerator,
		Plan:   plan,
		Request: map[string]any{
			"file_ids":    job.Request.FileIDs,
			"template_id": job.Request.TemplateID,
			"options":     job.Request.Options,
		},
		Metadata: map[string]any{
			"file_count":    len(job.Request.FileIDs),
			"room_count":    len(rooms),
			"plan_category": job.Request.Options.PlanCategory,
			"flags":         uc.profile.Flags(plan),
		},
		ExportID:  exportID,
		CreatedAt: plan.CreatedAt,
	}, nil
}

// analyzeAll runs the per-document analyses with bounded concurrency and
// collects the rooms in submission order regardless of completion order.
func (uc *PlanRunnerUseCase) analyzeAll(
	ctx context.Context,
	snap domain.ConfigSnapshot,
	fileIDs []string,
	opts domain.FloorPlanOptions,
) ([]domain.Room, error) {
	perFile := make([][]domain.Room, len(fileIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.maxConcurrentAnalyses)
	for i, fileID := range fileIDs {
		i, fileID := i, fileID
		group.Go(func() error {
			doc, err := loadDocument(groupCtx, uc.storage, localfs.CategoryUploads, fileID)
			if err != nil {
				return err
			}
			raw, err := uc.engine.AnalyzeFloorPlan(groupCtx, snap, doc, opts)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", fileID, err)
			}
			rooms, err := normalize.Rooms(raw)
			if err != nil {
				return fmt.Errorf("normalize %s: %w", fileID, err)
			}
			perFile[i] = rooms
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.Room
	for i, rooms := range perFile {
		for _, room := range rooms {
			// Floor tags must stay distinct per source document, even when
			// the model labels two documents with the same floor.
			if len(fileIDs) > 1 {
				if room.Floor == "" {
					room.Floor = fmt.Sprintf("Plan %d", i+1)
				} else {
					room.Floor = fmt.Sprintf("%s (Plan %d)", room.Floor, i+1)
				}
			}
			merged = append(merged, room)
		}
	}
	return merged, nil
}

func (uc *PlanRunnerUseCase) export(ctx context.Context, plan domain.Plan) (string, error) {
	rendered, err := uc.exporter.Render(plan)
	if err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}
	exportID := plan.ID + ".xlsx"
	if err := uc.storage.Save(ctx, localfs.Key(localfs.CategoryExports, exportID), bytes.NewReader(rendered)); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}
	return exportID, nil
}
