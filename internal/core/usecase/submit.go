package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
)

// SubmitUseCase turns client requests into pending jobs and hands them to the
// worker over the queue. Acceptance is cheap on purpose: no provider call
// happens before the client has its job id.
type SubmitUseCase struct {
	jobs  ports.JobRepository
	queue ports.MessageQueue

	maxBatchFiles int
}

func NewSubmitUseCase(jobs ports.JobRepository, queue ports.MessageQueue, maxBatchFiles int) *SubmitUseCase {
	if maxBatchFiles <= 0 {
		maxBatchFiles = 20
	}
	return &SubmitUseCase{jobs: jobs, queue: queue, maxBatchFiles: maxBatchFiles}
}

func (uc *SubmitUseCase) SubmitPlanJob(ctx context.Context, req domain.JobRequest) (*domain.Job, error) {
	if len(req.FileIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit plan job", errors.New("no floor-plan files supplied"))
	}
	return uc.accept(ctx, domain.KindPlan, req, nil)
}

func (uc *SubmitUseCase) SubmitConvertJob(ctx context.Context, fileID string) (*domain.Job, error) {
	if fileID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit convert job", errors.New("no plan document supplied"))
	}
	return uc.accept(ctx, domain.KindConvert, domain.JobRequest{FileIDs: []string{fileID}}, nil)
}

func (uc *SubmitUseCase) SubmitBatchJob(ctx context.Context, req domain.JobRequest) (*domain.Job, error) {
	if len(req.FileIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch job", errors.New("no floor-plan files supplied"))
	}
	if len(req.FileIDs) > uc.maxBatchFiles {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch job",
			fmt.Errorf("batch of %d exceeds limit of %d files", len(req.FileIDs), uc.maxBatchFiles))
	}

	// Items are pre-created pending, in submission order, so polling clients
	// see the full shape of the batch immediately.
	items := make([]domain.BatchItem, len(req.FileIDs))
	for i, fileID := range req.FileIDs {
		items[i] = domain.BatchItem{FileID: fileID, Status: domain.BatchItemPending}
	}
	return uc.accept(ctx, domain.KindBatch, req, items)
}

func (uc *SubmitUseCase) accept(ctx context.Context, kind domain.JobKind, req domain.JobRequest, items []domain.BatchItem) (*domain.Job, error) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Status:     domain.JobPending,
		TotalFiles: len(req.FileIDs),
		Request:    req,
		Items:      items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := uc.queue.PublishJobDispatch(ctx, domain.JobDispatch{Kind: kind, JobID: job.ID}); err != nil {
		return nil, fmt.Errorf("publish job dispatch: %w", err)
	}
	return job, nil
}

// JobQueryUseCase is the polling read model over jobs.
type JobQueryUseCase struct {
	jobs ports.JobRepository
}

func NewJobQueryUseCase(jobs ports.JobRepository) *JobQueryUseCase {
	return &JobQueryUseCase{jobs: jobs}
}

func (uc *JobQueryUseCase) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return uc.jobs.GetByID(ctx, id)
}
