package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

func TestSubmitPlanJobCreatesPendingJobAndDispatches(t *testing.T) {
	jobs := newJobRepoFake()
	queue := &queueFake{}
	uc := NewSubmitUseCase(jobs, queue, 0)

	job, err := uc.SubmitPlanJob(context.Background(), domain.JobRequest{FileIDs: []string{"f-1", "f-2"}})
	if err != nil {
		t.Fatalf("SubmitPlanJob() error = %v", err)
	}
	if job.Status != domain.JobPending {
		t.Fatalf("expected pending job, got %s", job.Status)
	}
	if job.TotalFiles != 2 {
		t.Fatalf("expected 2 total files, got %d", job.TotalFiles)
	}
	if len(queue.dispatches) != 1 || queue.dispatches[0].JobID != job.ID || queue.dispatches[0].Kind != domain.KindPlan {
		t.Fatalf("unexpected dispatch: %+v", queue.dispatches)
	}
}

func TestSubmitPlanJobRequiresFiles(t *testing.T) {
	uc := NewSubmitUseCase(newJobRepoFake(), &queueFake{}, 0)

	_, err := uc.SubmitPlanJob(context.Background(), domain.JobRequest{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitBatchJobPrecreatesPendingItems(t *testing.T) {
	jobs := newJobRepoFake()
	uc := NewSubmitUseCase(jobs, &queueFake{}, 0)

	job, err := uc.SubmitBatchJob(context.Background(), domain.JobRequest{FileIDs: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("SubmitBatchJob() error = %v", err)
	}
	if len(job.Items) != 3 {
		t.Fatalf("expected 3 pending items, got %d", len(job.Items))
	}
	for i, item := range job.Items {
		if item.Status != domain.BatchItemPending {
			t.Fatalf("item %d not pending: %+v", i, item)
		}
	}
	if job.Items[0].FileID != "a" || job.Items[2].FileID != "c" {
		t.Fatalf("items not in submission order: %+v", job.Items)
	}
}

func TestSubmitBatchJobEnforcesLimit(t *testing.T) {
	uc := NewSubmitUseCase(newJobRepoFake(), &queueFake{}, 2)

	_, err := uc.SubmitBatchJob(context.Background(), domain.JobRequest{FileIDs: []string{"a", "b", "c"}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitConvertJobQueueFailureSurfaces(t *testing.T) {
	uc := NewSubmitUseCase(newJobRepoFake(), &queueFake{err: errors.New("queue down")}, 0)

	_, err := uc.SubmitConvertJob(context.Background(), "f-1")
	if err == nil {
		t.Fatalf("expected error")
	}
}
