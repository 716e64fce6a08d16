package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

func seedConvertJob(t *testing.T, jobs *jobRepoFake, fileID string) *domain.Job {
	t.Helper()
	job := &domain.Job{
		ID:         "conv-1",
		Kind:       domain.KindConvert,
		Status:     domain.JobPending,
		TotalFiles: 1,
		Request:    domain.JobRequest{FileIDs: []string{fileID}},
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func TestConvertRunnerHappyPath(t *testing.T) {
	jobs := newJobRepoFake()
	plans := newPlanRepoFake()
	engine := &engineFake{}
	extractor := &extractorFake{text: "Renholdsplan: Gang moppes fredager."}
	seedConvertJob(t, jobs, "plan.pdf")

	uc := NewConvertRunnerUseCase(jobs, plans, extractor, engine, testConfigService())
	if err := uc.Run(context.Background(), "conv-1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	job, _ := jobs.GetByID(context.Background(), "conv-1")
	if job.Status != domain.JobSuccess {
		t.Fatalf("expected success, got %s (%s)", job.Status, job.Message)
	}
	if engine.lastText != extractor.text {
		t.Fatalf("extracted text not passed to engine: %q", engine.lastText)
	}

	stored, err := plans.GetByID(context.Background(), job.PlanID)
	if err != nil {
		t.Fatalf("stored plan missing: %v", err)
	}
	if stored.Source != domain.SourceConverter {
		t.Fatalf("expected converter source, got %s", stored.Source)
	}
	if stored.ExportID != "" {
		t.Fatalf("converted plans carry no export, got %q", stored.ExportID)
	}
}

func TestConvertRunnerUnsupportedDocumentFailsJob(t *testing.T) {
	jobs := newJobRepoFake()
	plans := newPlanRepoFake()
	extractor := &extractorFake{err: domain.WrapError(domain.ErrInvalidInput, "decode plan document", errors.New("binary"))}
	seedConvertJob(t, jobs, "plan.bin")

	uc := NewConvertRunnerUseCase(jobs, plans, extractor, &engineFake{}, testConfigService())
	if err := uc.Run(context.Background(), "conv-1"); err == nil {
		t.Fatalf("expected error")
	}

	job, _ := jobs.GetByID(context.Background(), "conv-1")
	if job.Status != domain.JobFailed {
		t.Fatalf("expected failed job, got %s", job.Status)
	}
	if job.Detail == nil || job.Detail.Kind != "invalid_input" {
		t.Fatalf("unexpected failure detail: %+v", job.Detail)
	}
}
