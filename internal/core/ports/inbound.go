package ports

import (
	"context"
	"io"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

// FileUploader is the inbound contract for storing source documents.
type FileUploader interface {
	Upload(ctx context.Context, category, filename string, body io.Reader) (string, error)
}

// JobSubmitter accepts client requests and turns them into pending jobs.
type JobSubmitter interface {
	SubmitPlanJob(ctx context.Context, req domain.JobRequest) (*domain.Job, error)
	SubmitConvertJob(ctx context.Context, fileID string) (*domain.Job, error)
	SubmitBatchJob(ctx context.Context, req domain.JobRequest) (*domain.Job, error)
}

// JobReader is the polling surface for job state.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
}

// JobRunner executes one dispatched job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, jobID string) error
}

// PlanReader is the read model over stored plans.
type PlanReader interface {
	GetPlan(ctx context.Context, id string) (*domain.StoredPlan, error)
	ListPlans(ctx context.Context, limit int) ([]domain.PlanSummary, error)
}
