package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal job request: %w", err)
	}
	itemsJSON, err := marshalNullable(job.Items)
	if err != nil {
		return fmt.Errorf("marshal job items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO jobs (id, kind, status, total_files, processed_files, message, detail, plan_id, request, items, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		job.ID, string(job.Kind), string(job.Status), job.TotalFiles, job.ProcessedFiles,
		job.Message, nil, job.PlanID, requestJSON, itemsJSON, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "insert job", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, kind, status, total_files, processed_files, message, detail, plan_id, request, items, created_at, updated_at
FROM jobs
WHERE id = $1
`, id)

	var job domain.Job
	var kind, status string
	var detailRaw, requestRaw, itemsRaw []byte

	err := row.Scan(
		&job.ID, &kind, &status, &job.TotalFiles, &job.ProcessedFiles,
		&job.Message, &detailRaw, &job.PlanID, &requestRaw, &itemsRaw,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan job", err)
	}

	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	if len(detailRaw) > 0 {
		var detail domain.FailureDetail
		if err := json.Unmarshal(detailRaw, &detail); err != nil {
			return nil, fmt.Errorf("unmarshal job detail: %w", err)
		}
		job.Detail = &detail
	}
	if len(requestRaw) > 0 {
		if err := json.Unmarshal(requestRaw, &job.Request); err != nil {
			return nil, fmt.Errorf("unmarshal job request: %w", err)
		}
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &job.Items); err != nil {
			return nil, fmt.Errorf("unmarshal job items: %w", err)
		}
	}
	return &job, nil
}

// MarkRunning transitions pending → running. Terminal rows are never touched.
func (r *JobRepository) MarkRunning(ctx context.Context, id string) error {
	return r.transition(ctx, "mark job running", `
UPDATE jobs
SET status = $2, updated_at = $3
WHERE id = $1 AND status NOT IN ('success','failed')
`, id, string(domain.JobRunning), time.Now().UTC())
}

func (r *JobRepository) MarkSuccess(ctx context.Context, id, planID string, processedFiles int) error {
	return r.transition(ctx, "mark job success", `
UPDATE jobs
SET status = $2, plan_id = $3, processed_files = $4, message = '', detail = NULL, updated_at = $5
WHERE id = $1 AND status NOT IN ('success','failed')
`, id, string(domain.JobSuccess), planID, processedFiles, time.Now().UTC())
}

func (r *JobRepository) MarkFailed(ctx context.Context, id string, message string, detail domain.FailureDetail) error {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal failure detail: %w", err)
	}
	return r.transition(ctx, "mark job failed", `
UPDATE jobs
SET status = $2, message = $3, detail = $4, updated_at = $5
WHERE id = $1 AND status NOT IN ('success','failed')
`, id, string(domain.JobFailed), message, detailJSON, time.Now().UTC())
}

// UpdateBatchProgress rewrites the per-file sub-results and the monotonically
// increasing processed-file count of a running batch job.
func (r *JobRepository) UpdateBatchProgress(ctx context.Context, id string, processedFiles int, items []domain.BatchItem) error {
	itemsJSON, err := marshalNullable(items)
	if err != nil {
		return fmt.Errorf("marshal batch items: %w", err)
	}
	return r.transition(ctx, "update batch progress", `
UPDATE jobs
SET processed_files = GREATEST(processed_files, $2), items = $3, updated_at = $4
WHERE id = $1 AND status NOT IN ('success','failed')
`, id, processedFiles, itemsJSON, time.Now().UTC())
}

func (r *JobRepository) transition(ctx context.Context, operation, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, operation, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorage, operation+" rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, errors.New("job missing or already terminal"))
	}
	return nil
}

func marshalNullable[T any](items []T) (any, error) {
	if items == nil {
		return nil, nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
