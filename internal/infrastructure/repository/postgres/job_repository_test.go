package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

func TestJobRepositoryGetByIDDecodesJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	rows := sqlmock.NewRows([]string{"id", "kind", "status", "total_files", "processed_files", "message", "detail", "plan_id", "request", "items", "created_at", "updated_at"}).
		AddRow("j-1", string(domain.KindBatch), string(domain.JobRunning), 2, 1, "",
			[]byte(`{"kind":"transient_provider_error","message":"overloaded","retryable":true}`),
			"",
			[]byte(`{"file_ids":["f-1","f-2"]}`),
			[]byte(`[{"file_id":"f-1","status":"success"},{"file_id":"f-2","status":"pending"}]`),
			time.Now(), time.Now())

	mock.ExpectQuery("FROM jobs").
		WithArgs("j-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "j-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Detail == nil || !job.Detail.Retryable {
		t.Fatalf("expected retryable failure detail, got %+v", job.Detail)
	}
	if len(job.Request.FileIDs) != 2 || len(job.Items) != 2 {
		t.Fatalf("request/items not decoded: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectQuery("FROM jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobRepositoryMarkFailedSkipsTerminalRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("UPDATE jobs").
		WithArgs("j-1", string(domain.JobFailed), "boom", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkFailed(context.Background(), "j-1", "boom", domain.FailureDetail{Kind: "internal_error", Message: "boom"})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for terminal row, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryMarkSuccessUpdatesPlanAndCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("UPDATE jobs").
		WithArgs("j-1", string(domain.JobSuccess), "p-1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkSuccess(context.Background(), "j-1", "p-1", 3); err != nil {
		t.Fatalf("MarkSuccess() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
