package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

func TestSettingsRepositorySetSettingUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSettingsRepository(db)
	rows := sqlmock.NewRows([]string{"name", "value", "updated_at"}).
		AddRow(domain.SettingSystemPrompt, "Ny prompt", time.Now())

	mock.ExpectQuery("INSERT INTO settings").
		WithArgs(domain.SettingSystemPrompt, "Ny prompt", sqlmock.AnyArg()).
		WillReturnRows(rows)

	setting, err := repo.SetSetting(context.Background(), domain.SettingSystemPrompt, "Ny prompt")
	if err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	if setting.Value != "Ny prompt" {
		t.Fatalf("unexpected setting: %+v", setting)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSettingsRepositoryGetSettingNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSettingsRepository(db)
	mock.ExpectQuery("FROM settings").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err = repo.GetSetting(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsRepositoryDeleteAPIKeyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewSettingsRepository(db)
	mock.ExpectExec("DELETE FROM api_keys").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DeleteAPIKey(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
