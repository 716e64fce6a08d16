package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) GetAPIKey(ctx context.Context, name string) (*domain.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT name, label, value, created_at, updated_at
FROM api_keys
WHERE name = $1
`, name)

	var key domain.APIKey
	if err := row.Scan(&key.Name, &key.Label, &key.Value, &key.CreatedAt, &key.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get api key", fmt.Errorf("name=%s", name))
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan api key", err)
	}
	return &key, nil
}

func (r *SettingsRepository) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, label, value, created_at, updated_at
FROM api_keys
ORDER BY name
`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list api keys", err)
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		if err := rows.Scan(&key.Name, &key.Label, &key.Value, &key.CreatedAt, &key.UpdatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan api key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate api keys", err)
	}
	return keys, nil
}

func (r *SettingsRepository) SetAPIKey(ctx context.Context, name, label, value string) (*domain.APIKey, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO api_keys (name, label, value, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (name) DO UPDATE SET label = EXCLUDED.label, value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING name, label, value, created_at, updated_at
`, name, label, value, now)

	var key domain.APIKey
	if err := row.Scan(&key.Name, &key.Label, &key.Value, &key.CreatedAt, &key.UpdatedAt); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "upsert api key", err)
	}
	return &key, nil
}

func (r *SettingsRepository) DeleteAPIKey(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE name = $1`, name)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete api key", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete api key rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete api key", fmt.Errorf("name=%s", name))
	}
	return nil
}

func (r *SettingsRepository) GetSetting(ctx context.Context, name string) (*domain.Setting, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT name, value, updated_at
FROM settings
WHERE name = $1
`, name)

	var setting domain.Setting
	if err := row.Scan(&setting.Name, &setting.Value, &setting.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get setting", fmt.Errorf("name=%s", name))
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan setting", err)
	}
	return &setting, nil
}

func (r *SettingsRepository) SetSetting(ctx context.Context, name, value string) (*domain.Setting, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO settings (name, value, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING name, value, updated_at
`, name, value, now)

	var setting domain.Setting
	if err := row.Scan(&setting.Name, &setting.Value, &setting.UpdatedAt); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "upsert setting", err)
	}
	return &setting, nil
}

func (r *SettingsRepository) DeleteSetting(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE name = $1`, name)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete setting", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "delete setting rows affected", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete setting", fmt.Errorf("name=%s", name))
	}
	return nil
}
