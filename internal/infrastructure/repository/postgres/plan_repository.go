package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Save(ctx context.Context, plan *domain.StoredPlan) error {
	planJSON, err := json.Marshal(plan.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	requestJSON, err := marshalNullableMap(plan.Request)
	if err != nil {
		return fmt.Errorf("marshal plan request: %w", err)
	}
	metadataJSON, err := marshalNullableMap(plan.Metadata)
	if err != nil {
		return fmt.Errorf("marshal plan metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO generated_plans (id, source, plan, request, metadata, export_id, created_at, generation_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		plan.ID, string(plan.Source), planJSON, requestJSON, metadataJSON,
		plan.ExportID, plan.CreatedAt, plan.GenerationMS,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "insert plan", err)
	}
	return nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*domain.StoredPlan, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, source, plan, request, metadata, export_id, created_at, generation_ms
FROM generated_plans
WHERE id = $1
`, id)

	var stored domain.StoredPlan
	var source string
	var planRaw, requestRaw, metadataRaw []byte

	err := row.Scan(
		&stored.ID, &source, &planRaw, &requestRaw, &metadataRaw,
		&stored.ExportID, &stored.CreatedAt, &stored.GenerationMS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get plan", fmt.Errorf("id=%s", id))
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan plan", err)
	}

	stored.Source = domain.PlanSource(source)
	if err := json.Unmarshal(planRaw, &stored.Plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	if len(requestRaw) > 0 {
		if err := json.Unmarshal(requestRaw, &stored.Request); err != nil {
			return nil, fmt.Errorf("unmarshal plan request: %w", err)
		}
	}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &stored.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal plan metadata: %w", err)
		}
	}
	return &stored, nil
}

func (r *PlanRepository) ListRecent(ctx context.Context, limit int) ([]domain.PlanSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, source, metadata, export_id, created_at, generation_ms
FROM generated_plans
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list plans", err)
	}
	defer rows.Close()

	summaries := make([]domain.PlanSummary, 0, limit)
	for rows.Next() {
		var summary domain.PlanSummary
		var source string
		var metadataRaw []byte
		if err := rows.Scan(&summary.ID, &source, &metadataRaw, &summary.ExportID, &summary.CreatedAt, &summary.GenerationMS); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan plan summary", err)
		}
		summary.Source = domain.PlanSource(source)
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &summary.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal plan metadata: %w", err)
			}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate plans", err)
	}
	return summaries, nil
}

func marshalNullableMap(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
