package usecase

import (
	"context"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
)

// PlanQueryUseCase is the read model over stored plans.
type PlanQueryUseCase struct {
	plans ports.PlanRepository
}

func NewPlanQueryUseCase(plans ports.PlanRepository) *PlanQueryUseCase {
	return &PlanQueryUseCase{plans: plans}
}

func (uc *PlanQueryUseCase) GetPlan(ctx context.Context, id string) (*domain.StoredPlan, error) {
	return uc.plans.GetByID(ctx, id)
}

func (uc *PlanQueryUseCase) ListPlans(ctx context.Context, limit int) ([]domain.PlanSummary, error) {
	return uc.plans.ListRecent(ctx, limit)
}
