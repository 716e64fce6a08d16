package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/normalize"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
	"github.com/oyvindhag/cleansync/internal/planprofile"
)

// terminalWriteTimeout bounds status writes issued after a run context has
// already expired.
const terminalWriteTimeout = 10 * time.Second

// terminalWriteContext detaches a status write from the run deadline. A job
// that failed because its deadline expired must still reach a terminal state.
func terminalWriteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
}

// failJob records the classified terminal failure for a run and returns the
// original run error.
func failJob(ctx context.Context, jobs ports.JobRepository, jobID string, runErr error) error {
	detail := domain.ClassifyFailure(runErr)
	writeCtx, cancel := terminalWriteContext(ctx)
	defer cancel()
	if err := jobs.MarkFailed(writeCtx, jobID, detail.Message, detail); err != nil {
		return fmt.Errorf("%w; mark failed status: %v", runErr, err)
	}
	return runErr
}

// resolveTemplateSchema turns a stored template document into the schema used
// for plan generation. No template id means the profile default; an analyzed
// schema that normalizes to zero also falls back to the default.
func resolveTemplateSchema(
	ctx context.Context,
	storage ports.ObjectStorage,
	engine ports.ReasoningEngine,
	profile planprofile.Profile,
	snap domain.ConfigSnapshot,
	templateID string,
) (domain.TemplateSchema, error) {
	if templateID == "" {
		return profile.Schema(), nil
	}

	doc, err := loadDocument(ctx, storage, localfs.CategoryTemplates, templateID)
	if err != nil {
		return domain.TemplateSchema{}, err
	}
	raw, err := engine.AnalyzeTemplate(ctx, snap, doc)
	if err != nil {
		return domain.TemplateSchema{}, fmt.Errorf("analyze template: %w", err)
	}
	schema, err := normalize.Template(raw)
	if err != nil {
		return domain.TemplateSchema{}, err
	}
	if schema.IsZero() {
		return profile.Schema(), nil
	}
	return schema, nil
}
