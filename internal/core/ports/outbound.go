package ports

import (
	"context"
	"io"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

// JobRepository persists and mutates job state. Terminal statuses are final:
// implementations must refuse transitions out of success/failed.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	MarkRunning(ctx context.Context, id string) error
	MarkSuccess(ctx context.Context, id, planID string, processedFiles int) error
	MarkFailed(ctx context.Context, id string, message string, detail domain.FailureDetail) error
	UpdateBatchProgress(ctx context.Context, id string, processedFiles int, items []domain.BatchItem) error
}

// PlanRepository is the durable plan store. Plans are inserted once,
// atomically, when a job succeeds, and are immutable afterwards.
type PlanRepository interface {
	Save(ctx context.Context, plan *domain.StoredPlan) error
	GetByID(ctx context.Context, id string) (*domain.StoredPlan, error)
	ListRecent(ctx context.Context, limit int) ([]domain.PlanSummary, error)
}

// SettingsRepository is the versioned key/value config store backing admin
// configuration: API credentials, instruction text and engine tuning.
type SettingsRepository interface {
	GetAPIKey(ctx context.Context, name string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]domain.APIKey, error)
	SetAPIKey(ctx context.Context, name, label, value string) (*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, name string) error
	GetSetting(ctx context.Context, name string) (*domain.Setting, error)
	SetSetting(ctx context.Context, name, value string) (*domain.Setting, error)
	DeleteSetting(ctx context.Context, name string) error
}

// ObjectStorage stores uploaded source documents and generated exports,
// keyed by opaque file id.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue dispatches accepted jobs from the API process to the worker.
type MessageQueue interface {
	PublishJobDispatch(ctx context.Context, dispatch domain.JobDispatch) error
	SubscribeJobDispatch(ctx context.Context, handler func(context.Context, domain.JobDispatch) error) error
}

// ReasoningEngine is the single choke point for calls to the external
// multimodal provider. Results are raw extracted JSON: locating structured
// data is the gateway's job, validating domain shape is the normalizer's.
type ReasoningEngine interface {
	AnalyzeFloorPlan(ctx context.Context, snap domain.ConfigSnapshot, doc DocumentData, opts domain.FloorPlanOptions) ([]byte, error)
	AnalyzeTemplate(ctx context.Context, snap domain.ConfigSnapshot, doc DocumentData) ([]byte, error)
	GeneratePlan(ctx context.Context, snap domain.ConfigSnapshot, rooms []domain.Room, schema domain.TemplateSchema, planCategory string) ([]byte, error)
	ConvertPlan(ctx context.Context, snap domain.ConfigSnapshot, text string) ([]byte, error)
}

// DocumentData is one source document handed to the reasoning engine.
type DocumentData struct {
	Filename string
	MimeType string
	Data     []byte
}

// PlanExporter renders a plan into an exportable document.
type PlanExporter interface {
	Render(plan domain.Plan) ([]byte, error)
}

// PlanTextExtractor extracts plain text from a stored document for the
// conversion pipeline.
type PlanTextExtractor interface {
	Extract(ctx context.Context, fileID string) (string, error)
}
