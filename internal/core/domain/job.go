package domain

import "time"

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailed
}

type JobKind string

const (
	KindPlan    JobKind = "plan"
	KindConvert JobKind = "convert"
	KindBatch   JobKind = "batch"
)

// Job tracks one asynchronous pipeline invocation. It is created pending at
// request time, mutated only by the orchestrator that owns it, and exactly one
// job maps to exactly one plan on success.
type Job struct {
	ID             string         `json:"id"`
	Kind           JobKind        `json:"kind"`
	Status         JobStatus      `json:"status"`
	TotalFiles     int            `json:"total_files"`
	ProcessedFiles int            `json:"processed_files"`
	Message        string         `json:"message,omitempty"`
	Detail         *FailureDetail `json:"detail,omitempty"`
	PlanID         string         `json:"plan_id,omitempty"`
	Request        JobRequest     `json:"request"`
	Items          []BatchItem    `json:"items,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// JobRequest is the client payload persisted with the job so the worker can
// run the pipeline without re-reading request state from the API process.
type JobRequest struct {
	FileIDs    []string         `json:"file_ids"`
	TemplateID string           `json:"template_id,omitempty"`
	Options    FloorPlanOptions `json:"options"`
}

type BatchItemStatus string

const (
	BatchItemPending BatchItemStatus = "pending"
	BatchItemSuccess BatchItemStatus = "success"
	BatchItemFailed  BatchItemStatus = "failed"
)

// BatchItem is the per-file sub-result of a batch job, ordered by submission.
type BatchItem struct {
	FileID string          `json:"file_id"`
	Status BatchItemStatus `json:"status"`
	Error  *FailureDetail  `json:"error,omitempty"`
	PlanID string          `json:"plan_id,omitempty"`
	Flags  []string        `json:"flags,omitempty"`
}

// BatchCounts aggregates terminal item outcomes.
func (j Job) BatchCounts() (succeeded, failed int) {
	for _, item := range j.Items {
		switch item.Status {
		case BatchItemSuccess:
			succeeded++
		case BatchItemFailed:
			failed++
		}
	}
	return succeeded, failed
}

// FloorPlanOptions steer how the reasoning engine fills gaps in a floor plan.
// When HasArea is false a reference measurement, if supplied, lets the engine
// estimate areas; without one the pipeline still runs in degraded mode.
type FloorPlanOptions struct {
	HasRoomNames   bool     `json:"has_room_names"`
	HasArea        bool     `json:"has_area"`
	ReferenceLabel string   `json:"reference_label,omitempty"`
	ReferenceWidth *float64 `json:"reference_width,omitempty"`
	ReferenceUnit  string   `json:"reference_unit,omitempty"`
	PlanCategory   string   `json:"plan_category,omitempty"`
}

// EngineSettings is admin-editable model tuning. Nil fields are omitted from
// provider calls so the provider default applies.
type EngineSettings struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	MediaResolution string   `json:"media_resolution,omitempty"`
}

// ConfigSnapshot is the immutable per-pipeline view of admin configuration,
// taken once at pipeline start. A concurrent admin edit never affects an
// in-flight job.
type ConfigSnapshot struct {
	APIKey       string
	SystemPrompt string
	Settings     EngineSettings
}
