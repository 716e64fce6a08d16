package domain

import "time"

// Weekdays recognized in a plan entry frequency map, in week order.
// The keys follow the Norwegian short forms used across stored plans.
var Weekdays = []string{"MAN", "TIRS", "ONS", "TORS", "FRE", "LØR", "SØN"}

type PlanSource string

const (
	SourceGenerator PlanSource = "generator"
	SourceConverter PlanSource = "converter"
	SourceBatch     PlanSource = "batch"
)

// Room is one physical space extracted from a floor-plan document.
// AreaM2 is nil when the source document does not allow deriving an area.
type Room struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Floor  string   `json:"floor,omitempty"`
	AreaM2 *float64 `json:"area_m2"`
	Notes  string   `json:"notes,omitempty"`
}

// PlanEntry is one row of a cleaning plan. RowID is a dense 1..N sequence in
// provider-output order; Frequency always carries exactly the seven weekdays.
type PlanEntry struct {
	RowID       int             `json:"row_id"`
	RoomName    string          `json:"room_name"`
	AreaM2      *float64        `json:"area_m2"`
	Floor       string          `json:"floor,omitempty"`
	Description string          `json:"description"`
	Frequency   map[string]bool `json:"frequency"`
	Notes       string          `json:"notes,omitempty"`
}

type Plan struct {
	ID           string      `json:"id"`
	Entries      []PlanEntry `json:"entries"`
	TotalAreaM2  float64     `json:"total_area_m2"`
	TemplateName string      `json:"template_name,omitempty"`
	Source       PlanSource  `json:"source"`
	CreatedAt    time.Time   `json:"created_at"`
}

// TotalArea sums the entry areas that are present. Nil areas contribute zero.
func (p Plan) TotalArea() float64 {
	var total float64
	for _, entry := range p.Entries {
		if entry.AreaM2 != nil {
			total += *entry.AreaM2
		}
	}
	return total
}

// TemplateSchema is the structure inferred from an example plan document,
// used to shape generated output.
type TemplateSchema struct {
	Name       string   `json:"name,omitempty"`
	Sections   []string `json:"sections,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Columns    []string `json:"columns,omitempty"`
}

func (s TemplateSchema) IsZero() bool {
	return s.Name == "" && len(s.Sections) == 0 && len(s.Categories) == 0 && len(s.Columns) == 0
}

// StoredPlan is the durable record of a generated plan.
type StoredPlan struct {
	ID           string         `json:"id"`
	Source       PlanSource     `json:"source"`
	Plan         Plan           `json:"plan"`
	Request      map[string]any `json:"request,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ExportID     string         `json:"export_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	GenerationMS int64          `json:"generation_ms"`
}

// PlanSummary is the listing shape: metadata without the entry list.
type PlanSummary struct {
	ID           string         `json:"id"`
	Source       PlanSource     `json:"source"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ExportID     string         `json:"export_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	GenerationMS int64          `json:"generation_ms"`
}
