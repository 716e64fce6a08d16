// Package planprofile holds the deployment-tunable plan profile: the default
// template schema applied when no template document is supplied, and the
// thresholds behind batch quality flags.
package planprofile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

type Profile struct {
	DefaultTemplate TemplateConfig   `yaml:"default_template"`
	Quality         QualityConfig    `yaml:"quality"`
	PlanCategories  []CategoryConfig `yaml:"plan_categories"`
}

// CategoryConfig is one selectable plan category; the Norwegian label steers
// the generation instruction.
type CategoryConfig struct {
	ID      string `yaml:"id"`
	LabelNO string `yaml:"no"`
	LabelEN string `yaml:"en"`
}

type TemplateConfig struct {
	Name       string   `yaml:"name"`
	Sections   []string `yaml:"sections"`
	Categories []string `yaml:"categories"`
	Columns    []string `yaml:"columns"`
}

type QualityConfig struct {
	MinRooms            int     `yaml:"min_rooms"`
	MaxRooms            int     `yaml:"max_rooms"`
	MissingAreaFraction float64 `yaml:"missing_area_fraction"`
}

func Default() Profile {
	return Profile{
		DefaultTemplate: TemplateConfig{
			Name:     "Cleansync Standard",
			Sections: []string{"Daglig renhold", "Periodisk renhold"},
			Categories: []string{
				"office", "corridor", "wc", "meeting_room", "kitchen",
				"storage", "stairs", "entrance",
			},
			Columns: []string{"Rom", "Areal", "Etasje", "Beskrivelse", "Frekvens", "Merknad"},
		},
		Quality: QualityConfig{
			MinRooms:            1,
			MaxRooms:            150,
			MissingAreaFraction: 0.5,
		},
		PlanCategories: []CategoryConfig{
			{ID: "kontor", LabelNO: "Kontorbygg", LabelEN: "Office building"},
			{ID: "skole", LabelNO: "Skole og undervisning", LabelEN: "School and education"},
			{ID: "helse", LabelNO: "Helsebygg", LabelEN: "Healthcare facility"},
			{ID: "butikk", LabelNO: "Butikk og handel", LabelEN: "Retail"},
			{ID: "hotell", LabelNO: "Hotell og overnatting", LabelEN: "Hotel and lodging"},
			{ID: "industri", LabelNO: "Industri og lager", LabelEN: "Industrial and warehouse"},
		},
	}
}

// Load reads the profile from path, falling back to the built-in defaults
// when the file is absent. Unset fields inherit their default value.
func Load(path string) (Profile, error) {
	profile := Default()
	if path == "" {
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return profile, nil
		}
		return Profile{}, fmt.Errorf("read plan profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse plan profile: %w", err)
	}
	return profile.normalize(), nil
}

func (p Profile) normalize() Profile {
	def := Default()
	if p.DefaultTemplate.Name == "" {
		p.DefaultTemplate.Name = def.DefaultTemplate.Name
	}
	if p.Quality.MinRooms <= 0 {
		p.Quality.MinRooms = def.Quality.MinRooms
	}
	if p.Quality.MaxRooms <= p.Quality.MinRooms {
		p.Quality.MaxRooms = def.Quality.MaxRooms
	}
	if p.Quality.MissingAreaFraction <= 0 || p.Quality.MissingAreaFraction > 1 {
		p.Quality.MissingAreaFraction = def.Quality.MissingAreaFraction
	}
	if len(p.PlanCategories) == 0 {
		p.PlanCategories = def.PlanCategories
	}
	return p
}

// CategoryLabel resolves a plan-category id to its Norwegian label. Unknown
// or empty ids resolve to an empty label and leave generation unsteered.
func (p Profile) CategoryLabel(id string) string {
	for _, category := range p.PlanCategories {
		if category.ID == id {
			return category.LabelNO
		}
	}
	return ""
}

// Schema converts the template config to the domain shape used by the
// generation pipeline.
func (p Profile) Schema() domain.TemplateSchema {
	return domain.TemplateSchema{
		Name:       p.DefaultTemplate.Name,
		Sections:   p.DefaultTemplate.Sections,
		Categories: p.DefaultTemplate.Categories,
		Columns:    p.DefaultTemplate.Columns,
	}
}

// Flags computes the quality flags for one generated plan.
func (p Profile) Flags(plan domain.Plan) []string {
	var flags []string

	count := len(plan.Entries)
	if count < p.Quality.MinRooms || count > p.Quality.MaxRooms {
		flags = append(flags, "room_count_out_of_range")
	}

	if count > 0 {
		missing := 0
		for _, entry := range plan.Entries {
			if entry.AreaM2 == nil {
				missing++
			}
		}
		if float64(missing)/float64(count) > p.Quality.MissingAreaFraction {
			flags = append(flags, "missing_area_data")
		}
	}
	return flags
}
