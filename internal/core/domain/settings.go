package domain

import "time"

// Setting names used by the admin surface.
const (
	SettingSystemPrompt = "system_prompt"
	SettingEngineConfig = "engine_config"
)

// APIKey is a stored provider credential. Value is never exposed whole on the
// admin surface, only its last four characters.
type APIKey struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Value     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting is one admin-editable configuration value. A present row means the
// built-in default is overridden.
type Setting struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobDispatch is the queue envelope handed from the API to the worker.
type JobDispatch struct {
	Kind  JobKind `json:"kind"`
	JobID string  `json:"job_id"`
}
