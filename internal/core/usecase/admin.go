package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
)

// AdminUseCase backs the admin configuration surface. Credential values never
// leave this layer whole; listings expose only a masked suffix.
type AdminUseCase struct {
	settings ports.SettingsRepository
}

func NewAdminUseCase(settings ports.SettingsRepository) *AdminUseCase {
	return &AdminUseCase{settings: settings}
}

// MaskedAPIKey is the admin-surface view of a stored credential.
type MaskedAPIKey struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	ValueHint string `json:"value_hint"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func maskKey(key domain.APIKey) MaskedAPIKey {
	hint := key.Value
	if len(hint) > 4 {
		hint = "..." + hint[len(hint)-4:]
	}
	return MaskedAPIKey{
		Name:      key.Name,
		Label:     key.Label,
		ValueHint: hint,
		CreatedAt: key.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: key.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (uc *AdminUseCase) ListAPIKeys(ctx context.Context) ([]MaskedAPIKey, error) {
	keys, err := uc.settings.ListAPIKeys(ctx)
	if err != nil {
		return nil, err
	}
	masked := make([]MaskedAPIKey, 0, len(keys))
	for _, key := range keys {
		masked = append(masked, maskKey(key))
	}
	return masked, nil
}

func (uc *AdminUseCase) SetAPIKey(ctx context.Context, name, label, value string) (MaskedAPIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MaskedAPIKey{}, domain.WrapError(domain.ErrInvalidInput, "set api key", errors.New("missing key name"))
	}
	if strings.TrimSpace(value) == "" {
		return MaskedAPIKey{}, domain.WrapError(domain.ErrInvalidInput, "set api key", errors.New("missing key value"))
	}
	key, err := uc.settings.SetAPIKey(ctx, name, label, value)
	if err != nil {
		return MaskedAPIKey{}, err
	}
	return maskKey(*key), nil
}

func (uc *AdminUseCase) DeleteAPIKey(ctx context.Context, name string) error {
	return uc.settings.DeleteAPIKey(ctx, name)
}

// GetSystemPrompt returns the stored override, or the built-in default when
// no override exists.
func (uc *AdminUseCase) GetSystemPrompt(ctx context.Context) (string, bool, error) {
	setting, err := uc.settings.GetSetting(ctx, domain.SettingSystemPrompt)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return defaultSystemPrompt, false, nil
		}
		return "", false, err
	}
	return setting.Value, true, nil
}

func (uc *AdminUseCase) SetSystemPrompt(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "set system prompt", errors.New("empty prompt"))
	}
	_, err := uc.settings.SetSetting(ctx, domain.SettingSystemPrompt, prompt)
	return err
}

// ResetSystemPrompt removes the override so the built-in default applies.
func (uc *AdminUseCase) ResetSystemPrompt(ctx context.Context) error {
	err := uc.settings.DeleteSetting(ctx, domain.SettingSystemPrompt)
	if domain.IsKind(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (uc *AdminUseCase) GetEngineSettings(ctx context.Context) (domain.EngineSettings, error) {
	setting, err := uc.settings.GetSetting(ctx, domain.SettingEngineConfig)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return domain.EngineSettings{}, nil
		}
		return domain.EngineSettings{}, err
	}
	var engine domain.EngineSettings
	if err := json.Unmarshal([]byte(setting.Value), &engine); err != nil {
		return domain.EngineSettings{}, domain.WrapError(domain.ErrInvalidInput, "parse engine config", err)
	}
	return engine, nil
}

func (uc *AdminUseCase) SetEngineSettings(ctx context.Context, engine domain.EngineSettings) error {
	if err := validateEngineSettings(engine); err != nil {
		return err
	}
	raw, err := json.Marshal(engine)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "encode engine config", err)
	}
	_, err = uc.settings.SetSetting(ctx, domain.SettingEngineConfig, string(raw))
	return err
}

func validateEngineSettings(engine domain.EngineSettings) error {
	if engine.Temperature != nil && (*engine.Temperature < 0 || *engine.Temperature > 2) {
		return domain.WrapError(domain.ErrInvalidInput, "validate engine config",
			errors.New("temperature must be within [0, 2]"))
	}
	if engine.TopP != nil && (*engine.TopP < 0 || *engine.TopP > 1) {
		return domain.WrapError(domain.ErrInvalidInput, "validate engine config",
			errors.New("top_p must be within [0, 1]"))
	}
	switch engine.MediaResolution {
	case "", "low", "medium", "high":
	default:
		return domain.WrapError(domain.ErrInvalidInput, "validate engine config",
			errors.New("media_resolution must be low, medium or high"))
	}
	return nil
}
