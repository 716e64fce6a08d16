package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
)

// defaultAPIKeyName is the credential the pipelines use unless an admin has
// stored a replacement under the same name.
const defaultAPIKeyName = "gemini"

// defaultSystemPrompt seeds every engine call until an admin overrides it.
const defaultSystemPrompt = "Du er en ekspert på renholdsplanlegging for næringsbygg. " +
	"Svar alltid presist, på norsk, og kun med gyldig JSON når du blir bedt om strukturert data."

// ConfigService assembles the per-pipeline configuration snapshot. The
// snapshot is taken once at pipeline start so concurrent admin edits never
// affect an in-flight job.
type ConfigService struct {
	settings ports.SettingsRepository
	// fallbackAPIKey covers deployments that configure the provider key via
	// environment instead of the admin surface.
	fallbackAPIKey string
}

func NewConfigService(settings ports.SettingsRepository, fallbackAPIKey string) *ConfigService {
	return &ConfigService{settings: settings, fallbackAPIKey: fallbackAPIKey}
}

func (s *ConfigService) Snapshot(ctx context.Context) (domain.ConfigSnapshot, error) {
	snap := domain.ConfigSnapshot{
		APIKey:       s.fallbackAPIKey,
		SystemPrompt: defaultSystemPrompt,
	}

	key, err := s.settings.GetAPIKey(ctx, defaultAPIKeyName)
	switch {
	case err == nil:
		snap.APIKey = key.Value
	case !domain.IsKind(err, domain.ErrNotFound):
		return domain.ConfigSnapshot{}, fmt.Errorf("load api key: %w", err)
	}
	if snap.APIKey == "" {
		return domain.ConfigSnapshot{}, domain.WrapError(domain.ErrInvalidInput, "load api key",
			fmt.Errorf("no provider credential configured under %q", defaultAPIKeyName))
	}

	prompt, err := s.settings.GetSetting(ctx, domain.SettingSystemPrompt)
	switch {
	case err == nil:
		snap.SystemPrompt = prompt.Value
	case !domain.IsKind(err, domain.ErrNotFound):
		return domain.ConfigSnapshot{}, fmt.Errorf("load system prompt: %w", err)
	}

	engine, err := s.settings.GetSetting(ctx, domain.SettingEngineConfig)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(engine.Value), &snap.Settings); err != nil {
			return domain.ConfigSnapshot{}, domain.WrapError(domain.ErrInvalidInput, "parse engine config", err)
		}
	case !domain.IsKind(err, domain.ErrNotFound):
		return domain.ConfigSnapshot{}, fmt.Errorf("load engine config: %w", err)
	}

	return snap, nil
}
