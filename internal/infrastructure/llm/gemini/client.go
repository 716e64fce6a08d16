// Package gemini is the gateway for all calls to the external multimodal
// reasoning provider. It builds call payloads, classifies failures and
// retries transient ones; response payloads are returned as raw extracted
// JSON and validated by the normalizer, not here.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/infrastructure/resilience"
)

const (
	CapabilityAnalyzeFloorPlan  = "analyze_floorplan"
	CapabilityAnalyzeTemplate   = "analyze_template"
	CapabilityGeneratePlan      = "generate_plan"
	CapabilityConvertToStandard = "convert_to_standard"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor

	// record, when set, observes every provider call by capability/outcome.
	record func(capability, outcome string)
}

func New(baseURL, model string, callTimeout time.Duration, executor *resilience.Executor) *Client {
	if callTimeout <= 0 {
		callTimeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: callTimeout},
		executor:   executor,
	}
}

func (c *Client) WithCallRecorder(record func(capability, outcome string)) *Client {
	c.record = record
	return c
}

func (c *Client) AnalyzeFloorPlan(ctx context.Context, snap domain.ConfigSnapshot, doc ports.DocumentData, opts domain.FloorPlanOptions) ([]byte, error) {
	optsJSON, err := json.Marshal(map[string]any{"floorplan_config": opts})
	if err != nil {
		return nil, fmt.Errorf("marshal floorplan options: %w", err)
	}

	parts := []part{
		{Text: buildFloorPlanInstruction(snap.SystemPrompt, opts)},
		{Text: string(optsJSON)},
		c.inlinePart(doc, snap.Settings),
	}
	return c.generate(ctx, snap, CapabilityAnalyzeFloorPlan, parts)
}

func (c *Client) AnalyzeTemplate(ctx context.Context, snap domain.ConfigSnapshot, doc ports.DocumentData) ([]byte, error) {
	parts := []part{
		{Text: buildTemplateInstruction(snap.SystemPrompt)},
		c.inlinePart(doc, snap.Settings),
	}
	return c.generate(ctx, snap, CapabilityAnalyzeTemplate, parts)
}

func (c *Client) GeneratePlan(ctx context.Context, snap domain.ConfigSnapshot, rooms []domain.Room, schema domain.TemplateSchema, planCategory string) ([]byte, error) {
	roomsJSON, err := json.Marshal(map[string]any{"rooms": rooms})
	if err != nil {
		return nil, fmt.Errorf("marshal rooms payload: %w", err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal template schema: %w", err)
	}

	parts := []part{
		{Text: buildGenerateInstruction(snap.SystemPrompt, planCategory)},
		{Text: string(roomsJSON)},
		{Text: "Bruk mal: " + string(schemaJSON)},
	}
	return c.generate(ctx, snap, CapabilityGeneratePlan, parts)
}

func (c *Client) ConvertPlan(ctx context.Context, snap domain.ConfigSnapshot, text string) ([]byte, error) {
	parts := []part{
		{Text: buildConvertInstruction(snap.SystemPrompt)},
		{Text: text},
	}
	return c.generate(ctx, snap, CapabilityConvertToStandard, parts)
}

func (c *Client) generate(ctx context.Context, snap domain.ConfigSnapshot, capability string, parts []part) ([]byte, error) {
	request := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:      snap.Settings.Temperature,
			TopP:             snap.Settings.TopP,
			ResponseMimeType: "application/json",
		},
	}

	var text string
	call := func(callCtx context.Context) error {
		responseText, err := c.post(callCtx, snap.APIKey, capability, request)
		if err != nil {
			return err
		}
		text = responseText
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Do(ctx, "gemini."+capability, call, classifyProviderError)
	} else {
		err = call(ctx)
	}
	c.observe(capability, err)
	if err != nil {
		return nil, wrapProviderError(capability, err)
	}
	return extractPayload(text), nil
}

// inlinePart embeds the document bytes with a media-resolution hint: images
// high, PDFs medium, admin override wins.
func (c *Client) inlinePart(doc ports.DocumentData, settings domain.EngineSettings) part {
	p := part{InlineData: &inlineData{
		MimeType: doc.MimeType,
		Data:     base64.StdEncoding.EncodeToString(doc.Data),
	}}

	resolution := settings.MediaResolution
	if resolution == "" {
		switch {
		case strings.HasPrefix(doc.MimeType, "image/"):
			resolution = "high"
		case doc.MimeType == "application/pdf":
			resolution = "medium"
		}
	}
	if level, ok := mediaResolutionLevels[strings.ToLower(resolution)]; ok {
		p.MediaResolution = &mediaResolution{Level: level}
	}
	return p
}

var mediaResolutionLevels = map[string]string{
	"low":    "MEDIA_RESOLUTION_LOW",
	"medium": "MEDIA_RESOLUTION_MEDIUM",
	"high":   "MEDIA_RESOLUTION_HIGH",
}

func (c *Client) observe(capability string, err error) {
	if c.record == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.record(capability, outcome)
}

// extractPayload locates the outermost JSON object or array in the provider
// response text. No domain validation happens here.
func extractPayload(text string) []byte {
	trimmed := strings.TrimSpace(text)
	objStart := strings.Index(trimmed, "{")
	arrStart := strings.Index(trimmed, "[")

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if end := strings.LastIndex(trimmed, "}"); end > objStart {
			return []byte(trimmed[objStart : end+1])
		}
	}
	if arrStart >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > arrStart {
			return []byte(trimmed[arrStart : end+1])
		}
	}
	return []byte(trimmed)
}
