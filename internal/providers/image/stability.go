package image

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

const (
	defaultStabilityBaseURL = "https://api.stability.ai"
	defaultStabilityEngine  = "stable-diffusion-xl-1024-v1-0"
)

type stabilityTextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityGenerateRequest struct {
	TextPrompts []stabilityTextPrompt `json:"text_prompts"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Samples     int                   `json:"samples"`
}

type stabilityGenerateResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

// StabilityAdapter targets the prompt-weighted diffusion API. A negative
// prompt travels as a separately weighted prompt entry, not a string field.
type StabilityAdapter struct {
	client *http.Client
	logger zerolog.Logger
}

func NewStabilityAdapter(client *http.Client, logger zerolog.Logger) *StabilityAdapter {
	return &StabilityAdapter{client: client, logger: logger}
}

func (a *StabilityAdapter) RefMode() RefMode { return RefNone }
func (a *StabilityAdapter) MultiCall() bool  { return false }

func (a *StabilityAdapter) Execute(ctx context.Context, cfg *domain.ProviderConfig, secret string, req Request) ([]domain.GeneratedImage, error) {
	base := strings.TrimRight(cfg.Endpoint, "/")
	if base == "" {
		base = defaultStabilityBaseURL
	}
	engine := cfg.Model
	if engine == "" {
		engine = defaultStabilityEngine
	}

	prompts := []stabilityTextPrompt{{Text: req.Prompt, Weight: 1}}
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		prompts = append(prompts, stabilityTextPrompt{Text: neg, Weight: -1})
	}

	count := req.OutputCount
	if count <= 0 {
		count = 1
	}
	width, height := Dimensions(req.AspectRatio, req.ImageSize)
	payload := stabilityGenerateRequest{
		TextPrompts: prompts,
		Width:       roundTo64(width),
		Height:      roundTo64(height),
		Samples:     count,
	}

	endpoint := fmt.Sprintf("%s/v1/generation/%s/text-to-image", base, url.PathEscape(engine))
	headers := map[string]string{
		"Authorization": "Bearer " + secret,
		"Accept":        "application/json",
	}
	status, body, err := postJSON(ctx, a.client, endpoint, headers, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, Classify(domain.VendorStability, status, body)
	}

	var resp stabilityGenerateResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, domain.Protocol(domain.MsgUnexpectedResponse)
	}
	var images []domain.GeneratedImage
	filtered := 0
	for _, artifact := range resp.Artifacts {
		if artifact.FinishReason == "CONTENT_FILTERED" {
			filtered++
			continue
		}
		if artifact.Base64 == "" {
			continue
		}
		images = append(images, domain.GeneratedImage{
			URL:    "data:image/png;base64," + artifact.Base64,
			Base64: artifact.Base64,
		})
	}
	if len(images) == 0 {
		if filtered > 0 {
			return nil, &domain.GenError{Kind: domain.KindSafetyBlocked, Message: domain.MsgSafetyBlocked, Safe: true}
		}
		return nil, domain.Protocol(domain.MsgEmptyResult)
	}
	return images, nil
}

var _ Adapter = (*StabilityAdapter)(nil)
