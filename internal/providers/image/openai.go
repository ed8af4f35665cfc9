package image

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "dall-e-3"
)

type openAIGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type openAIGenerateResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// OpenAIAdapter targets the legacy images endpoint: exactly one image per
// call regardless of the requested count, and a fixed set of resolutions.
type OpenAIAdapter struct {
	client *http.Client
	logger zerolog.Logger
}

func NewOpenAIAdapter(client *http.Client, logger zerolog.Logger) *OpenAIAdapter {
	return &OpenAIAdapter{client: client, logger: logger}
}

func (a *OpenAIAdapter) RefMode() RefMode { return RefNone }
func (a *OpenAIAdapter) MultiCall() bool  { return false }

func (a *OpenAIAdapter) Execute(ctx context.Context, cfg *domain.ProviderConfig, secret string, req Request) ([]domain.GeneratedImage, error) {
	base := strings.TrimRight(cfg.Endpoint, "/")
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	prompt := strings.TrimSpace(req.Prompt)
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		prompt += "\nDo not include: " + neg
	}

	payload := openAIGenerateRequest{
		Model:  model,
		Prompt: prompt,
		// The legacy API serves one image per request; higher counts are
		// capped rather than rejected.
		N:    1,
		Size: nearestOpenAISize(req.AspectRatio),
	}

	headers := map[string]string{"Authorization": "Bearer " + secret}
	status, body, err := postJSON(ctx, a.client, base+"/images/generations", headers, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, Classify(domain.VendorOpenAI, status, body)
	}

	var resp openAIGenerateResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, domain.Protocol(domain.MsgUnexpectedResponse)
	}
	var images []domain.GeneratedImage
	for _, item := range resp.Data {
		switch {
		case item.URL != "":
			images = append(images, domain.GeneratedImage{URL: item.URL})
		case item.B64JSON != "":
			images = append(images, domain.GeneratedImage{
				URL:    "data:image/png;base64," + item.B64JSON,
				Base64: item.B64JSON,
			})
		}
	}
	if len(images) == 0 {
		return nil, domain.Protocol(domain.MsgEmptyResult)
	}
	return images, nil
}

// nearestOpenAISize maps an aspect ratio onto the closest resolution the
// legacy endpoint supports.
func nearestOpenAISize(aspect string) string {
	a, b := parseAspect(aspect)
	switch {
	case a > b:
		return "1792x1024"
	case b > a:
		return "1024x1792"
	default:
		return "1024x1024"
	}
}

var _ Adapter = (*OpenAIAdapter)(nil)
