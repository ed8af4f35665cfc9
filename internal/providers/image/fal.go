package image

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

const (
	defaultFalBaseURL = "https://fal.run"
	defaultFalModel   = "fal-ai/flux/dev"
)

type falImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type falGenerateRequest struct {
	Prompt              string       `json:"prompt"`
	NegativePrompt      string       `json:"negative_prompt,omitempty"`
	NumImages           int          `json:"num_images"`
	MaxImages           int          `json:"max_images,omitempty"`
	ImageSize           falImageSize `json:"image_size"`
	ImageURLs           []string     `json:"image_urls,omitempty"`
	EnableSafetyChecker bool         `json:"enable_safety_checker"`
}

type falGenerateResponse struct {
	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
}

// FalAdapter targets hosted inference endpoints that take an image count and
// computed pixel dimensions in one call. Reference images must already be
// public URLs; the orchestrator resolves them before invoking this adapter.
type FalAdapter struct {
	client *http.Client
	logger zerolog.Logger
}

func NewFalAdapter(client *http.Client, logger zerolog.Logger) *FalAdapter {
	return &FalAdapter{client: client, logger: logger}
}

func (a *FalAdapter) RefMode() RefMode { return RefURL }
func (a *FalAdapter) MultiCall() bool  { return false }

func (a *FalAdapter) Execute(ctx context.Context, cfg *domain.ProviderConfig, secret string, req Request) ([]domain.GeneratedImage, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		model := cfg.Model
		if model == "" {
			model = defaultFalModel
		}
		endpoint = defaultFalBaseURL + "/" + strings.TrimLeft(model, "/")
	}

	count := req.OutputCount
	if count <= 0 {
		count = 1
	}
	width, height := Dimensions(req.AspectRatio, req.ImageSize)
	payload := falGenerateRequest{
		Prompt:              req.Prompt,
		NegativePrompt:      req.NegativePrompt,
		NumImages:           count,
		MaxImages:           count,
		ImageSize:           falImageSize{Width: width, Height: height},
		ImageURLs:           req.ImageURLs,
		EnableSafetyChecker: cfg.Options.SafetyChecker,
	}

	headers := map[string]string{"Authorization": "Key " + secret}
	status, body, err := postJSON(ctx, a.client, endpoint, headers, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, Classify(domain.VendorFal, status, body)
	}

	var resp falGenerateResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, domain.Protocol(domain.MsgUnexpectedResponse)
	}
	images := make([]domain.GeneratedImage, 0, len(resp.Images))
	for _, img := range resp.Images {
		if img.URL == "" {
			continue
		}
		images = append(images, domain.GeneratedImage{URL: img.URL})
	}
	if len(images) == 0 {
		return nil, domain.Protocol(domain.MsgEmptyResult)
	}
	return images, nil
}

var _ Adapter = (*FalAdapter)(nil)
