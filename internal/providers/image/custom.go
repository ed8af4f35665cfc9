package image

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type customGenerateRequest struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	NumImages      int      `json:"num_images"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	ImageURLs      []string `json:"image_urls,omitempty"`
}

// CustomAdapter is the generic passthrough for vendors with loosely
// documented contracts. It requires an explicit endpoint and tries a bounded,
// ordered chain of response-shape matchers.
type CustomAdapter struct {
	client *http.Client
	logger zerolog.Logger
}

func NewCustomAdapter(client *http.Client, logger zerolog.Logger) *CustomAdapter {
	return &CustomAdapter{client: client, logger: logger}
}

func (a *CustomAdapter) RefMode() RefMode { return RefURL }
func (a *CustomAdapter) MultiCall() bool  { return false }

func (a *CustomAdapter) Execute(ctx context.Context, cfg *domain.ProviderConfig, secret string, req Request) ([]domain.GeneratedImage, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, domain.Protocol(domain.MsgMissingEndpoint)
	}

	count := req.OutputCount
	if count <= 0 {
		count = 1
	}
	width, height := Dimensions(req.AspectRatio, req.ImageSize)
	payload := customGenerateRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		NumImages:      count,
		Width:          width,
		Height:         height,
		ImageURLs:      req.ImageURLs,
	}

	headers := map[string]string{}
	if secret != "" {
		headers["Authorization"] = "Bearer " + secret
	}
	status, body, err := postJSON(ctx, a.client, endpoint, headers, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, Classify(domain.VendorCustom, status, body)
	}

	for _, match := range responseMatchers {
		if images, ok := match(body); ok {
			if len(images) == 0 {
				return nil, domain.Protocol(domain.MsgEmptyResult)
			}
			return images, nil
		}
	}
	return nil, domain.Protocol(domain.MsgUnexpectedResponse)
}

// responseMatchers is the ordered chain of shape heuristics. Each matcher is
// a pure function; the first one that recognizes the body wins.
var responseMatchers = []func([]byte) ([]domain.GeneratedImage, bool){
	matchBareArray,
	matchImagesField,
	matchOutputField,
}

// matchBareArray handles `["https://...", ...]` and `[{"url": "..."}, ...]`.
func matchBareArray(body []byte) ([]domain.GeneratedImage, bool) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	var images []domain.GeneratedImage
	for _, item := range raw {
		if img, ok := imageFromValue(item); ok {
			images = append(images, img)
		}
	}
	return images, true
}

// matchImagesField handles `{"images": [...]}`.
func matchImagesField(body []byte) ([]domain.GeneratedImage, bool) {
	var wrapper struct {
		Images []json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Images == nil {
		return nil, false
	}
	var images []domain.GeneratedImage
	for _, item := range wrapper.Images {
		if img, ok := imageFromValue(item); ok {
			images = append(images, img)
		}
	}
	return images, true
}

// matchOutputField handles `{"output": ...}` where output is a string, an
// array, or an object bearing a url.
func matchOutputField(body []byte) ([]domain.GeneratedImage, bool) {
	var wrapper struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || len(wrapper.Output) == 0 {
		return nil, false
	}
	if img, ok := imageFromValue(wrapper.Output); ok {
		return []domain.GeneratedImage{img}, true
	}
	var list []json.RawMessage
	if err := json.Unmarshal(wrapper.Output, &list); err == nil {
		var images []domain.GeneratedImage
		for _, item := range list {
			if img, ok := imageFromValue(item); ok {
				images = append(images, img)
			}
		}
		return images, true
	}
	return nil, false
}

// imageFromValue extracts one image reference from a string or `{"url":...}`
// element. Bare strings that are not URLs are treated as base64 payloads.
func imageFromValue(raw json.RawMessage) (domain.GeneratedImage, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "data:") {
			return domain.GeneratedImage{URL: s}, true
		}
		return domain.GeneratedImage{URL: "data:image/png;base64," + s, Base64: s}, true
	}
	var obj struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.URL != "" {
			return domain.GeneratedImage{URL: obj.URL}, true
		}
		if obj.B64JSON != "" {
			return domain.GeneratedImage{URL: "data:image/png;base64," + obj.B64JSON, Base64: obj.B64JSON}, true
		}
	}
	return domain.GeneratedImage{}, false
}

var _ Adapter = (*CustomAdapter)(nil)
