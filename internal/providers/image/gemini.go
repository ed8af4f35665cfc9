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
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash-image"

	// Upper bound on inline reference payload accepted by the
	// generateContent endpoint.
	maxInlineRefBytes = 20 << 20
)

// geminiCaps describes what a Gemini model supports on the wire.
type geminiCaps struct {
	// ImageConfig: the model accepts structured aspect ratio / image size
	// hints in generationConfig. Models without it get the hints appended to
	// the prompt as descriptive text.
	ImageConfig bool
}

// Capability table resolved per model identifier. Unknown models take
// defaultGeminiCaps; keyed lookups replace substring sniffing on the model
// name.
var geminiModelCaps = map[string]geminiCaps{
	"gemini-2.5-flash-image":                    {ImageConfig: true},
	"gemini-2.5-flash-image-preview":            {ImageConfig: true},
	"gemini-3-pro-image-preview":                {ImageConfig: true},
	"gemini-2.0-flash-preview-image-generation": {ImageConfig: false},
}

var defaultGeminiCaps = geminiCaps{ImageConfig: false}

func capsForModel(model string) geminiCaps {
	if caps, ok := geminiModelCaps[model]; ok {
		return caps
	}
	return defaultGeminiCaps
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	CandidateCount     int                `json:"candidateCount,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback"`
}

// GeminiAdapter targets the multi-modal generateContent endpoint. The
// upstream call yields at most one image per call, so multi-output requests
// fan out as independent calls (MultiCall).
type GeminiAdapter struct {
	client *http.Client
	logger zerolog.Logger
}

func NewGeminiAdapter(client *http.Client, logger zerolog.Logger) *GeminiAdapter {
	return &GeminiAdapter{client: client, logger: logger}
}

func (a *GeminiAdapter) RefMode() RefMode { return RefInline }
func (a *GeminiAdapter) MultiCall() bool  { return true }

func (a *GeminiAdapter) Execute(ctx context.Context, cfg *domain.ProviderConfig, secret string, req Request) ([]domain.GeneratedImage, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	caps := capsForModel(model)

	var inlineTotal int
	parts := []geminiPart{{Text: geminiPrompt(req, caps)}}
	for _, ref := range req.InlineImages {
		inlineTotal += len(ref.Data)
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: ref.MIME,
			Data:     encodeBase64(ref.Data),
		}})
	}
	if inlineTotal > maxInlineRefBytes {
		return nil, domain.Protocol(domain.MsgOversizedPayload)
	}

	genCfg := &geminiGenerationConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		CandidateCount:     1,
	}
	if caps.ImageConfig {
		genCfg.ImageConfig = &geminiImageConfig{
			AspectRatio: req.AspectRatio,
			ImageSize:   req.ImageSize,
		}
	}

	payload := geminiGenerateRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: genCfg,
	}

	base := strings.TrimRight(cfg.Endpoint, "/")
	if base == "" {
		base = defaultGeminiBaseURL
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, url.PathEscape(model), url.QueryEscape(secret))

	status, body, err := postJSON(ctx, a.client, endpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, Classify(domain.VendorGemini, status, body)
	}

	return parseGeminiResponse(body)
}

func parseGeminiResponse(body []byte) ([]domain.GeneratedImage, error) {
	var resp geminiGenerateResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, domain.Protocol(domain.MsgUnexpectedResponse)
	}

	if reason := resp.PromptFeedback.BlockReason; reason != "" {
		return nil, blockedError(reason)
	}

	var images []domain.GeneratedImage
	for _, candidate := range resp.Candidates {
		if blocked := candidate.FinishReason; isBlockedFinish(blocked) {
			return nil, blockedError(blocked)
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			images = append(images, domain.GeneratedImage{
				URL:    fmt.Sprintf("data:%s;base64,%s", mime, part.InlineData.Data),
				Base64: part.InlineData.Data,
			})
		}
	}
	if len(images) == 0 {
		return nil, domain.Protocol(domain.MsgEmptyResult)
	}
	return images, nil
}

func isBlockedFinish(reason string) bool {
	switch reason {
	case "SAFETY", "IMAGE_SAFETY", "PROHIBITED_CONTENT", "RECITATION", "IMAGE_RECITATION":
		return true
	}
	return false
}

func blockedError(reason string) *domain.GenError {
	msg := domain.MsgSafetyBlocked
	if strings.Contains(strings.ToUpper(reason), "RECITATION") {
		msg = domain.MsgCopyrightBlocked
	}
	return &domain.GenError{Kind: domain.KindSafetyBlocked, Message: msg, Safe: true}
}

// geminiPrompt builds the text part. Models without structured image config
// degrade the dimensional hints to descriptive text; a negative prompt has
// no dedicated field on this API and is always expressed in text.
func geminiPrompt(req Request, caps geminiCaps) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Prompt))
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Avoid: ")
		b.WriteString(neg)
	}
	if !caps.ImageConfig {
		if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString("Aspect ratio: ")
			b.WriteString(aspect)
		}
		if size := strings.TrimSpace(req.ImageSize); size != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString("Image size: ")
			b.WriteString(size)
		}
	}
	if b.Len() == 0 {
		b.WriteString("Generate an image based on the attached references.")
	}
	return b.String()
}

var _ Adapter = (*GeminiAdapter)(nil)
