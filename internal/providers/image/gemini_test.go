package image

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

func geminiOKBody() string {
	return `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]}}]}`
}

func TestGeminiAdapter_StructuredImageConfig(t *testing.T) {
	var payload geminiGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		_, _ = w.Write([]byte(geminiOKBody()))
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(srv.Client(), zerolog.Nop())
	cfg := &domain.ProviderConfig{
		Vendor:   domain.VendorGemini,
		Endpoint: srv.URL,
		Model:    "gemini-2.5-flash-image",
	}
	images, err := adapter.Execute(context.Background(), cfg, "sek", Request{
		Prompt:      "a cat",
		AspectRatio: "16:9",
		ImageSize:   "2K",
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if !strings.HasPrefix(images[0].URL, "data:image/png;base64,") {
		t.Fatalf("expected data url, got %q", images[0].URL)
	}

	if payload.GenerationConfig == nil || payload.GenerationConfig.ImageConfig == nil {
		t.Fatal("expected structured image config for a capable model")
	}
	if payload.GenerationConfig.ImageConfig.AspectRatio != "16:9" {
		t.Fatalf("expected aspect ratio in image config, got %q", payload.GenerationConfig.ImageConfig.AspectRatio)
	}
	prompt := payload.Contents[0].Parts[0].Text
	if strings.Contains(prompt, "Aspect ratio:") {
		t.Fatalf("capable model must not carry text hints, got %q", prompt)
	}
}

func TestGeminiAdapter_TextHintsForLegacyModel(t *testing.T) {
	var payload geminiGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		_, _ = w.Write([]byte(geminiOKBody()))
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(srv.Client(), zerolog.Nop())
	cfg := &domain.ProviderConfig{
		Vendor:   domain.VendorGemini,
		Endpoint: srv.URL,
		Model:    "gemini-2.0-flash-preview-image-generation",
	}
	if _, err := adapter.Execute(context.Background(), cfg, "sek", Request{
		Prompt:         "a cat",
		NegativePrompt: "dogs",
		AspectRatio:    "16:9",
		ImageSize:      "2K",
	}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if payload.GenerationConfig.ImageConfig != nil {
		t.Fatal("legacy model must not send image config")
	}
	prompt := payload.Contents[0].Parts[0].Text
	for _, want := range []string{"Avoid: dogs", "Aspect ratio: 16:9", "Image size: 2K"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected %q in prompt, got %q", want, prompt)
		}
	}
}

func TestGeminiAdapter_SecretInQueryNotHeader(t *testing.T) {
	var gotURL, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(geminiOKBody()))
	}))
	defer srv.Close()

	adapter := NewGeminiAdapter(srv.Client(), zerolog.Nop())
	cfg := &domain.ProviderConfig{Vendor: domain.VendorGemini, Endpoint: srv.URL}
	if _, err := adapter.Execute(context.Background(), cfg, "sek", Request{Prompt: "a cat"}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.Contains(gotURL, "key=sek") {
		t.Fatalf("expected key query param, got %q", gotURL)
	}
	if gotAuth != "" {
		t.Fatalf("expected no auth header, got %q", gotAuth)
	}
}

func TestParseGeminiResponse_Blocks(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "prompt feedback block",
			body:    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantMsg: domain.MsgSafetyBlocked,
		},
		{
			name:    "candidate safety finish",
			body:    `{"candidates":[{"finishReason":"IMAGE_SAFETY","content":{}}]}`,
			wantMsg: domain.MsgSafetyBlocked,
		},
		{
			name:    "recitation finish",
			body:    `{"candidates":[{"finishReason":"RECITATION","content":{}}]}`,
			wantMsg: domain.MsgCopyrightBlocked,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseGeminiResponse([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if domain.KindOf(err) != domain.KindSafetyBlocked {
				t.Fatalf("expected safety_blocked, got %v", domain.KindOf(err))
			}
			if got := domain.SafeMessage(err); got != tt.wantMsg {
				t.Fatalf("expected %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestParseGeminiResponse_NoImages(t *testing.T) {
	_, err := parseGeminiResponse([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := domain.SafeMessage(err); got != domain.MsgEmptyResult {
		t.Fatalf("expected %q, got %q", domain.MsgEmptyResult, got)
	}
}

func TestGeminiAdapter_OversizedInlineRefs(t *testing.T) {
	adapter := NewGeminiAdapter(http.DefaultClient, zerolog.Nop())
	cfg := &domain.ProviderConfig{Vendor: domain.VendorGemini}
	_, err := adapter.Execute(context.Background(), cfg, "sek", Request{
		Prompt:       "a cat",
		InlineImages: []domain.ReferenceImage{{MIME: "image/png", Data: make([]byte, maxInlineRefBytes+1)}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := domain.SafeMessage(err); got != domain.MsgOversizedPayload {
		t.Fatalf("expected %q, got %q", domain.MsgOversizedPayload, got)
	}
}

func TestCapsForModel(t *testing.T) {
	if !capsForModel("gemini-2.5-flash-image").ImageConfig {
		t.Fatal("expected image config support")
	}
	if capsForModel("gemini-2.0-flash-preview-image-generation").ImageConfig {
		t.Fatal("expected no image config support")
	}
	if capsForModel("some-future-model").ImageConfig {
		t.Fatal("unknown models default to no image config")
	}
}
