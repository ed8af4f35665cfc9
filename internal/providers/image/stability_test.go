package image

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

func TestStabilityAdapter_WeightedPrompts(t *testing.T) {
	var payload stabilityGenerateRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		_, _ = w.Write([]byte(`{"artifacts":[{"base64":"aW1n","finishReason":"SUCCESS"},{"base64":"aW1o","finishReason":"SUCCESS"}]}`))
	}))
	defer srv.Close()

	adapter := NewStabilityAdapter(srv.Client(), zerolog.Nop())
	cfg := &domain.ProviderConfig{Vendor: domain.VendorStability, Endpoint: srv.URL}
	images, err := adapter.Execute(context.Background(), cfg, "sek", Request{
		Prompt:         "a cat",
		NegativePrompt: "dogs",
		AspectRatio:    "16:9",
		ImageSize:      "1K",
		OutputCount:    2,
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}

	if len(payload.TextPrompts) != 2 {
		t.Fatalf("expected 2 weighted prompts, got %d", len(payload.TextPrompts))
	}
	if payload.TextPrompts[0].Weight != 1 || payload.TextPrompts[0].Text != "a cat" {
		t.Fatalf("unexpected positive prompt %+v", payload.TextPrompts[0])
	}
	if payload.TextPrompts[1].Weight != -1 || payload.TextPrompts[1].Text != "dogs" {
		t.Fatalf("unexpected negative prompt %+v", payload.TextPrompts[1])
	}
	if payload.Width%64 != 0 || payload.Height%64 != 0 {
		t.Fatalf("dimensions must be multiples of 64, got %dx%d", payload.Width, payload.Height)
	}
	if payload.Samples != 2 {
		t.Fatalf("expected samples 2, got %d", payload.Samples)
	}
	if gotPath != "/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestStabilityAdapter_AllFilteredIsSafetyBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artifacts":[{"base64":"aW1n","finishReason":"CONTENT_FILTERED"}]}`))
	}))
	defer srv.Close()

	adapter := NewStabilityAdapter(srv.Client(), zerolog.Nop())
	cfg := &domain.ProviderConfig{Vendor: domain.VendorStability, Endpoint: srv.URL}
	_, err := adapter.Execute(context.Background(), cfg, "sek", Request{Prompt: "a cat"})
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.KindOf(err) != domain.KindSafetyBlocked {
		t.Fatalf("expected safety_blocked, got %v", domain.KindOf(err))
	}
	if got := domain.SafeMessage(err); got != domain.MsgSafetyBlocked {
		t.Fatalf("expected %q, got %q", domain.MsgSafetyBlocked, got)
	}
}

func TestStabilityAdapter_FilteredSubsetSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artifacts":[{"base64":"aW1n","finishReason":"SUCCESS"},{"base64":"bm8=","finishReason":"CONTENT_FILTERED"}]}`))
	}))
	defer srv.Close()

	adapter := NewStabilityAdapter(srv.Client(), zerolog.Nop())
	cfg := &domain.ProviderConfig{Vendor: domain.VendorStability, Endpoint: srv.URL}
	images, err := adapter.Execute(context.Background(), cfg, "sek", Request{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected filtered artifact skipped, got %d images", len(images))
	}
}
