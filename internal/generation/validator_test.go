package generation

import (
	"strings"
	"testing"

	"server/internal/domain"
)

func TestValidateRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  RawRequest
		want string
	}{
		{
			name: "missing provider",
			raw:  RawRequest{Prompt: "a cat"},
			want: "Provider ID is required",
		},
		{
			name: "unknown mode",
			raw:  RawRequest{ProviderID: "p1", Prompt: "a cat", Mode: "eventually"},
			want: `Mode must be "fast" or "relaxed"`,
		},
		{
			name: "no prompt and no references",
			raw:  RawRequest{ProviderID: "p1"},
			want: "Prompt or reference images required",
		},
		{
			name: "prompt too long",
			raw:  RawRequest{ProviderID: "p1", Prompt: strings.Repeat("x", MaxPromptLength+1)},
			want: "Prompt must be under 10000 characters",
		},
		{
			name: "negative prompt too long",
			raw:  RawRequest{ProviderID: "p1", Prompt: "a cat", NegativePrompt: strings.Repeat("x", MaxNegativePromptLength+1)},
			want: "Negative prompt must be under 2000 characters",
		},
		{
			name: "bad aspect ratio",
			raw:  RawRequest{ProviderID: "p1", Prompt: "a cat", AspectRatio: "7:5"},
			want: "Invalid aspect ratio",
		},
		{
			name: "bad image size",
			raw:  RawRequest{ProviderID: "p1", Prompt: "a cat", ImageSize: "8K"},
			want: "Image size must be 1K, 2K, or 4K",
		},
		{
			name: "output count too high",
			raw:  RawRequest{ProviderID: "p1", Prompt: "a cat", OutputCount: 11},
			want: "Output count must be between 1 and 10",
		},
		{
			name: "output count negative",
			raw:  RawRequest{ProviderID: "p1", Prompt: "a cat", OutputCount: -1},
			want: "Output count must be between 1 and 10",
		},
		{
			name: "too many references",
			raw: RawRequest{ProviderID: "p1", Prompt: "a cat",
				ReferenceImagePaths: []string{"a", "b", "c", "d", "e", "f"}},
			want: "A maximum of 5 reference images is allowed",
		},
		{
			name: "traversal in reference path",
			raw: RawRequest{ProviderID: "p1", Prompt: "a cat",
				ReferenceImagePaths: []string{"refs/../secrets.png"}},
			want: "Invalid reference image path",
		},
		{
			name: "absolute reference path",
			raw: RawRequest{ProviderID: "p1", Prompt: "a cat",
				ReferenceImagePaths: []string{"/etc/passwd"}},
			want: "Invalid reference image path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateRequest(tt.raw)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.want)
			}
			if domain.KindOf(err) != domain.KindValidation {
				t.Fatalf("expected validation kind, got %v", domain.KindOf(err))
			}
			if got := domain.SafeMessage(err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValidateRequest_ErrorOrder(t *testing.T) {
	// Several constraints violated at once: the provider check wins.
	raw := RawRequest{
		Prompt:      strings.Repeat("x", MaxPromptLength+1),
		AspectRatio: "7:5",
		OutputCount: 99,
	}
	_, err := ValidateRequest(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := domain.SafeMessage(err); got != "Provider ID is required" {
		t.Fatalf("expected provider error first, got %q", got)
	}
}

func TestValidateRequest_Defaults(t *testing.T) {
	req, err := ValidateRequest(RawRequest{ProviderID: " p1 ", Prompt: "  a cat  "})
	if err != nil {
		t.Fatalf("ValidateRequest error: %v", err)
	}
	if req.ProviderID != "p1" {
		t.Fatalf("expected trimmed provider id, got %q", req.ProviderID)
	}
	if req.Prompt != "a cat" {
		t.Fatalf("expected trimmed prompt, got %q", req.Prompt)
	}
	if req.OutputCount != 1 {
		t.Fatalf("expected default output count 1, got %d", req.OutputCount)
	}
	if req.Mode != domain.ModeFast {
		t.Fatalf("expected fast mode default, got %q", req.Mode)
	}
}

func TestValidateRequest_ReferencesOnly(t *testing.T) {
	req, err := ValidateRequest(RawRequest{
		ProviderID:          "p1",
		ReferenceImagePaths: []string{"refs/one.png"},
	})
	if err != nil {
		t.Fatalf("ValidateRequest error: %v", err)
	}
	if req.Prompt != "" {
		t.Fatalf("expected empty prompt, got %q", req.Prompt)
	}
	if len(req.ReferenceImagePaths) != 1 {
		t.Fatalf("expected one reference path, got %d", len(req.ReferenceImagePaths))
	}
}

func TestValidateRequest_ModeRelaxed(t *testing.T) {
	req, err := ValidateRequest(RawRequest{ProviderID: "p1", Prompt: "a cat", Mode: "relaxed"})
	if err != nil {
		t.Fatalf("ValidateRequest error: %v", err)
	}
	if req.Mode != domain.ModeRelaxed {
		t.Fatalf("expected relaxed mode, got %q", req.Mode)
	}
}

func TestValidateRequest_SizeNormalized(t *testing.T) {
	req, err := ValidateRequest(RawRequest{ProviderID: "p1", Prompt: "a cat", ImageSize: "2k"})
	if err != nil {
		t.Fatalf("ValidateRequest error: %v", err)
	}
	if req.ImageSize != "2K" {
		t.Fatalf("expected normalized size 2K, got %q", req.ImageSize)
	}
}
