package generation

import (
	"strings"

	"server/internal/domain"
)

// Input limits enforced before any network call.
const (
	MaxPromptLength         = 10000
	MaxNegativePromptLength = 2000
	MaxOutputCount          = 10
	MaxReferenceImages      = 5
)

// validAspectRatios is the closed set of accepted ratios.
var validAspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
	"3:2":  true,
	"2:3":  true,
	"5:4":  true,
	"4:5":  true,
	"21:9": true,
	"9:21": true,
}

var validImageSizes = map[string]bool{
	"1K": true,
	"2K": true,
	"4K": true,
}

// RawRequest is the unvalidated request payload as decoded off the wire.
type RawRequest struct {
	ProviderID          string   `json:"provider_id"`
	Prompt              string   `json:"prompt"`
	NegativePrompt      string   `json:"negative_prompt"`
	AspectRatio         string   `json:"aspect_ratio"`
	ImageSize           string   `json:"image_size"`
	OutputCount         int      `json:"output_count"`
	ReferenceImagePaths []string `json:"reference_image_paths"`
	Mode                string   `json:"mode"`
	Source              string   `json:"source"`
}

// ValidateRequest normalizes a raw payload or returns the first violated
// constraint. The check order is fixed and short-circuits so error messages
// are deterministic; the messages themselves are exact-match contract
// surface. No network or storage access happens here.
func ValidateRequest(raw RawRequest) (*domain.GenerationRequest, error) {
	if strings.TrimSpace(raw.ProviderID) == "" {
		return nil, domain.Validation("Provider ID is required")
	}

	mode := domain.ModeFast
	switch raw.Mode {
	case "", string(domain.ModeFast):
	case string(domain.ModeRelaxed):
		mode = domain.ModeRelaxed
	default:
		return nil, domain.Validation(`Mode must be "fast" or "relaxed"`)
	}

	prompt := strings.TrimSpace(raw.Prompt)
	if prompt == "" && len(raw.ReferenceImagePaths) == 0 {
		return nil, domain.Validation("Prompt or reference images required")
	}
	if len(prompt) > MaxPromptLength {
		return nil, domain.Validation("Prompt must be under 10000 characters")
	}

	negative := strings.TrimSpace(raw.NegativePrompt)
	if len(negative) > MaxNegativePromptLength {
		return nil, domain.Validation("Negative prompt must be under 2000 characters")
	}

	aspect := strings.TrimSpace(raw.AspectRatio)
	if aspect != "" && !validAspectRatios[aspect] {
		return nil, domain.Validation("Invalid aspect ratio")
	}

	size := strings.ToUpper(strings.TrimSpace(raw.ImageSize))
	if size != "" && !validImageSizes[size] {
		return nil, domain.Validation("Image size must be 1K, 2K, or 4K")
	}

	count := raw.OutputCount
	if count == 0 {
		count = 1
	}
	if count < 1 || count > MaxOutputCount {
		return nil, domain.Validation("Output count must be between 1 and 10")
	}

	if len(raw.ReferenceImagePaths) > MaxReferenceImages {
		return nil, domain.Validation("A maximum of 5 reference images is allowed")
	}
	paths := make([]string, 0, len(raw.ReferenceImagePaths))
	for _, p := range raw.ReferenceImagePaths {
		if !validReferencePath(p) {
			return nil, domain.Validation("Invalid reference image path")
		}
		paths = append(paths, strings.TrimSpace(p))
	}

	return &domain.GenerationRequest{
		ProviderID:          strings.TrimSpace(raw.ProviderID),
		Prompt:              prompt,
		NegativePrompt:      negative,
		AspectRatio:         aspect,
		ImageSize:           size,
		OutputCount:         count,
		ReferenceImagePaths: paths,
		Mode:                mode,
		Source:              strings.TrimSpace(raw.Source),
	}, nil
}

// validReferencePath rejects traversal-bearing and absolute storage paths.
func validReferencePath(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return false
	}
	if strings.Contains(p, "..") {
		return false
	}
	return true
}
