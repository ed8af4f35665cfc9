package image

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// Request is the adapter-facing request. Reference images arrive already
// resolved in whichever form the adapter's RefMode demands.
type Request struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	ImageSize      string
	OutputCount    int
	InlineImages   []domain.ReferenceImage
	ImageURLs      []string
}

// RefMode describes which form of reference image an adapter consumes.
type RefMode int

const (
	// RefNone: the vendor wire protocol has no reference image field.
	RefNone RefMode = iota
	// RefInline: reference images travel as inline bytes in the payload.
	RefInline
	// RefURL: reference images must be resolvable public URLs.
	RefURL
)

// Adapter translates a vendor-neutral request into one vendor's wire format
// and back. Callers never see vendor-specific shapes.
type Adapter interface {
	Execute(ctx context.Context, cfg *domain.ProviderConfig, secret string, req Request) ([]domain.GeneratedImage, error)
	RefMode() RefMode
	// MultiCall reports that the vendor yields at most one image per call,
	// so multi-output requests must fan out as independent calls.
	MultiCall() bool
}

// Registry holds one adapter per vendor family.
type Registry struct {
	adapters map[domain.Vendor]Adapter
}

// NewRegistry wires the full adapter set over a shared HTTP client.
func NewRegistry(client *http.Client, logger zerolog.Logger) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	r := &Registry{adapters: make(map[domain.Vendor]Adapter)}
	r.Register(domain.VendorGemini, NewGeminiAdapter(client, logger))
	r.Register(domain.VendorFal, NewFalAdapter(client, logger))
	r.Register(domain.VendorOpenAI, NewOpenAIAdapter(client, logger))
	r.Register(domain.VendorStability, NewStabilityAdapter(client, logger))
	r.Register(domain.VendorCustom, NewCustomAdapter(client, logger))
	return r
}

// Register installs or replaces the adapter for a vendor family.
func (r *Registry) Register(vendor domain.Vendor, adapter Adapter) {
	r.adapters[vendor] = adapter
}

// For resolves the adapter for a vendor family.
func (r *Registry) For(vendor domain.Vendor) (Adapter, error) {
	adapter, ok := r.adapters[vendor]
	if !ok {
		return nil, domain.Protocol(domain.MsgUnexpectedResponse)
	}
	return adapter, nil
}
