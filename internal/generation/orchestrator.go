package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/providers/image"
)

// ReferenceResolver turns stored reference image paths into whichever form
// an adapter consumes.
type ReferenceResolver interface {
	Inline(ctx context.Context, paths []string) ([]domain.ReferenceImage, error)
	PublicURLs(ctx context.Context, paths []string) ([]string, error)
}

// Result is the fast-path outcome. Partial marks that some but not all
// requested outputs were produced; that is a success, not an error.
type Result struct {
	Images  []domain.GeneratedImage
	Partial bool
}

// Orchestrator drives the synchronous fast path: resolve the provider, fan
// out upstream calls, aggregate partial successes.
type Orchestrator struct {
	providers   domain.ProviderStore
	credentials domain.CredentialSource
	refs        ReferenceResolver
	registry    *image.Registry
	timeout     time.Duration
	logger      zerolog.Logger
}

func NewOrchestrator(
	providers domain.ProviderStore,
	credentials domain.CredentialSource,
	refs ReferenceResolver,
	registry *image.Registry,
	timeout time.Duration,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		providers:   providers,
		credentials: credentials,
		refs:        refs,
		registry:    registry,
		timeout:     timeout,
		logger:      logger,
	}
}

// Resolve loads the provider configuration, its adapter, and its decrypted
// secret. Missing and inaccessible providers collapse into one error.
func (o *Orchestrator) Resolve(ctx context.Context, ownerID, providerID string) (*domain.ProviderConfig, image.Adapter, string, error) {
	cfg, err := o.providers.GetForOwner(ctx, providerID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, "", domain.NotFoundOrDenied()
		}
		return nil, nil, "", domain.Internal(fmt.Errorf("resolve provider: %w", err))
	}
	adapter, err := o.registry.For(cfg.Vendor)
	if err != nil {
		return nil, nil, "", err
	}
	secret, err := o.credentials.Secret(ctx, cfg.ID)
	if err != nil {
		return nil, nil, "", domain.Internal(fmt.Errorf("resolve credential: %w", err))
	}
	return cfg, adapter, secret, nil
}

// Execute runs one validated request against its provider. Multi-output
// requests on a single-image vendor fan out as independent concurrent calls
// with per-call isolation.
func (o *Orchestrator) Execute(ctx context.Context, ownerID string, req *domain.GenerationRequest) (*Result, error) {
	cfg, adapter, secret, err := o.Resolve(ctx, ownerID, req.ProviderID)
	if err != nil {
		return nil, err
	}

	call, err := o.buildAdapterRequest(ctx, adapter, adapterInput{
		Prompt:              req.Prompt,
		NegativePrompt:      req.NegativePrompt,
		AspectRatio:         req.AspectRatio,
		ImageSize:           req.ImageSize,
		OutputCount:         req.OutputCount,
		ReferenceImagePaths: req.ReferenceImagePaths,
	})
	if err != nil {
		return nil, err
	}

	var result *Result
	if adapter.MultiCall() && req.OutputCount > 1 {
		result, err = o.fanOut(ctx, cfg, adapter, secret, call, req.OutputCount)
	} else {
		var images []domain.GeneratedImage
		images, err = o.invoke(ctx, cfg, adapter, secret, call)
		if err == nil {
			result = &Result{Images: images}
		}
	}
	if err != nil {
		metrics.CountGeneration(string(cfg.Vendor), string(req.Mode), "error")
		return nil, err
	}
	outcome := "success"
	if result.Partial {
		outcome = "partial"
	}
	metrics.CountGeneration(string(cfg.Vendor), string(req.Mode), outcome)
	return result, nil
}

// RunOne executes a single batch job request through the same adapter and
// classification machinery as the fast path, returning exactly one image.
func (o *Orchestrator) RunOne(ctx context.Context, cfg *domain.ProviderConfig, adapter image.Adapter, secret string, req domain.BatchJobRequest) (domain.GeneratedImage, error) {
	call, err := o.buildAdapterRequest(ctx, adapter, adapterInput{
		Prompt:              req.Prompt,
		NegativePrompt:      req.NegativePrompt,
		AspectRatio:         req.AspectRatio,
		ImageSize:           req.ImageSize,
		OutputCount:         1,
		ReferenceImagePaths: req.ReferenceImagePaths,
	})
	if err != nil {
		return domain.GeneratedImage{}, err
	}
	images, err := o.invoke(ctx, cfg, adapter, secret, call)
	if err != nil {
		return domain.GeneratedImage{}, err
	}
	return images[0], nil
}

type adapterInput struct {
	Prompt              string
	NegativePrompt      string
	AspectRatio         string
	ImageSize           string
	OutputCount         int
	ReferenceImagePaths []string
}

// buildAdapterRequest resolves reference images into the form the selected
// adapter requires before any upstream call is made.
func (o *Orchestrator) buildAdapterRequest(ctx context.Context, adapter image.Adapter, in adapterInput) (image.Request, error) {
	call := image.Request{
		Prompt:         in.Prompt,
		NegativePrompt: in.NegativePrompt,
		AspectRatio:    in.AspectRatio,
		ImageSize:      in.ImageSize,
		OutputCount:    in.OutputCount,
	}
	if len(in.ReferenceImagePaths) == 0 {
		return call, nil
	}
	switch adapter.RefMode() {
	case image.RefInline:
		refs, err := o.refs.Inline(ctx, in.ReferenceImagePaths)
		if err != nil {
			return image.Request{}, domain.Internal(fmt.Errorf("resolve reference images: %w", err))
		}
		call.InlineImages = refs
	case image.RefURL:
		urls, err := o.refs.PublicURLs(ctx, in.ReferenceImagePaths)
		if err != nil {
			return image.Request{}, domain.Internal(fmt.Errorf("resolve reference urls: %w", err))
		}
		call.ImageURLs = urls
	}
	return call, nil
}

// invoke runs one adapter call under the timeout guard and records metrics.
func (o *Orchestrator) invoke(ctx context.Context, cfg *domain.ProviderConfig, adapter image.Adapter, secret string, call image.Request) ([]domain.GeneratedImage, error) {
	budget := image.TimeoutFor(cfg, o.timeout)
	start := time.Now()
	images, err := image.CallWithTimeout(ctx, budget, func(ctx context.Context) ([]domain.GeneratedImage, error) {
		return adapter.Execute(ctx, cfg, secret, call)
	})
	metrics.ObserveUpstreamCall(string(cfg.Vendor), time.Since(start))
	if err != nil {
		metrics.CountUpstreamError(string(cfg.Vendor), string(domain.KindOf(err)))
		return nil, err
	}
	if len(images) == 0 {
		return nil, domain.Protocol(domain.MsgEmptyResult)
	}
	return images, nil
}

// fanOut issues count independent single-image calls concurrently. One
// call's failure never aborts the others; with zero successes the first
// issued failure is raised, otherwise the successful subset is returned and
// the shortfall only logged.
func (o *Orchestrator) fanOut(ctx context.Context, cfg *domain.ProviderConfig, adapter image.Adapter, secret string, call image.Request, count int) (*Result, error) {
	results := make([][]domain.GeneratedImage, count)
	failures := make([]error, count)

	var g errgroup.Group
	for i := 0; i < count; i++ {
		i := i
		single := call
		single.OutputCount = 1
		g.Go(func() error {
			images, err := o.invoke(ctx, cfg, adapter, secret, single)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = images
			return nil
		})
	}
	_ = g.Wait()

	var images []domain.GeneratedImage
	var firstErr error
	failed := 0
	for i := 0; i < count; i++ {
		images = append(images, results[i]...)
		if failures[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = failures[i]
			}
		}
	}

	if len(images) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, domain.Protocol(domain.MsgEmptyResult)
	}
	if failed > 0 {
		o.logger.Warn().
			Err(firstErr).
			Str("provider_config_id", cfg.ID).
			Int("requested", count).
			Int("produced", len(images)).
			Msg("generation: partial fan-out success")
	}
	return &Result{Images: images, Partial: failed > 0}, nil
}
