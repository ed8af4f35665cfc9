package generation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/image"
)

type stubProviders struct {
	cfg *domain.ProviderConfig
	err error
}

func (s *stubProviders) GetForOwner(ctx context.Context, id, ownerID string) (*domain.ProviderConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cfg, nil
}

type stubCreds struct {
	secret string
	err    error
}

func (s *stubCreds) Secret(ctx context.Context, providerConfigID string) (string, error) {
	return s.secret, s.err
}

type stubRefs struct {
	inline []domain.ReferenceImage
	urls   []string
}

func (s *stubRefs) Inline(ctx context.Context, paths []string) ([]domain.ReferenceImage, error) {
	return s.inline, nil
}

func (s *stubRefs) PublicURLs(ctx context.Context, paths []string) ([]string, error) {
	return s.urls, nil
}

type stubAdapter struct {
	refMode   image.RefMode
	multiCall bool
	calls     atomic.Int64
	execute   func(call int64, req image.Request) ([]domain.GeneratedImage, error)
}

func (s *stubAdapter) Execute(ctx context.Context, cfg *domain.ProviderConfig, secret string, req image.Request) ([]domain.GeneratedImage, error) {
	n := s.calls.Add(1)
	return s.execute(n, req)
}

func (s *stubAdapter) RefMode() image.RefMode { return s.refMode }
func (s *stubAdapter) MultiCall() bool        { return s.multiCall }

func newTestOrchestrator(t *testing.T, providers *stubProviders, adapter *stubAdapter) *Orchestrator {
	t.Helper()
	registry := image.NewRegistry(nil, zerolog.Nop())
	registry.Register(domain.VendorGemini, adapter)
	return NewOrchestrator(
		providers,
		&stubCreds{secret: "sek"},
		&stubRefs{},
		registry,
		5*time.Second,
		zerolog.Nop(),
	)
}

func geminiConfig() *domain.ProviderConfig {
	return &domain.ProviderConfig{ID: "cfg-1", OwnerID: "user-1", Vendor: domain.VendorGemini}
}

func fastRequest(count int) *domain.GenerationRequest {
	return &domain.GenerationRequest{
		ProviderID:  "cfg-1",
		Prompt:      "a cat",
		OutputCount: count,
		Mode:        domain.ModeFast,
	}
}

func TestExecute_FanOutPartialSuccess(t *testing.T) {
	adapter := &stubAdapter{
		refMode:   image.RefInline,
		multiCall: true,
		execute: func(call int64, req image.Request) ([]domain.GeneratedImage, error) {
			if call == 2 {
				return nil, &domain.GenError{Kind: domain.KindRateLimited, Message: domain.MsgRateLimited, Safe: true}
			}
			return []domain.GeneratedImage{{URL: "data:image/png;base64,aaa"}}, nil
		},
	}
	orch := newTestOrchestrator(t, &stubProviders{cfg: geminiConfig()}, adapter)

	result, err := orch.Execute(context.Background(), "user-1", fastRequest(3))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(result.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(result.Images))
	}
	if !result.Partial {
		t.Fatal("expected partial result")
	}
	if got := adapter.calls.Load(); got != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", got)
	}
}

func TestExecute_FanOutAllFail(t *testing.T) {
	adapter := &stubAdapter{
		refMode:   image.RefInline,
		multiCall: true,
		execute: func(call int64, req image.Request) ([]domain.GeneratedImage, error) {
			return nil, &domain.GenError{Kind: domain.KindCapacity, Message: domain.MsgCapacity, Safe: true}
		},
	}
	orch := newTestOrchestrator(t, &stubProviders{cfg: geminiConfig()}, adapter)

	_, err := orch.Execute(context.Background(), "user-1", fastRequest(3))
	if err == nil {
		t.Fatal("expected error when every call fails")
	}
	if domain.KindOf(err) != domain.KindCapacity {
		t.Fatalf("expected capacity kind, got %v", domain.KindOf(err))
	}
	if got := domain.SafeMessage(err); got != domain.MsgCapacity {
		t.Fatalf("expected capacity message, got %q", got)
	}
}

func TestExecute_SingleCallForMultiImageVendor(t *testing.T) {
	adapter := &stubAdapter{
		refMode:   image.RefURL,
		multiCall: false,
		execute: func(call int64, req image.Request) ([]domain.GeneratedImage, error) {
			if req.OutputCount != 3 {
				t.Errorf("expected output count 3 passed through, got %d", req.OutputCount)
			}
			return []domain.GeneratedImage{
				{URL: "https://cdn.example/1.png"},
				{URL: "https://cdn.example/2.png"},
				{URL: "https://cdn.example/3.png"},
			}, nil
		},
	}
	orch := newTestOrchestrator(t, &stubProviders{cfg: geminiConfig()}, adapter)

	result, err := orch.Execute(context.Background(), "user-1", fastRequest(3))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(result.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(result.Images))
	}
	if result.Partial {
		t.Fatal("did not expect partial result")
	}
	if got := adapter.calls.Load(); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}

func TestExecute_ProviderNotFound(t *testing.T) {
	adapter := &stubAdapter{
		execute: func(call int64, req image.Request) ([]domain.GeneratedImage, error) {
			return nil, nil
		},
	}
	orch := newTestOrchestrator(t, &stubProviders{err: domain.ErrNotFound}, adapter)

	_, err := orch.Execute(context.Background(), "user-1", fastRequest(1))
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not_found kind, got %v", domain.KindOf(err))
	}
	if got := domain.SafeMessage(err); got != domain.MsgNotFound {
		t.Fatalf("expected %q, got %q", domain.MsgNotFound, got)
	}
	if adapter.calls.Load() != 0 {
		t.Fatal("no upstream call expected for an unknown provider")
	}
}

func TestExecute_EmptyResultIsProtocolError(t *testing.T) {
	adapter := &stubAdapter{
		execute: func(call int64, req image.Request) ([]domain.GeneratedImage, error) {
			return []domain.GeneratedImage{}, nil
		},
	}
	orch := newTestOrchestrator(t, &stubProviders{cfg: geminiConfig()}, adapter)

	_, err := orch.Execute(context.Background(), "user-1", fastRequest(1))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := domain.SafeMessage(err); got != domain.MsgEmptyResult {
		t.Fatalf("expected %q, got %q", domain.MsgEmptyResult, got)
	}
}

func TestRunOne(t *testing.T) {
	adapter := &stubAdapter{
		refMode: image.RefInline,
		execute: func(call int64, req image.Request) ([]domain.GeneratedImage, error) {
			if req.OutputCount != 1 {
				t.Errorf("expected single-output call, got %d", req.OutputCount)
			}
			return []domain.GeneratedImage{{URL: "data:image/png;base64,bbb", Base64: "bbb"}}, nil
		},
	}
	orch := newTestOrchestrator(t, &stubProviders{cfg: geminiConfig()}, adapter)

	img, err := orch.RunOne(context.Background(), geminiConfig(), adapter, "sek", domain.BatchJobRequest{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("RunOne error: %v", err)
	}
	if img.Base64 != "bbb" {
		t.Fatalf("unexpected image payload %q", img.Base64)
	}
}
