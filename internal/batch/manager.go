package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/providers/image"
)

// Executor is the slice of the generation orchestrator the batch path needs.
type Executor interface {
	Resolve(ctx context.Context, ownerID, providerID string) (*domain.ProviderConfig, image.Adapter, string, error)
	RunOne(ctx context.Context, cfg *domain.ProviderConfig, adapter image.Adapter, secret string, req domain.BatchJobRequest) (domain.GeneratedImage, error)
}

// Manager owns the deferred delivery path: it accepts jobs, runs each in its
// own supervised goroutine, and answers status and cancel calls.
type Manager struct {
	jobs        domain.JobStore
	generations domain.GenerationStore
	exec        Executor
	delay       time.Duration
	eta         time.Duration
	logger      zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager(
	jobs domain.JobStore,
	generations domain.GenerationStore,
	exec Executor,
	delay time.Duration,
	eta time.Duration,
	logger zerolog.Logger,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:        jobs,
		generations: generations,
		exec:        exec,
		delay:       delay,
		eta:         eta,
		logger:      logger,
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// Submit accepts a validated relaxed-mode request, records the job, and
// starts processing in the background. The returned job already carries its
// completion estimate.
func (m *Manager) Submit(ctx context.Context, ownerID string, req *domain.GenerationRequest) (*domain.BatchJob, error) {
	cfg, adapter, secret, err := m.exec.Resolve(ctx, ownerID, req.ProviderID)
	if err != nil {
		return nil, err
	}
	if cfg.Vendor != domain.VendorGemini {
		return nil, domain.Validation("Relaxed mode is only available for Gemini providers")
	}

	// One upstream call per output; a multi-output request expands into
	// that many single-image entries.
	requests := make([]domain.BatchJobRequest, 0, req.OutputCount)
	for i := 0; i < req.OutputCount; i++ {
		requests = append(requests, domain.BatchJobRequest{
			Prompt:              req.Prompt,
			NegativePrompt:      req.NegativePrompt,
			AspectRatio:         req.AspectRatio,
			ImageSize:           req.ImageSize,
			ReferenceImagePaths: req.ReferenceImagePaths,
			Source:              req.Source,
		})
	}

	now := time.Now().UTC()
	job := &domain.BatchJob{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		ProviderConfigID: cfg.ID,
		Requests:         requests,
		Status:           domain.JobStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.jobs.Create(ctx, job); err != nil {
		return nil, domain.Internal(fmt.Errorf("create job: %w", err))
	}

	if ok, err := m.jobs.Transition(ctx, job.ID, domain.JobStatusSubmitted, domain.JobStatusPending); err != nil {
		return nil, domain.Internal(fmt.Errorf("submit job: %w", err))
	} else if !ok {
		// Cancelled between create and submit; hand the job back as stored.
		return m.jobs.GetByID(ctx, job.ID)
	}
	metrics.CountJobTransition(string(domain.JobStatusSubmitted))
	job.Status = domain.JobStatusSubmitted
	submittedAt := time.Now().UTC()
	job.SubmittedAt = &submittedAt

	estimate := submittedAt.Add(m.eta)
	if err := m.jobs.SetEstimatedCompletion(ctx, job.ID, estimate); err != nil {
		m.logger.Error().Err(err).Str("job_id", job.ID).Msg("batch: set completion estimate")
	} else {
		job.EstimatedCompletion = &estimate
	}

	m.wg.Add(1)
	go m.supervise(job.ID, cfg, adapter, secret)

	return job, nil
}

// Status returns the job for its owner. Other callers see not-found.
func (m *Manager) Status(ctx context.Context, ownerID, jobID string) (*domain.BatchJob, error) {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, jobNotFound()
		}
		return nil, domain.Internal(fmt.Errorf("load job: %w", err))
	}
	if job.OwnerID != ownerID {
		return nil, jobNotFound()
	}
	return job, nil
}

// jobNotFound mirrors the provider lookup behavior: foreign and missing jobs
// answer identically.
func jobNotFound() *domain.GenError {
	return &domain.GenError{Kind: domain.KindNotFound, Message: "Job not found or access denied", Safe: true}
}

// Cancel requests cooperative cancellation. It reports whether this call
// performed the transition; a job already terminal returns false with no
// error.
func (m *Manager) Cancel(ctx context.Context, ownerID, jobID string) (bool, error) {
	if _, err := m.Status(ctx, ownerID, jobID); err != nil {
		return false, err
	}
	ok, err := m.jobs.Transition(ctx, jobID, domain.JobStatusCancelled,
		domain.JobStatusPending, domain.JobStatusSubmitted, domain.JobStatusProcessing)
	if err != nil {
		return false, domain.Internal(fmt.Errorf("cancel job: %w", err))
	}
	if ok {
		metrics.CountJobTransition(string(domain.JobStatusCancelled))
	}
	return ok, nil
}

// Shutdown stops accepting background work and waits for in-flight jobs
// until ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
