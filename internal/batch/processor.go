package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/providers/image"
)

// supervise wraps process so a panic in one job never takes the service
// down; the job is marked failed instead.
func (m *Manager) supervise(jobID string, cfg *domain.ProviderConfig, adapter image.Adapter, secret string) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Str("job_id", jobID).Interface("panic", r).Msg("batch: job panicked")
			m.failJob(jobID, domain.MsgFallback)
		}
	}()
	m.process(jobID, cfg, adapter, secret)
}

// process runs every request of one job in order, spaced by the configured
// delay. Cancellation is observed between requests by reloading the job;
// per-request failures are recorded and processing continues.
func (m *Manager) process(jobID string, cfg *domain.ProviderConfig, adapter image.Adapter, secret string) {
	ctx := m.baseCtx

	ok, err := m.jobs.Transition(ctx, jobID, domain.JobStatusProcessing, domain.JobStatusSubmitted)
	if err != nil {
		m.logger.Error().Err(err).Str("job_id", jobID).Msg("batch: start processing")
		return
	}
	if !ok {
		// Cancelled before work began.
		return
	}
	metrics.CountJobTransition(string(domain.JobStatusProcessing))

	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		m.logger.Error().Err(err).Str("job_id", jobID).Msg("batch: load job")
		m.failJob(jobID, domain.MsgFallback)
		return
	}

	limiter := rate.NewLimiter(rate.Every(m.delay), 1)
	for i := range job.Requests {
		if ctx.Err() != nil {
			// Shutting down; leave the job in processing for a restart.
			return
		}

		// Reload before each request so a cancel issued mid-job stops
		// further upstream calls.
		current, err := m.jobs.GetByID(ctx, jobID)
		if err != nil {
			m.logger.Error().Err(err).Str("job_id", jobID).Msg("batch: reload job")
			m.failJob(jobID, domain.MsgFallback)
			return
		}
		if current.Status == domain.JobStatusCancelled {
			m.logger.Info().Str("job_id", jobID).Int("completed", i).Msg("batch: job cancelled")
			return
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		result := m.runRequest(ctx, cfg, adapter, secret, job, i)
		if err := m.jobs.AppendResult(ctx, jobID, result); err != nil {
			m.logger.Error().Err(err).Str("job_id", jobID).Int("request_index", i).Msg("batch: append result")
			m.failJob(jobID, domain.MsgFallback)
			return
		}
	}

	if ok, err := m.jobs.Transition(ctx, jobID, domain.JobStatusCompleted, domain.JobStatusProcessing); err != nil {
		m.logger.Error().Err(err).Str("job_id", jobID).Msg("batch: complete job")
	} else if ok {
		metrics.CountJobTransition(string(domain.JobStatusCompleted))
		m.logger.Info().Str("job_id", jobID).Int("requests", len(job.Requests)).Msg("batch: job completed")
	}
}

// runRequest executes one request and converts the outcome into an
// append-only result entry. Failures are per-entry; they never abort the job.
func (m *Manager) runRequest(ctx context.Context, cfg *domain.ProviderConfig, adapter image.Adapter, secret string, job *domain.BatchJob, idx int) domain.BatchJobResult {
	img, err := m.exec.RunOne(ctx, cfg, adapter, secret, job.Requests[idx])
	if err != nil {
		m.logger.Warn().Err(err).Str("job_id", job.ID).Int("request_index", idx).Msg("batch: request failed")
		metrics.CountGeneration(string(cfg.Vendor), string(domain.ModeRelaxed), "error")
		return domain.BatchJobResult{
			RequestIndex: idx,
			Success:      false,
			Error:        domain.SafeMessage(err),
		}
	}

	metrics.CountGeneration(string(cfg.Vendor), string(domain.ModeRelaxed), "success")
	gen := &domain.Generation{
		ID:               uuid.NewString(),
		OwnerID:          job.OwnerID,
		ProviderConfigID: cfg.ID,
		JobID:            job.ID,
		Prompt:           job.Requests[idx].Prompt,
		NegativePrompt:   job.Requests[idx].NegativePrompt,
		AspectRatio:      job.Requests[idx].AspectRatio,
		ImageSize:        job.Requests[idx].ImageSize,
		URL:              img.URL,
		Source:           job.Requests[idx].Source,
		CreatedAt:        time.Now().UTC(),
	}
	if err := m.generations.Create(ctx, gen); err != nil {
		// History is best effort; the produced image still counts.
		m.logger.Error().Err(err).Str("job_id", job.ID).Int("request_index", idx).Msg("batch: record generation")
	}

	return domain.BatchJobResult{
		RequestIndex: idx,
		Success:      true,
		URL:          img.URL,
		Base64:       img.Base64,
	}
}

func (m *Manager) failJob(jobID, msg string) {
	ctx := m.baseCtx
	if err := m.jobs.SetError(ctx, jobID, msg); err != nil {
		m.logger.Error().Err(err).Str("job_id", jobID).Msg("batch: set job error")
	}
	if ok, err := m.jobs.Transition(ctx, jobID, domain.JobStatusFailed,
		domain.JobStatusPending, domain.JobStatusSubmitted, domain.JobStatusProcessing); err != nil {
		m.logger.Error().Err(err).Str("job_id", jobID).Msg("batch: fail job")
	} else if ok {
		metrics.CountJobTransition(string(domain.JobStatusFailed))
	}
}
