package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobStore.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new batch job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record with its expanded request list.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.BatchJob) error {
	requests, err := json.Marshal(job.Requests)
	if err != nil {
		return fmt.Errorf("marshal requests: %w", err)
	}
	query := `
INSERT INTO batch_jobs (id, owner_id, provider_config_id, requests, results, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, '[]'::jsonb, $5, $6, $7);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.OwnerID,
		job.ProviderConfigID,
		requests,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	query := `
SELECT id, owner_id, provider_config_id, requests, results, status, error_message,
       submitted_at, estimated_completion, completed_at, created_at, updated_at
FROM batch_jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var (
		job      domain.BatchJob
		requests []byte
		results  []byte
		errMsg   *string
	)
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.ProviderConfigID,
		&requests,
		&results,
		&job.Status,
		&errMsg,
		&job.SubmittedAt,
		&job.EstimatedCompletion,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(requests, &job.Requests); err != nil {
		return nil, fmt.Errorf("unmarshal requests: %w", err)
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &job.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	return &job, nil
}

// Transition moves a job to the target status only if its current status is
// one of from. The guard runs inside the UPDATE so concurrent movers cannot
// both win. Terminal targets also stamp completed_at.
func (r *JobRepositoryPG) Transition(ctx context.Context, jobID string, to domain.JobStatus, from ...domain.JobStatus) (bool, error) {
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	query := `
UPDATE batch_jobs
SET status = $2,
    updated_at = NOW(),
    submitted_at = CASE WHEN $2 = 'submitted' THEN NOW() ELSE submitted_at END,
    completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN NOW() ELSE completed_at END
WHERE id = $1 AND status = ANY($3);
`
	tag, err := r.pool.Exec(ctx, query, jobID, to, allowed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetEstimatedCompletion records the advertised completion time.
func (r *JobRepositoryPG) SetEstimatedCompletion(ctx context.Context, jobID string, eta time.Time) error {
	query := `
UPDATE batch_jobs
SET estimated_completion = $2,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, eta)
	return err
}

// SetError records a job-level failure message.
func (r *JobRepositoryPG) SetError(ctx context.Context, jobID string, msg string) error {
	query := `
UPDATE batch_jobs
SET error_message = $2,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, msg)
	return err
}

// AppendResult appends one result entry to the job's results array.
func (r *JobRepositoryPG) AppendResult(ctx context.Context, jobID string, result domain.BatchJobResult) error {
	entry, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	query := `
UPDATE batch_jobs
SET results = results || jsonb_build_array($2::jsonb),
    updated_at = NOW()
WHERE id = $1;
`
	_, err = r.pool.Exec(ctx, query, jobID, entry)
	return err
}

var _ domain.JobStore = (*JobRepositoryPG)(nil)
