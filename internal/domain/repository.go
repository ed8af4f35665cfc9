package domain

import (
	"context"
	"time"
)

// ProviderStore resolves provider configurations. Missing and not-owned
// records both surface as ErrNotFound.
type ProviderStore interface {
	GetForOwner(ctx context.Context, id, ownerID string) (*ProviderConfig, error)
}

// CredentialSource resolves the decrypted secret for one provider
// configuration. Secrets stay server-side and are never echoed back.
type CredentialSource interface {
	Secret(ctx context.Context, providerConfigID string) (string, error)
}

// GenerationStore durably records one completed image with its settings
// snapshot.
type GenerationStore interface {
	Create(ctx context.Context, gen *Generation) error
}

// JobStore persists batch jobs. Transition is a guarded compare-and-set so
// cancel and the background processor cannot race each other into an illegal
// state.
type JobStore interface {
	Create(ctx context.Context, job *BatchJob) error
	GetByID(ctx context.Context, id string) (*BatchJob, error)
	// Transition moves the job to status to only when its current status is
	// one of from, and reports whether the transition applied. Terminal
	// targets stamp the completion time.
	Transition(ctx context.Context, id string, to JobStatus, from ...JobStatus) (bool, error)
	SetEstimatedCompletion(ctx context.Context, id string, eta time.Time) error
	SetError(ctx context.Context, id string, message string) error
	AppendResult(ctx context.Context, id string, result BatchJobResult) error
}
