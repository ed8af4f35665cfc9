package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// ProviderRepositoryPG implements domain.ProviderStore.
type ProviderRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProviderRepository constructs the repository.
func NewProviderRepository(pool *pgxpool.Pool) *ProviderRepositoryPG {
	return &ProviderRepositoryPG{pool: pool}
}

// GetForOwner fetches a provider configuration scoped to its owner. A
// configuration belonging to someone else is indistinguishable from a
// missing one.
func (r *ProviderRepositoryPG) GetForOwner(ctx context.Context, id, ownerID string) (*domain.ProviderConfig, error) {
	query := `
SELECT id, owner_id, vendor, endpoint, model, options, credential_id
FROM provider_configs
WHERE id = $1 AND owner_id = $2;
`
	row := r.pool.QueryRow(ctx, query, id, ownerID)
	var (
		cfg     domain.ProviderConfig
		options []byte
	)
	if err := row.Scan(
		&cfg.ID,
		&cfg.OwnerID,
		&cfg.Vendor,
		&cfg.Endpoint,
		&cfg.Model,
		&options,
		&cfg.CredentialID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &cfg.Options); err != nil {
			return nil, fmt.Errorf("unmarshal provider options: %w", err)
		}
	}
	return &cfg, nil
}

var _ domain.ProviderStore = (*ProviderRepositoryPG)(nil)
