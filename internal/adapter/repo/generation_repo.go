package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// GenerationRepositoryPG implements domain.GenerationStore.
type GenerationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository constructs the repository.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{pool: pool}
}

// Create records one produced image in the generation history.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	query := `
INSERT INTO generations (id, owner_id, provider_config_id, job_id, prompt, negative_prompt, aspect_ratio, image_size, url, source, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`
	_, err := r.pool.Exec(ctx, query,
		gen.ID,
		gen.OwnerID,
		gen.ProviderConfigID,
		nullableString(gen.JobID),
		gen.Prompt,
		gen.NegativePrompt,
		gen.AspectRatio,
		gen.ImageSize,
		gen.URL,
		gen.Source,
		gen.CreatedAt,
	)
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ domain.GenerationStore = (*GenerationRepositoryPG)(nil)
