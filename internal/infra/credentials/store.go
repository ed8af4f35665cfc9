package credentials

import (
	"context"
	"errors"
	"strings"

	"server/internal/infra"
	"server/internal/sqlinline"
)

// Store reads and writes provider API secrets. Secrets never appear in logs;
// the SQL runner logs query markers only.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Secret returns the API secret bound to a provider configuration. A missing
// row yields an empty secret, not an error; vendors that require one will
// reject the call upstream.
func (s *Store) Secret(ctx context.Context, providerConfigID string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderCredential, providerConfigID)
	var secret string
	if err := row.Scan(&secret); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(secret), nil
}

// Set stores or replaces the secret for a provider configuration.
func (s *Store) Set(ctx context.Context, providerConfigID, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("credential secret is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderCredential, providerConfigID, secret)
	return err
}
