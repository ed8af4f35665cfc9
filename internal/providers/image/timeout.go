package image

import (
	"context"
	"errors"
	"time"

	"server/internal/domain"
)

// DefaultTimeout is the per-call budget applied when the provider
// configuration does not override it.
const DefaultTimeout = 90 * time.Second

// CallWithTimeout wraps one outbound call with a deadline. A deadline breach
// cancels the in-flight transport and surfaces as a typed timeout carrying
// the budget; any other failure is passed through unchanged. The deferred
// cancel releases the timer on every exit path.
func CallWithTimeout(ctx context.Context, budget time.Duration, fn func(context.Context) ([]domain.GeneratedImage, error)) ([]domain.GeneratedImage, error) {
	if budget <= 0 {
		budget = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	images, err := fn(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.Timeout(budget)
		}
		return nil, err
	}
	return images, nil
}

// TimeoutFor resolves the call budget for one provider configuration.
func TimeoutFor(cfg *domain.ProviderConfig, fallback time.Duration) time.Duration {
	if cfg != nil && cfg.Options.TimeoutSeconds > 0 {
		return time.Duration(cfg.Options.TimeoutSeconds) * time.Second
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeout
}
