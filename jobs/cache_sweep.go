package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/mealbridge/mealbridge/internal/authz"
)

// NewCacheSweepHandler returns the handler for TaskCacheSweep. Stale
// generations are unreachable already; the sweep reclaims their Redis memory
// ahead of TTL expiry.
func NewCacheSweepHandler(cache *authz.DecisionCache, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := cache.Sweep(ctx)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("decision cache sweep", slog.Int("removed", removed))
		}
		return nil
	}
}
