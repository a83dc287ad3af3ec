package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mealbridge/mealbridge/internal/audit"
)

const verifyWindow = 24 * time.Hour
const verifyBatchLimit = 5000

// NewAuditVerifyHandler returns the handler for TaskAuditVerify. A non-zero
// mismatch count fails the task so the worker's retry and error surfacing
// make the condition loud.
func NewAuditVerifyHandler(service *audit.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		since := time.Now().UTC().Add(-verifyWindow)
		checked, mismatched, err := service.Verify(ctx, since, verifyBatchLimit)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("audit ledger verification",
				slog.Int("checked", checked), slog.Int("mismatched", mismatched))
		}
		if mismatched > 0 {
			return fmt.Errorf("audit ledger verification found %d mismatched entries", mismatched)
		}
		return nil
	}
}
