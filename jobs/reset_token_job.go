package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ResetTokenPurger deletes password reset tokens that can no longer be used.
type ResetTokenPurger interface {
	PurgeResetTokens(ctx context.Context) (int64, error)
}

const PurgeResetTokensSpec = "@hourly"

// PurgeResetTokens runs one purge pass.
func PurgeResetTokens(ctx context.Context, purger ResetTokenPurger, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	removed, err := purger.PurgeResetTokens(ctx)
	if err != nil {
		log.Error("reset token purge failed", zap.Error(err))
		return
	}
	if removed > 0 {
		log.Info("purged reset tokens", zap.Int64("removed", removed))
	}
}

// Schedule registers every background job on c.
func Schedule(c *cron.Cron, purger ResetTokenPurger, log *zap.Logger) error {
	_, err := c.AddFunc(PurgeResetTokensSpec, func() {
		PurgeResetTokens(context.Background(), purger, log)
	})
	return err
}
