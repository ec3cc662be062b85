package crmsync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WaitForAccount polls for the account originated by leadID until it becomes
// queryable, up to the configured attempt budget with a fixed delay between
// attempts. Returns the empty id when the budget is exhausted; only token,
// transport, and context failures surface as errors.
//
// Dataverse replicates new records to the query store asynchronously, so a
// record created moments ago can be invisible to a filtered read.
func (e *Engine) WaitForAccount(ctx context.Context, leadID string) (string, error) {
	for attempt := 1; attempt <= e.waitAttempts; attempt++ {
		id, err := e.AccountIDByLead(ctx, leadID)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
		zap.L().Debug("account not yet queryable",
			zap.String("leadID", leadID),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", e.waitAttempts))
		if attempt == e.waitAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(e.waitDelay):
		}
	}
	return "", nil
}

// sleep pauses for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
