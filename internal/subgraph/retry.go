package subgraph

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultRetryBackoff = 100 * time.Millisecond

// withRetry runs fn until it succeeds or MaxRetries retries are spent, doubling
// the backoff after each failed attempt. Every failure is logged with the
// attempt number and the wait before the next one.
func (c *Client) withRetry(ctx context.Context, url string, fn func(context.Context) error) error {
	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := c.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > retries {
			c.logger.Warn("subgraph query failed",
				zap.String("url", url),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return err
		}
		c.logger.Debug("subgraph query retry",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
