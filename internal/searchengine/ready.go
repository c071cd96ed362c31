package searchengine

import (
	"context"
	"fmt"
	"time"
)

// ReadyPollInterval is the delay between pings in WaitForReady.
var ReadyPollInterval = 500 * time.Millisecond

// WaitForReady polls Ping until the engine responds or timeout expires.
func WaitForReady(ctx context.Context, eng interface{ Ping(context.Context) error }, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	if lastErr = eng.Ping(ctx); lastErr == nil {
		return nil
	}

	ticker := time.NewTicker(ReadyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search engine: %w", lastErr)
		case <-ticker.C:
			if lastErr = eng.Ping(ctx); lastErr == nil {
				return nil
			}
		}
	}
}
