package engine

import (
	"context"
	"time"
)

// sleep suspends the calling run for d. Each run waits on its own timer so a
// delay never holds a dispatch slot or another run's goroutine.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
