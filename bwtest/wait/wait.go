// Package wait provides polling helpers for integration tests.
package wait

import (
	"context"
	"fmt"
	"time"
)

// PollInterval is the default polling interval used by NoError.
const PollInterval = 200 * time.Millisecond

// NoError calls f until it returns nil or ctx is done. On expiry the context
// error is returned wrapped together with the last error of f.
//
// NOTE: f is not interrupted, so a blocking f can hold NoError past the
// context deadline.
func NoError(ctx context.Context, f func() error) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		err := f()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ctx.Err(), err)

		case <-ticker.C:
		}
	}
}
