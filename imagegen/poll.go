package imagegen

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrPollTimeout is returned when a job does not reach a terminal state
// within the attempt budget. It is the only safety valve against a stuck job.
var ErrPollTimeout = errors.New("polling attempts exhausted before job completed")

// Poll invokes check at a fixed interval until it reports a terminal state or
// maxAttempts is reached. A transient check error does not abort the loop; it
// is logged and the next attempt proceeds. Usable against any two-phase async
// job collaborator.
func Poll[T any](ctx context.Context, interval time.Duration, maxAttempts int, check func(ctx context.Context) (T, bool, error)) (T, error) {
	var zero T

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(interval):
		}

		result, terminal, err := check(ctx)
		if err != nil {
			if terminal {
				return zero, err
			}
			log.Printf("poll attempt %d/%d failed: %v", attempt, maxAttempts, err)
			continue
		}
		if terminal {
			return result, nil
		}
	}

	return zero, ErrPollTimeout
}
