// Package wait provides bounded, cancellable polling and sleeping.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Until when the condition did not hold in time.
var ErrTimeout = errors.New("timed out")

// Condition reports whether the awaited state has been reached. A non-nil
// error aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// Until polls cond every pollInterval until it returns true, it returns an
// error, the timeout elapses or ctx is cancelled. The condition is always
// evaluated at least once.
func Until(ctx context.Context, timeout, pollInterval time.Duration, cond Condition) error {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}

		// Wait before next poll
		if err := Sleep(ctx, min(pollInterval, time.Until(deadline))); err != nil {
			return err
		}
	}
}

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
