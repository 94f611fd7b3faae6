package automation

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// errPending marks a check whose condition does not hold yet.
var errPending = errors.New("condition not met")

// checkFunc reports whether the awaited condition holds.
type checkFunc func(ctx context.Context) (bool, error)

// poll runs check immediately and then every interval until it reports true.
// attempts bounds the number of checks; zero or less means no bound. A bounded
// poll that runs out returns errPending. Errors from check end the poll as is.
func poll(ctx context.Context, interval time.Duration, attempts int, check checkFunc) error {
	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if attempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(attempts-1))
	}

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		done, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errPending
		}
		return nil
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
