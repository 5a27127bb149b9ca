package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/johnharveymath/oxcovid19db/internal/metrics"
)

// Clock sleeps between attempts. Tests substitute a fake.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy is a fixed-delay retry budget: one attempt plus up to Retries more,
// with Delay between consecutive attempts.
type Policy struct {
	Retries int
	Delay   time.Duration
}

// Validate rejects a negative budget.
func (p Policy) Validate() error {
	if p.Retries < 0 {
		return ErrInvalidBudget
	}
	return nil
}

// retry runs fn until it succeeds, fails with a non-retryable error, or the
// budget is spent. Exhaustion yields an *UnavailableError wrapping the last
// failure.
func retry(ctx context.Context, clock Clock, logger *slog.Logger, op string, p Policy, fn func(ctx context.Context) error) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			metrics.StoreRetries.WithLabelValues(op).Inc()
			logger.Warn("store_retry", "op", op, "attempt", attempt, "retries", p.Retries, "delay", p.Delay, "err", err)
			if serr := clock.Sleep(ctx, p.Delay); serr != nil {
				return serr
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return &UnavailableError{Op: op, Attempts: p.Retries + 1, Err: err}
}

// retryable reports whether err looks transient: connection failures and
// server-side resource or shutdown conditions. Statement errors such as bad
// SQL or a missing relation are not retried.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrInvalidBudget) || errors.Is(err, errDecode) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53", "57", "58":
			return true
		}
		return false
	}
	return true
}
