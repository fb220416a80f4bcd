package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-booksync/config"
	"github.com/aluiziolira/go-booksync/metrics"
)

// RetryingFetcher wraps a Fetcher with capped exponential backoff. With
// MaxRetries == 0 it makes exactly one attempt per page.
type RetryingFetcher struct {
	next       Fetcher
	maxRetries int
	base       time.Duration
	max        time.Duration
	metrics    *metrics.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewRetryingFetcher(next Fetcher, cfg *config.Config, m *metrics.Metrics) *RetryingFetcher {
	return &RetryingFetcher{
		next:       next,
		maxRetries: cfg.MaxRetries,
		base:       cfg.RetryBackoff,
		max:        cfg.RetryBackoffMax,
		metrics:    m,
		sleep:      sleepContext,
	}
}

func (rf *RetryingFetcher) Fetch(ctx context.Context, page int) FetchOutcome {
	attempts := 0
	retries := 0
	for {
		out := rf.next.Fetch(ctx, page)
		if out.Attempts <= 0 {
			out.Attempts = 1
		}
		attempts += out.Attempts
		out.Attempts = attempts

		if retries >= rf.maxRetries || !retryable(out) {
			return out
		}

		retries++
		delay := rf.backoff(retries)
		rf.metrics.IncRetries()
		slog.Warn("retrying page fetch",
			slog.Int("page", page),
			slog.Int("retry", retries),
			slog.Duration("backoff", delay),
			slog.String("category", errorTypeLabel(out.Err)),
		)
		if err := rf.sleep(ctx, delay); err != nil {
			return out
		}
	}
}

func (rf *RetryingFetcher) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rf.base
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if rf.max > 0 && delay > rf.max {
		delay = rf.max
	}
	return delay
}

func retryable(out FetchOutcome) bool {
	switch out.Kind {
	case OutcomeNetworkError:
		return !errors.Is(out.Err, context.Canceled)
	case OutcomeHTTPError:
		var status ErrHTTPStatus
		return errors.As(out.Err, &status) && status.Retryable()
	default:
		return false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
