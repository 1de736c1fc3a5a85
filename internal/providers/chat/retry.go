package chat

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"
)

// Retry policy for transient provider failures: up to 3 total attempts with
// a 400ms, 800ms backoff between them. No jitter.
const (
	MaxAttempts = 3
	backoffStep = 400 * time.Millisecond
)

// Backoff returns the delay before the attempt following attemptNumber
// (1-based).
func Backoff(attemptNumber int) time.Duration {
	return backoffStep * time.Duration(attemptNumber)
}

// Retryable classifies an error as a transient provider failure: timeout,
// cancelled/aborted call, transport failure, HTTP 429 or any 5xx. Everything
// else (schema mismatch, auth failure, other 4xx) is terminal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == 429 || httpErr.Status >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Retry runs fn until it succeeds, returns a terminal error, or MaxAttempts
// is exhausted, sleeping Backoff(attempt) between retryable failures. The
// backoff waits on a timer, never a busy loop, and respects ctx.
func Retry[T any](ctx context.Context, fn func(attempt int) (T, error)) (T, error) {
	var lastErr error
	var zero T
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		out, err := fn(attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !Retryable(err) || attempt == MaxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		}
	}
	return zero, lastErr
}
