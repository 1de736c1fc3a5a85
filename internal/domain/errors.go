package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrReportNotAvailable = errors.New("report not available")
	// ErrNoJSON signals that no parseable JSON object could be extracted
	// from the model output.
	ErrNoJSON = errors.New("model did not return valid JSON")
)

// SchemaValidationError reports an interpretation payload that parsed as JSON
// but violates a field constraint.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("interpretation schema: %s %s", e.Field, e.Reason)
}

// RateLimitedError is returned when a feature's short-horizon request ceiling
// is hit. It carries enough context for the caller to render a wait message.
type RateLimitedError struct {
	Feature string
	Limit   int
	Window  time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (%d per %s)", e.Feature, e.Limit, e.Window)
}

// BudgetExceededError signals that the daily LLM budget was crossed. It is
// observational: callers log it but do not block further calls.
type BudgetExceededError struct {
	Date     string
	TotalUSD float64
	LimitUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("daily budget exceeded on %s: %.4f of %.2f USD", e.Date, e.TotalUSD, e.LimitUSD)
}
