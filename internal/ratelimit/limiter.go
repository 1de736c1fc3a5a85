// Package ratelimit throttles per-feature request rates over sliding windows.
// It is orthogonal to the monthly plan quotas: a user inside their quota can
// still be rate-limited, and the ceilings do not vary by plan.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"dreambot/internal/auth"
	"dreambot/internal/domain"
	"dreambot/internal/infra"
)

// Feature names a rate-limited action.
type Feature string

const (
	FeatureInterpret Feature = "interpret"
	FeatureFollowup  Feature = "followup"
	FeatureReport    Feature = "report"
	FeaturePractice  Feature = "practice"
	FeatureExport    Feature = "export"
)

// Limit is one feature's ceiling within its sliding window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Limits are fixed per feature, independent of plan.
var Limits = map[Feature]Limit{
	FeatureInterpret: {Max: 5, Window: time.Minute},
	FeatureFollowup:  {Max: 3, Window: time.Minute},
	FeatureReport:    {Max: 2, Window: time.Hour},
	FeaturePractice:  {Max: 10, Window: time.Hour},
	FeatureExport:    {Max: 5, Window: time.Hour},
}

// WindowUsage is the live state of one (user, feature) window.
type WindowUsage struct {
	Used     int
	OldestAt time.Time
}

// Store keeps the request timestamps behind the sliding-window check. The
// memory store serves a single instance; the redis store externalizes the
// same contract for multi-instance deployments.
type Store interface {
	// Hit expires entries older than the window, then records the request if
	// the live count is below max. It reports whether the request was allowed.
	Hit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (allowed bool, err error)
	// Usage returns the live count and oldest timestamp without recording.
	Usage(ctx context.Context, key string, window time.Duration, now time.Time) (WindowUsage, error)
	// Cleanup drops fully-expired windows and returns how many were removed.
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

// Limiter applies the per-feature ceilings with an admin bypass.
type Limiter struct {
	store  Store
	admins *auth.Admins
	logger infra.Logger

	// OnLimited, when set, observes every rejected request (metrics).
	OnLimited func(feature Feature, plan string)

	now func() time.Time
}

func New(store Store, admins *auth.Admins, logger infra.Logger) *Limiter {
	return &Limiter{store: store, admins: admins, logger: logger, now: time.Now}
}

// Check records one request or rejects it with a RateLimitedError carrying
// the feature, ceiling and window. Store failures fail open with a warning:
// losing throttling briefly beats refusing every user.
func (l *Limiter) Check(ctx context.Context, userTgID string, feature Feature, plan string) error {
	if l.admins.Is(userTgID) {
		l.logger.Debug().Str("user", userTgID).Str("feature", string(feature)).Msg("rate limit bypassed for admin")
		return nil
	}
	limit, ok := Limits[feature]
	if !ok {
		return fmt.Errorf("unknown rate-limited feature %q", feature)
	}

	allowed, err := l.store.Hit(ctx, key(userTgID, feature), limit.Window, limit.Max, l.now())
	if err != nil {
		l.logger.Warn().Err(err).Str("feature", string(feature)).Msg("rate-limit store unavailable, allowing request")
		return nil
	}
	if !allowed {
		if l.OnLimited != nil {
			l.OnLimited(feature, plan)
		}
		l.logger.Warn().
			Str("user", userTgID).
			Str("feature", string(feature)).
			Str("plan", plan).
			Int("limit", limit.Max).
			Dur("window", limit.Window).
			Msg("rate limit exceeded")
		return &domain.RateLimitedError{Feature: string(feature), Limit: limit.Max, Window: limit.Window}
	}
	return nil
}

// FeatureStats describes one feature's window for the stats endpoint.
type FeatureStats struct {
	Used      int           `json:"used"`
	Max       int           `json:"max"`
	Remaining int           `json:"remaining"`
	Window    time.Duration `json:"windowMs"`
	ResetsAt  *time.Time    `json:"resetsAt"`
}

// Stats reports the live window of every feature for one user.
func (l *Limiter) Stats(ctx context.Context, userTgID string) (map[Feature]FeatureStats, error) {
	now := l.now()
	out := make(map[Feature]FeatureStats, len(Limits))
	for feature, limit := range Limits {
		usage, err := l.store.Usage(ctx, key(userTgID, feature), limit.Window, now)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", feature, err)
		}
		stats := FeatureStats{
			Used:      usage.Used,
			Max:       limit.Max,
			Remaining: max(0, limit.Max-usage.Used),
			Window:    limit.Window,
		}
		if usage.Used > 0 {
			resetsAt := usage.OldestAt.Add(limit.Window)
			stats.ResetsAt = &resetsAt
		}
		out[feature] = stats
	}
	return out, nil
}

// Cleanup drops fully-expired windows from the store.
func (l *Limiter) Cleanup(ctx context.Context) int {
	removed, err := l.store.Cleanup(ctx, l.now())
	if err != nil {
		l.logger.Warn().Err(err).Msg("rate-limit cleanup failed")
		return 0
	}
	if removed > 0 {
		l.logger.Debug().Int("removed", removed).Msg("cleaned up rate-limit windows")
	}
	return removed
}

// RunCleanup sweeps the store on the interval until ctx is cancelled.
func (l *Limiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Cleanup(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func key(userTgID string, feature Feature) string {
	return userTgID + ":" + string(feature)
}
