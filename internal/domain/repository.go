package domain

import (
	"context"
	"time"
)

// UserRepository is the persistence collaborator contract for users. The
// schema itself is external; this core only depends on these operations.
type UserRepository interface {
	GetOrCreateByTgID(ctx context.Context, tgID string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// EnsureMonthlyReset zeroes monthly_count and advances last_plan_reset
	// when the stored marker belongs to an earlier UTC calendar month. It is
	// a no-op within the same month and must run before every quota check.
	EnsureMonthlyReset(ctx context.Context, userID string, now time.Time) error
	IncMonthlyCount(ctx context.Context, userID string) error
	SetPlan(ctx context.Context, tgID, plan string, until time.Time) error
	SetReportMarkers(ctx context.Context, userID string, at time.Time, month string) error
	ListAll(ctx context.Context) ([]User, error)
}

// DreamRepository covers the dream-entry operations the gating and LLM flows
// rely on, including the tag-set read/write on the keywords column.
type DreamRepository interface {
	Create(ctx context.Context, entry *DreamEntry) (*DreamEntry, error)
	GetByID(ctx context.Context, id string) (*DreamEntry, error)
	GetLast(ctx context.Context, userID string) (*DreamEntry, error)
	FirstDreamAt(ctx context.Context, userID string) (*time.Time, error)
	ListSince(ctx context.Context, userID string, from time.Time) ([]DreamEntry, error)
	SaveInterpretation(ctx context.Context, entryID string, llmJSON []byte) error
	SaveEntryCost(ctx context.Context, entryID string, tokensIn, tokensOut int, costRub float64) error
	UpdateKeywords(ctx context.Context, entryID, keywords string) error
}
