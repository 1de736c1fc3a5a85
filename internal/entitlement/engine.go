package entitlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dreambot/internal/auth"
	"dreambot/internal/domain"
	"dreambot/internal/infra"
)

// Engine performs the gated-action checks. Every check re-reads persisted
// state immediately before the decision; nothing is cached across calls, so a
// plan or counter change between two messages is always observed.
type Engine struct {
	users  domain.UserRepository
	dreams domain.DreamRepository
	admins *auth.Admins
	logger infra.Logger

	// Follow-up usage is ephemeral by design: it lives in process memory
	// keyed by (user, month) and resets on restart.
	mu        sync.Mutex
	followups map[string]int

	now func() time.Time
}

func NewEngine(users domain.UserRepository, dreams domain.DreamRepository, admins *auth.Admins, logger infra.Logger) *Engine {
	return &Engine{
		users:     users,
		dreams:    dreams,
		admins:    admins,
		logger:    logger,
		followups: make(map[string]int),
		now:       time.Now,
	}
}

// CheckInterpret runs the lazy monthly reset and re-reads the user before the
// quota comparison, so a stale counter is never consulted. On success it
// returns the fresh user for the caller to build the prompt from.
func (e *Engine) CheckInterpret(ctx context.Context, userID string) (*domain.User, error) {
	if err := e.users.EnsureMonthlyReset(ctx, userID, e.now().UTC()); err != nil {
		return nil, fmt.Errorf("monthly reset: %w", err)
	}
	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !CanInterpret(u.Plan, u.MonthlyCount) {
		e.logger.Info().
			Str("user_id", userID).
			Int("monthly_count", u.MonthlyCount).
			Msg("interpretation quota exhausted")
		return nil, fmt.Errorf("monthly interpretations: %w", domain.ErrQuotaExceeded)
	}
	return u, nil
}

// NoteInterpretation advances the monthly counter after a successful call.
func (e *Engine) NoteInterpretation(ctx context.Context, userID string) error {
	return e.users.IncMonthlyCount(ctx, userID)
}

// CheckFollowup consults the ephemeral per-month follow-up counter.
func (e *Engine) CheckFollowup(u *domain.User) error {
	if !CanAskFollowup(u.Plan, e.FollowupsUsed(u.ID)) {
		return fmt.Errorf("monthly follow-ups: %w", domain.ErrQuotaExceeded)
	}
	return nil
}

// NoteFollowup advances the ephemeral follow-up counter.
func (e *Engine) NoteFollowup(u *domain.User) {
	key := e.followupKey(u.ID)
	e.mu.Lock()
	e.followups[key]++
	e.mu.Unlock()
}

// FollowupsUsed returns the follow-ups recorded for the user in the current
// UTC month.
func (e *Engine) FollowupsUsed(userID string) int {
	key := e.followupKey(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.followups[key]
}

func (e *Engine) followupKey(userID string) string {
	return userID + "|" + MonthKey(e.now(), time.UTC)
}

// PracticeDecision tells a caller whether a practice can be issued right now
// and which period tag a successful issue must record: the daily tag for paid
// users, the monthly tag for free users.
type PracticeDecision struct {
	Allowed bool
	Paid    bool
	Tag     string
}

func (e *Engine) PracticeDecision(u *domain.User, entry *domain.DreamEntry) PracticeDecision {
	now := e.now()
	loc := u.Location()
	paid := IsPaid(u.Plan)

	tag := PracticeMonthTag(now, loc)
	if paid {
		tag = PracticeDayTag(now, loc)
	}
	return PracticeDecision{
		Allowed: !entry.Tags().Has(tag),
		Paid:    paid,
		Tag:     tag,
	}
}

// MarkPracticeIssued records the period tag in the entry's tag set.
func (e *Engine) MarkPracticeIssued(ctx context.Context, entry *domain.DreamEntry, tag string) error {
	tags := entry.Tags()
	tags.Add(tag)
	entry.Keywords = tags.String()
	return e.dreams.UpdateKeywords(ctx, entry.ID, entry.Keywords)
}
