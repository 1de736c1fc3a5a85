package entitlement

import (
	"context"
	"errors"
	"time"

	"dreambot/internal/domain"
)

// ReportState is one of the five report-availability states.
type ReportState int

const (
	NoDreamsYet ReportState = iota
	WaitingForFirstWindow
	Available
	FreeExhaustedThisMonth
	PaidCooldownActive
)

func (s ReportState) String() string {
	switch s {
	case NoDreamsYet:
		return "no_dreams_yet"
	case WaitingForFirstWindow:
		return "waiting_for_first_window"
	case Available:
		return "available"
	case FreeExhaustedThisMonth:
		return "free_exhausted_this_month"
	case PaidCooldownActive:
		return "paid_cooldown_active"
	default:
		return "unknown"
	}
}

// ReportWindowDays is both the report period length and the paid cooldown.
const ReportWindowDays = 7

// ReportAvailability is the recomputed-per-call answer to "can a 7-day report
// be generated right now".
type ReportAvailability struct {
	State          ReportState
	CanGenerate    bool
	DaysSinceFirst int
	DaysUntilNext  int
}

// ReportAvailability walks the state machine from persisted state. Admins are
// always Available. The result must not be cached: plan, dreams and markers
// can all change between calls.
func (e *Engine) ReportAvailability(ctx context.Context, u *domain.User) (*ReportAvailability, error) {
	if e.admins.Is(u.TgID) {
		return &ReportAvailability{State: Available, CanGenerate: true}, nil
	}

	now := e.now()
	loc := u.Location()

	first, err := e.dreams.FirstDreamAt(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return &ReportAvailability{State: NoDreamsYet}, nil
	}

	daysSince := daysBetween(*first, now)
	if daysSince < ReportWindowDays {
		return &ReportAvailability{State: WaitingForFirstWindow, DaysSinceFirst: daysSince}, nil
	}

	if IsPaid(u.Plan) {
		if u.LastReportAt != nil {
			if wait := ReportWindowDays - daysBetween(*u.LastReportAt, now); wait > 0 {
				return &ReportAvailability{State: PaidCooldownActive, DaysSinceFirst: daysSince, DaysUntilNext: wait}, nil
			}
		}
		return &ReportAvailability{State: Available, CanGenerate: true, DaysSinceFirst: daysSince}, nil
	}

	monthKey := MonthKey(now, loc)
	if u.LastReportMonth == monthKey {
		return &ReportAvailability{State: FreeExhaustedThisMonth, DaysSinceFirst: daysSince}, nil
	}
	// Belt and braces: the weekly tag on the latest entry blocks too, in case
	// the user column was reset while the marker survived.
	last, err := e.dreams.GetLast(ctx, u.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if last != nil && last.Tags().Has(weeklyTagPrefix+monthKey) {
		return &ReportAvailability{State: FreeExhaustedThisMonth, DaysSinceFirst: daysSince}, nil
	}
	return &ReportAvailability{State: Available, CanGenerate: true, DaysSinceFirst: daysSince}, nil
}

// MarkReportIssued records a successful report: lastReportAt for paid users
// (7-day cooldown), lastReportMonth plus the weekly tag on the latest entry
// for free users (1/month).
func (e *Engine) MarkReportIssued(ctx context.Context, u *domain.User) error {
	now := e.now()
	if IsPaid(u.Plan) {
		return e.users.SetReportMarkers(ctx, u.ID, now, "")
	}

	loc := u.Location()
	if err := e.users.SetReportMarkers(ctx, u.ID, time.Time{}, MonthKey(now, loc)); err != nil {
		return err
	}
	last, err := e.dreams.GetLast(ctx, u.ID)
	if err != nil || last == nil {
		return nil
	}
	tags := last.Tags()
	tags.Add(WeeklyMonthTag(now, loc))
	if err := e.dreams.UpdateKeywords(ctx, last.ID, tags.String()); err != nil {
		e.logger.Warn().Err(err).Str("user_id", u.ID).Msg("weekly marker tag not recorded")
	}
	return nil
}

// daysBetween floors the elapsed whole days from from to to.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
