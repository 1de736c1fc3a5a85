package entitlement

import (
	"context"
	"testing"
	"time"

	"dreambot/internal/domain"
)

func reportFixture(plan string, dreamDaysAgo int, now time.Time) (*fakeUsers, *fakeDreams, *domain.User) {
	user := &domain.User{ID: "u1", TgID: "100", Plan: plan}
	dreams := &fakeDreams{}
	if dreamDaysAgo >= 0 {
		at := now.AddDate(0, 0, -dreamDaysAgo)
		dreams.entries = append(dreams.entries, &domain.DreamEntry{ID: "d1", UserID: "u1", CreatedAt: at})
	}
	return newFakeUsers(user), dreams, user
}

func TestReportAvailabilityNoDreams(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	users, dreams, user := reportFixture("free", -1, now)
	engine := newTestEngine(users, dreams, nil, now)

	avail, err := engine.ReportAvailability(context.Background(), user)
	if err != nil {
		t.Fatalf("ReportAvailability: %v", err)
	}
	if avail.State != NoDreamsYet || avail.CanGenerate {
		t.Fatalf("got %+v", avail)
	}
}

func TestReportAvailabilityWaitingForFirstWindow(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	users, dreams, user := reportFixture("free", 3, now)
	engine := newTestEngine(users, dreams, nil, now)

	avail, err := engine.ReportAvailability(context.Background(), user)
	if err != nil {
		t.Fatalf("ReportAvailability: %v", err)
	}
	if avail.State != WaitingForFirstWindow || avail.CanGenerate {
		t.Fatalf("got %+v", avail)
	}
	if avail.DaysSinceFirst != 3 {
		t.Fatalf("days since first = %d", avail.DaysSinceFirst)
	}
}

func TestReportAvailabilityFreeMonthlyGate(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	users, dreams, user := reportFixture("free", 10, now)
	engine := newTestEngine(users, dreams, nil, now)

	avail, err := engine.ReportAvailability(context.Background(), user)
	if err != nil {
		t.Fatalf("ReportAvailability: %v", err)
	}
	if avail.State != Available || !avail.CanGenerate {
		t.Fatalf("got %+v", avail)
	}

	if err := engine.MarkReportIssued(context.Background(), user); err != nil {
		t.Fatalf("MarkReportIssued: %v", err)
	}
	if user.LastReportMonth != "2025-08" {
		t.Fatalf("lastReportMonth = %q", user.LastReportMonth)
	}
	last, _ := dreams.GetLast(context.Background(), "u1")
	if !last.Tags().Has("weekly_issued:2025-08") {
		t.Fatalf("weekly tag missing: %q", last.Keywords)
	}

	avail, _ = engine.ReportAvailability(context.Background(), user)
	if avail.State != FreeExhaustedThisMonth || avail.CanGenerate {
		t.Fatalf("after issue got %+v", avail)
	}

	// Next calendar month clears the gate.
	engine.now = func() time.Time { return time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) }
	avail, _ = engine.ReportAvailability(context.Background(), user)
	if avail.State != Available {
		t.Fatalf("next month got %+v", avail)
	}
}

func TestReportAvailabilityPaidCooldown(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	users, dreams, user := reportFixture("paid", 30, now)
	engine := newTestEngine(users, dreams, nil, now)

	if err := engine.MarkReportIssued(context.Background(), user); err != nil {
		t.Fatalf("MarkReportIssued: %v", err)
	}
	if user.LastReportAt == nil || !user.LastReportAt.Equal(now) {
		t.Fatalf("lastReportAt = %v", user.LastReportAt)
	}

	avail, _ := engine.ReportAvailability(context.Background(), user)
	if avail.State != PaidCooldownActive || avail.CanGenerate {
		t.Fatalf("got %+v", avail)
	}
	if avail.DaysUntilNext != ReportWindowDays {
		t.Fatalf("days until next = %d", avail.DaysUntilNext)
	}

	// 7 days later the cooldown has elapsed.
	engine.now = func() time.Time { return now.AddDate(0, 0, ReportWindowDays) }
	avail, _ = engine.ReportAvailability(context.Background(), user)
	if avail.State != Available || !avail.CanGenerate {
		t.Fatalf("after cooldown got %+v", avail)
	}
}

func TestReportAvailabilityAdminBypass(t *testing.T) {
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
	users, dreams, user := reportFixture("free", -1, now)
	user.LastReportMonth = "2025-08"
	engine := newTestEngine(users, dreams, []string{"100"}, now)

	avail, err := engine.ReportAvailability(context.Background(), user)
	if err != nil {
		t.Fatalf("ReportAvailability: %v", err)
	}
	if avail.State != Available || !avail.CanGenerate {
		t.Fatalf("admin got %+v", avail)
	}
}

func TestReportStateString(t *testing.T) {
	if NoDreamsYet.String() != "no_dreams_yet" || PaidCooldownActive.String() != "paid_cooldown_active" {
		t.Fatal("state names drifted")
	}
}
