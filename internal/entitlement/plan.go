// Package entitlement answers "may this user perform this gated action right
// now" and advances the usage counters after the action succeeds.
package entitlement

import "strings"

// Normalized plan tiers. Everything stored on a user collapses to one of
// these two before any quota decision.
const (
	PlanFree = "free"
	PlanPaid = "paid"
)

// Unlimited marks a quota with no ceiling.
const Unlimited = -1

// Free-tier monthly ceilings.
const (
	FreeMonthlyInterpretations = 5
	FreeMonthlyFollowups       = 3
	FreeMonthlyWeeklyReports   = 1
)

// SafePlan normalizes an arbitrary stored plan value. Historical paid aliases
// map to paid; anything unrecognized (including empty) is free.
func SafePlan(plan string) string {
	switch strings.TrimSpace(plan) {
	case PlanFree:
		return PlanFree
	case PlanPaid, "plus", "lite", "pro", "premium":
		return PlanPaid
	default:
		return PlanFree
	}
}

func IsPaid(plan string) bool { return SafePlan(plan) == PlanPaid }

// MonthlyInterpretQuota returns the interpretation ceiling for the plan.
func MonthlyInterpretQuota(plan string) int {
	if IsPaid(plan) {
		return Unlimited
	}
	return FreeMonthlyInterpretations
}

// MonthlyFollowupQuota returns the follow-up ceiling for the plan.
func MonthlyFollowupQuota(plan string) int {
	if IsPaid(plan) {
		return Unlimited
	}
	return FreeMonthlyFollowups
}

// MonthlyWeeklyQuota returns how many weekly reports the plan allows per
// calendar month.
func MonthlyWeeklyQuota(plan string) int {
	if IsPaid(plan) {
		return Unlimited
	}
	return FreeMonthlyWeeklyReports
}

func CanInterpret(plan string, used int) bool {
	return withinQuota(MonthlyInterpretQuota(plan), used)
}

func CanAskFollowup(plan string, used int) bool {
	return withinQuota(MonthlyFollowupQuota(plan), used)
}

func CanRunWeekly(plan string, used int) bool {
	return withinQuota(MonthlyWeeklyQuota(plan), used)
}

func withinQuota(quota, used int) bool {
	return quota == Unlimited || used < quota
}
