package entitlement

import "time"

// Period-marker tags stored in a dream entry's tag set. The calendar key is
// computed in the user's timezone (UTC fallback): a date key for daily-gated
// features, a month key for monthly-gated ones.
const (
	practiceTagPrefix = "practice_issued:"
	weeklyTagPrefix   = "weekly_issued:"
)

// DayKey formats t as YYYY-MM-DD in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// MonthKey formats t as YYYY-MM in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01")
}

// PracticeDayTag marks "practice issued on this date" (paid tier, 1/day).
func PracticeDayTag(t time.Time, loc *time.Location) string {
	return practiceTagPrefix + DayKey(t, loc)
}

// PracticeMonthTag marks "practice issued this month" (free tier, 1/month).
func PracticeMonthTag(t time.Time, loc *time.Location) string {
	return practiceTagPrefix + MonthKey(t, loc)
}

// WeeklyMonthTag marks "weekly report issued this month" (free tier).
func WeeklyMonthTag(t time.Time, loc *time.Location) string {
	return weeklyTagPrefix + MonthKey(t, loc)
}
