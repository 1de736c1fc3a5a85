package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"dreambot/internal/domain"
	"dreambot/internal/entitlement"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
	"dreambot/internal/ratelimit"
)

// reportStats are the aggregate numbers a 7-day report narrates.
type reportStats struct {
	DreamCount  int
	InterpCount int
	MaxStreak   int
	TopSymbols  []llm.SymbolCount
}

// Report assembles and narrates the 7-day report. Availability is recomputed
// here even if the caller already displayed it: plan, dreams and markers can
// all have changed since.
func (f *Flows) Report(ctx context.Context, tgID string) (*Outcome, error) {
	corr := infra.NewCorrelationID()

	user, err := f.users.GetOrCreateByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	plan := f.plan(user)

	if out := f.checkRate(ctx, tgID, ratelimit.FeatureReport, plan); out != nil {
		return out, nil
	}

	avail, err := f.engine.ReportAvailability(ctx, user)
	if err != nil {
		return nil, err
	}
	if !avail.CanGenerate {
		f.metrics.TrackBlockedReport(plan, avail.State.String())
		return blocked(avail.State.String(), availabilityMessage(avail)), nil
	}

	loc := user.Location()
	now := f.now().In(loc)
	// The window is today plus the six preceding local days.
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -6)

	entries, err := f.dreams.ListSince(ctx, user.ID, start)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		f.metrics.TrackBlockedReport(plan, "no_dreams_in_window")
		return blocked("no_dreams_in_window", fmt.Sprintf("No dreams recorded in the last %d days. Write one down and come back for the report ✨", entitlement.ReportWindowDays)), nil
	}

	stats := assembleStats(entries, loc)

	summary := f.llm.ReportSummary(ctx, llm.ReportRequest{
		UserID:        user.ID,
		CorrelationID: corr,
		PeriodDays:    entitlement.ReportWindowDays,
		DreamCount:    stats.DreamCount,
		InterpCount:   stats.InterpCount,
		MaxStreak:     stats.MaxStreak,
		TopSymbols:    stats.TopSymbols,
		Plan:          plan,
		StressLevel:   user.StressLevel,
		SleepGoal:     user.SleepGoal,
		Chronotype:    user.Chronotype,
	})

	if err := f.engine.MarkReportIssued(ctx, user); err != nil {
		f.logger.Warn().Err(err).Str("user_id", user.ID).Msg("report markers not recorded")
	}
	f.metrics.TrackReport(plan, "7d")

	return &Outcome{HTML: renderReport(stats, summary.Text)}, nil
}

// assembleStats folds the window's entries into the report numbers: how many
// carry a stored interpretation, the longest run of consecutive local days
// with at least one dream, and the three most frequent symbols across model
// output and user-declared lists.
func assembleStats(entries []domain.DreamEntry, loc *time.Location) reportStats {
	stats := reportStats{DreamCount: len(entries)}

	counts := map[string]int{}
	var order []string
	days := map[string]struct{}{}
	for i := range entries {
		e := &entries[i]
		days[e.BaseTime().In(loc).Format("2006-01-02")] = struct{}{}

		var interp struct {
			ShortTitle             string   `json:"short_title"`
			BarnumInsight          string   `json:"barnum_insight"`
			EsotericInterpretation string   `json:"esoteric_interpretation"`
			SymbolsDetected        []string `json:"symbols_detected"`
		}
		var symbols []string
		if len(e.LLMJSON) > 0 && json.Unmarshal(e.LLMJSON, &interp) == nil {
			if interp.ShortTitle != "" || interp.BarnumInsight != "" || interp.EsotericInterpretation != "" {
				stats.InterpCount++
			}
			symbols = interp.SymbolsDetected
		}
		symbols = append(symbols, splitSymbols(e.SymbolsRaw)...)
		for _, s := range symbols {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" {
				continue
			}
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	stats.MaxStreak = maxStreak(days)

	all := make([]llm.SymbolCount, 0, len(order))
	for _, key := range order {
		all = append(all, llm.SymbolCount{Symbol: key, Count: counts[key]})
	}
	stats.TopSymbols = llm.TopSymbols(all, 3)
	return stats
}

// maxStreak is the longest run of consecutive day keys.
func maxStreak(days map[string]struct{}) int {
	if len(days) == 0 {
		return 0
	}
	keys := make([]string, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Strings(keys)

	best, current := 1, 1
	prev, _ := time.Parse("2006-01-02", keys[0])
	for _, key := range keys[1:] {
		day, _ := time.Parse("2006-01-02", key)
		if day.Sub(prev) == 24*time.Hour {
			current++
		} else {
			current = 1
		}
		if current > best {
			best = current
		}
		prev = day
	}
	return best
}

func availabilityMessage(a *entitlement.ReportAvailability) string {
	switch a.State {
	case entitlement.NoDreamsYet:
		return "No dreams recorded yet. Start with your first one and I will prepare the first report 📝"
	case entitlement.WaitingForFirstWindow:
		return fmt.Sprintf("%d/%d days since your first dream. The first report unlocks in %d day(s) ✨", a.DaysSinceFirst, entitlement.ReportWindowDays, entitlement.ReportWindowDays-a.DaysSinceFirst)
	case entitlement.FreeExhaustedThisMonth:
		return "On the free plan the 7-day report is available once a month 🙂\nUpgrade to see your analytics any time."
	case entitlement.PaidCooldownActive:
		return fmt.Sprintf("You received a report recently. The next one unlocks in %d day(s).", a.DaysUntilNext)
	default:
		return "The report is not available right now."
	}
}

func renderReport(stats reportStats, summary string) string {
	var b strings.Builder
	b.WriteString("<b>📈 7-day report</b>\n\n")
	fmt.Fprintf(&b, "• Dreams: %d • Interpretations: %d • Streak: %d days\n\n", stats.DreamCount, stats.InterpCount, stats.MaxStreak)
	if len(stats.TopSymbols) > 0 {
		b.WriteString("Top symbols:\n")
		for i, sc := range stats.TopSymbols {
			fmt.Fprintf(&b, "%d) %s — %d\n", i+1, esc(sc.Symbol), sc.Count)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No symbols detected yet.\n\n")
	}
	b.WriteString("Thread of the week:\n")
	b.WriteString(esc(summary))
	return b.String()
}
