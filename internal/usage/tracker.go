// Package usage accounts tokens and monetary cost for every LLM call,
// aggregates them per UTC day and raises budget signals. The signals are
// observational: they are logged and surfaced over the ops endpoint, but
// never block further calls.
package usage

import (
	"context"
	"sync"
	"time"

	"dreambot/internal/domain"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
)

// ModelPrice is USD per 1000 tokens.
type ModelPrice struct {
	Input  float64
	Output float64
}

// tokenPrices is the static per-model price table. Models missing from it
// price at zero with a warning.
var tokenPrices = map[string]ModelPrice{
	"gpt-4":           {Input: 0.03, Output: 0.06},
	"gpt-4-turbo":     {Input: 0.01, Output: 0.03},
	"gpt-4o-mini":     {Input: 0.00015, Output: 0.0006},
	"gpt-3.5-turbo":   {Input: 0.0015, Output: 0.002},
	"claude-3-sonnet": {Input: 0.003, Output: 0.015},
	"claude-3-haiku":  {Input: 0.00025, Output: 0.00125},
}

// TokenCost prices a call in USD. The second return reports whether the
// model was found in the price table.
func TokenCost(model string, promptTokens, completionTokens int) (float64, bool) {
	price, ok := tokenPrices[model]
	if !ok {
		return 0, false
	}
	return float64(promptTokens)/1000*price.Input + float64(completionTokens)/1000*price.Output, true
}

// Record is one priced LLM call.
type Record struct {
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	Model            string    `json:"model"`
	Operation        string    `json:"operation"`
	UserID           string    `json:"userId"`
	CorrelationID    string    `json:"correlationId"`
	Timestamp        time.Time `json:"timestamp"`
	CostUSD          float64   `json:"costUsd"`
}

// OperationStats is one operation-model cell of a daily breakdown.
type OperationStats struct {
	Tokens  int     `json:"tokens"`
	CostUSD float64 `json:"cost"`
	Count   int     `json:"count"`
}

// DailyCosts is the running aggregate for one UTC day.
type DailyCosts struct {
	Date         string                    `json:"date"`
	TotalTokens  int                       `json:"totalTokens"`
	TotalCostUSD float64                   `json:"totalCostUsd"`
	Breakdown    map[string]OperationStats `json:"operationBreakdown"`
}

// BudgetStatus is the live daily-budget picture.
type BudgetStatus struct {
	DailyUsedUSD  float64 `json:"dailyUsed"`
	DailyLimitUSD float64 `json:"dailyLimit"`
	RemainingUSD  float64 `json:"remainingBudget"`
	UsagePercent  float64 `json:"usagePercent"`
	OverBudget    bool    `json:"isOverBudget"`
}

// Tracker keeps the per-day usage in process memory. Single-instance only;
// the data is an observability aid, not a ledger.
type Tracker struct {
	logger        infra.Logger
	budgetUSD     float64
	warnPct       float64
	retentionDays int

	// OnTracked, when set, observes every priced record (metrics).
	OnTracked func(rec Record)

	mu      sync.Mutex
	records map[string][]Record
	days    map[string]*DailyCosts

	now func() time.Time
}

func NewTracker(dailyBudgetUSD, warningPct float64, retentionDays int, logger infra.Logger) *Tracker {
	return &Tracker{
		logger:        logger,
		budgetUSD:     dailyBudgetUSD,
		warnPct:       warningPct,
		retentionDays: retentionDays,
		records:       make(map[string][]Record),
		days:          make(map[string]*DailyCosts),
		now:           time.Now,
	}
}

// Track prices one completed call, folds it into the daily aggregate and
// checks the budget thresholds. Implements llm.UsageTracker.
func (t *Tracker) Track(_ context.Context, u llm.Usage) {
	cost, known := TokenCost(u.Model, u.PromptTokens, u.CompletionTokens)
	if !known {
		t.logger.Warn().Str("model", u.Model).Msg("unknown model for cost calculation")
	}

	now := t.now()
	rec := Record{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.PromptTokens + u.CompletionTokens,
		Model:            u.Model,
		Operation:        u.Operation,
		UserID:           u.UserID,
		CorrelationID:    u.CorrelationID,
		Timestamp:        now,
		CostUSD:          cost,
	}

	date := dayKey(now)
	t.mu.Lock()
	t.records[date] = append(t.records[date], rec)
	day, ok := t.days[date]
	if !ok {
		day = &DailyCosts{Date: date, Breakdown: make(map[string]OperationStats)}
		t.days[date] = day
	}
	day.TotalTokens += rec.TotalTokens
	day.TotalCostUSD += rec.CostUSD
	cell := day.Breakdown[rec.Operation+"-"+rec.Model]
	cell.Tokens += rec.TotalTokens
	cell.CostUSD += rec.CostUSD
	cell.Count++
	day.Breakdown[rec.Operation+"-"+rec.Model] = cell
	totalUSD := day.TotalCostUSD
	t.mu.Unlock()

	t.logger.Info().
		Str("correlation_id", rec.CorrelationID).
		Str("user_id", rec.UserID).
		Str("model", rec.Model).
		Str("operation", rec.Operation).
		Int("prompt_tokens", rec.PromptTokens).
		Int("completion_tokens", rec.CompletionTokens).
		Float64("cost_usd", rec.CostUSD).
		Msg("token usage tracked")

	if t.OnTracked != nil {
		t.OnTracked(rec)
	}
	t.checkBudget(date, totalUSD)
}

func (t *Tracker) checkBudget(date string, totalUSD float64) {
	if t.budgetUSD <= 0 {
		return
	}
	pct := totalUSD / t.budgetUSD * 100
	switch {
	case pct >= 100:
		err := &domain.BudgetExceededError{Date: date, TotalUSD: totalUSD, LimitUSD: t.budgetUSD}
		t.logger.Error().Err(err).Float64("usage_percent", pct).Msg("daily budget limit exceeded")
	case pct >= t.warnPct:
		t.logger.Warn().
			Str("date", date).
			Float64("total_cost_usd", totalUSD).
			Float64("daily_limit_usd", t.budgetUSD).
			Float64("usage_percent", pct).
			Msg("daily budget warning threshold reached")
	}
}

// Daily returns a copy of one day's aggregate. Empty date means today.
func (t *Tracker) Daily(date string) (DailyCosts, bool) {
	if date == "" {
		date = dayKey(t.now())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	day, ok := t.days[date]
	if !ok {
		return DailyCosts{}, false
	}
	return copyDay(day), true
}

// ByUser filters one day's records down to a user. Empty date means today.
func (t *Tracker) ByUser(userID, date string) []Record {
	return t.filter(date, func(r Record) bool { return r.UserID == userID })
}

// ByOperation filters one day's records down to an operation.
func (t *Tracker) ByOperation(operation, date string) []Record {
	return t.filter(date, func(r Record) bool { return r.Operation == operation })
}

func (t *Tracker) filter(date string, keep func(Record) bool) []Record {
	if date == "" {
		date = dayKey(t.now())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Record
	for _, r := range t.records[date] {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Budget reports the live daily-budget status.
func (t *Tracker) Budget() BudgetStatus {
	date := dayKey(t.now())
	t.mu.Lock()
	used := 0.0
	if day, ok := t.days[date]; ok {
		used = day.TotalCostUSD
	}
	t.mu.Unlock()

	status := BudgetStatus{
		DailyUsedUSD:  used,
		DailyLimitUSD: t.budgetUSD,
		RemainingUSD:  max(0, t.budgetUSD-used),
		OverBudget:    t.budgetUSD > 0 && used >= t.budgetUSD,
	}
	if t.budgetUSD > 0 {
		status.UsagePercent = used / t.budgetUSD * 100
	}
	return status
}

// ExportData is the [start, end] date-range slice of the tracker state.
type ExportData struct {
	Summary  map[string]DailyCosts `json:"summary"`
	Detailed map[string][]Record   `json:"detailed"`
}

// Export snapshots every day within the inclusive date range.
func (t *Tracker) Export(startDate, endDate string) ExportData {
	out := ExportData{
		Summary:  make(map[string]DailyCosts),
		Detailed: make(map[string][]Record),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for date, day := range t.days {
		if date < startDate || date > endDate {
			continue
		}
		out.Summary[date] = copyDay(day)
		out.Detailed[date] = append([]Record(nil), t.records[date]...)
	}
	return out
}

// CleanupOld purges days older than the retention window and returns how many
// were removed.
func (t *Tracker) CleanupOld() int {
	cutoff := dayKey(t.now().AddDate(0, 0, -t.retentionDays))
	t.mu.Lock()
	defer t.mu.Unlock()
	cleaned := 0
	for date := range t.days {
		if date < cutoff {
			delete(t.days, date)
			delete(t.records, date)
			cleaned++
		}
	}
	if cleaned > 0 {
		t.logger.Info().Int("cleaned", cleaned).Int("retention_days", t.retentionDays).Msg("cleaned up old usage data")
	}
	return cleaned
}

// RunCleanup purges on the interval until ctx is cancelled.
func (t *Tracker) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.CleanupOld()
		case <-ctx.Done():
			return
		}
	}
}

func copyDay(day *DailyCosts) DailyCosts {
	out := *day
	out.Breakdown = make(map[string]OperationStats, len(day.Breakdown))
	for k, v := range day.Breakdown {
		out.Breakdown[k] = v
	}
	return out
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

var _ llm.UsageTracker = (*Tracker)(nil)
