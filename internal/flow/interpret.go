package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dreambot/internal/domain"
	"dreambot/internal/entitlement"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
	"dreambot/internal/ratelimit"
)

// InterpretOutcome extends Outcome with the stored interpretation and what the
// call cost.
type InterpretOutcome struct {
	Outcome
	Interpretation *domain.Interpretation
	TokensIn       int
	TokensOut      int
	CostRub        float64
}

// Interpret runs the full interpretation pipeline for one dream entry. An
// empty entryID means the user's latest dream. Quota and rate-limit refusals
// come back as blocked outcomes; provider failures as errors.
func (f *Flows) Interpret(ctx context.Context, tgID, entryID string) (*InterpretOutcome, error) {
	corr := infra.NewCorrelationID()
	log := infra.WithCorrelation(f.logger, corr)

	user, err := f.users.GetOrCreateByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	plan := f.plan(user)

	entry, err := f.loadEntry(ctx, user, entryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &InterpretOutcome{Outcome: *blocked("entry_not_found", "Dream entry not found or expired. Record a dream first.")}, nil
		}
		return nil, err
	}

	if out := f.checkRate(ctx, tgID, ratelimit.FeatureInterpret, plan); out != nil {
		return &InterpretOutcome{Outcome: *out}, nil
	}

	if f.admins.Is(tgID) {
		// Admins skip the quota but still get the lazy reset applied.
		if err := f.users.EnsureMonthlyReset(ctx, user.ID, f.now().UTC()); err != nil {
			return nil, err
		}
	} else {
		fresh, err := f.engine.CheckInterpret(ctx, user.ID)
		if err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				f.metrics.TrackInterpretation(plan, "blocked")
				return &InterpretOutcome{Outcome: *blocked("quota_exceeded", quotaMessage(plan, user.MonthlyCount))}, nil
			}
			return nil, err
		}
		user = fresh
	}

	// A dream recorded before the profile was filled carries a waiting marker;
	// the interpretation proceeds regardless, so drop it now.
	if tags := entry.Tags(); tags.Has("awaiting_profile") {
		tags.Remove("awaiting_profile")
		entry.Keywords = tags.String()
		if err := f.dreams.UpdateKeywords(ctx, entry.ID, entry.Keywords); err != nil {
			log.Warn().Err(err).Str("entry_id", entry.ID).Msg("awaiting_profile marker not cleared")
		}
	}

	start := f.now()
	res, err := f.llm.InterpretDream(ctx, llm.InterpretRequest{
		UserID:        user.ID,
		CorrelationID: corr,
		Profile:       domain.ProfileOf(user),
		DreamText:     entry.Text,
		UserSymbols:   splitSymbols(entry.SymbolsRaw),
	})
	f.metrics.ObserveLLMCall(llm.OpInterpret, f.llm.Model(), time.Since(start), err)
	if err != nil {
		f.metrics.TrackError(errorType(err), llm.OpInterpret)
		f.metrics.TrackInterpretation(plan, "error")
		return nil, fmt.Errorf("interpret dream: %w", err)
	}

	raw, err := json.Marshal(res.Interpretation)
	if err != nil {
		return nil, fmt.Errorf("encode interpretation: %w", err)
	}
	if err := f.dreams.SaveInterpretation(ctx, entry.ID, raw); err != nil {
		return nil, err
	}
	costRub := f.cost.EstimateRub(res.TokensIn, res.TokensOut)
	if err := f.dreams.SaveEntryCost(ctx, entry.ID, res.TokensIn, res.TokensOut, costRub); err != nil {
		log.Warn().Err(err).Str("entry_id", entry.ID).Msg("entry cost not recorded")
	}
	if err := f.engine.NoteInterpretation(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("monthly counter not advanced")
	}

	f.metrics.TrackInterpretation(plan, "success")
	return &InterpretOutcome{
		Outcome:        Outcome{HTML: renderInterpretation(res.Interpretation)},
		Interpretation: res.Interpretation,
		TokensIn:       res.TokensIn,
		TokensOut:      res.TokensOut,
		CostRub:        costRub,
	}, nil
}

func (f *Flows) loadEntry(ctx context.Context, user *domain.User, entryID string) (*domain.DreamEntry, error) {
	if entryID == "" {
		return f.dreams.GetLast(ctx, user.ID)
	}
	entry, err := f.dreams.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != user.ID {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (f *Flows) checkRate(ctx context.Context, tgID string, feature ratelimit.Feature, plan string) *Outcome {
	err := f.limiter.Check(ctx, tgID, feature, plan)
	if err == nil {
		return nil
	}
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		return blocked("rate_limited", fmt.Sprintf("Too many requests: at most %d per %s. Please wait a little and try again.", rl.Limit, windowName(rl.Window)))
	}
	// Unknown feature is a programming error; treat it as blocked with a
	// generic message rather than dropping the request silently.
	f.logger.Error().Err(err).Str("feature", string(feature)).Msg("rate-limit check failed")
	return blocked("rate_limit_error", "Something went wrong. Please try again later.")
}

func quotaMessage(plan string, used int) string {
	total := entitlement.MonthlyInterpretQuota(plan)
	left := max(0, total-used)
	return fmt.Sprintf("Your monthly interpretation quota is used up.\nPlan: %s\nUsed: %d/%d\nLeft: %d\nUpgrade to continue without limits.", plan, used, total, left)
}

func renderInterpretation(i *domain.Interpretation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", esc(i.ShortTitle))
	fmt.Fprintf(&b, "<b>Symbols:</b> %s\n\n", esc(strings.Join(i.SymbolsDetected, ", ")))
	fmt.Fprintf(&b, "<b>Insight:</b> %s\n\n", esc(i.BarnumInsight))
	fmt.Fprintf(&b, "<b>Interpretation:</b> %s\n\n", esc(i.EsotericInterpretation))
	fmt.Fprintf(&b, "<b>Question to sit with:</b> %s", esc(i.ReflectiveQuestion))
	if len(i.GentleAdvice) > 0 {
		b.WriteString("\n\n<b>Gentle steps:</b>")
		for n, step := range i.GentleAdvice {
			fmt.Fprintf(&b, "\n%d. %s", n+1, esc(step))
		}
	}
	return b.String()
}

func errorType(err error) string {
	var schema *domain.SchemaValidationError
	switch {
	case errors.As(err, &schema):
		return "schema_validation"
	case errors.Is(err, domain.ErrNoJSON):
		return "no_json"
	default:
		return "provider"
	}
}

func windowName(w time.Duration) string {
	switch {
	case w >= time.Hour:
		return "hour"
	case w >= time.Minute:
		return "minute"
	default:
		return w.String()
	}
}
