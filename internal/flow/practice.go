package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dreambot/internal/domain"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
	"dreambot/internal/ratelimit"
)

// Practice generates a short spiritual practice for one dream entry. Paid
// users get at most one per local day, free users one per local month; the
// issue marker lives in the entry's tag set.
func (f *Flows) Practice(ctx context.Context, tgID, entryID string) (*Outcome, error) {
	corr := infra.NewCorrelationID()

	user, err := f.users.GetOrCreateByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	plan := f.plan(user)

	entry, err := f.loadEntry(ctx, user, entryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return blocked("entry_not_found", "The dream entry for this practice was not found."), nil
		}
		return nil, err
	}

	if out := f.checkRate(ctx, tgID, ratelimit.FeaturePractice, plan); out != nil {
		return out, nil
	}

	decision := f.engine.PracticeDecision(user, entry)
	if !decision.Allowed && !f.admins.Is(tgID) {
		if decision.Paid {
			return blocked("practice_issued_today", "Today's practice has already been issued. Come back tomorrow ✨"), nil
		}
		return blocked("practice_issued_this_month", "On the free plan a spiritual practice is available once a month 💫\nUpgrade to receive one every day."), nil
	}

	start := f.now()
	res, err := f.llm.GeneratePractice(ctx, llm.PracticeRequest{
		UserID:         user.ID,
		CorrelationID:  corr,
		EntryText:      entry.Text,
		Interpretation: string(entry.LLMJSON),
	})
	f.metrics.ObserveLLMCall(llm.OpPractice, f.llm.Model(), time.Since(start), err)
	if err != nil {
		f.metrics.TrackError(errorType(err), llm.OpPractice)
		return nil, fmt.Errorf("generate practice: %w", err)
	}

	if err := f.engine.MarkPracticeIssued(ctx, entry, decision.Tag); err != nil {
		f.logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("practice marker not recorded")
	}
	return &Outcome{HTML: "✨ Spiritual practice\n\n" + esc(res.Text)}, nil
}
