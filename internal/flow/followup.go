package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dreambot/internal/domain"
	"dreambot/internal/entitlement"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
	"dreambot/internal/ratelimit"
)

// Followup answers one clarifying question about the user's latest
// interpreted dream. The question must target the latest entry: follow-ups on
// older dreams are rejected like a missing entry.
func (f *Flows) Followup(ctx context.Context, tgID, entryID, question string) (*Outcome, error) {
	corr := infra.NewCorrelationID()

	user, err := f.users.GetOrCreateByTgID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	plan := f.plan(user)

	last, err := f.dreams.GetLast(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return blocked("entry_not_found", "No dream found to clarify."), nil
		}
		return nil, err
	}
	if entryID != "" && last.ID != entryID {
		return blocked("entry_not_found", "No dream found to clarify."), nil
	}

	if out := f.checkRate(ctx, tgID, ratelimit.FeatureFollowup, plan); out != nil {
		return out, nil
	}

	if !f.admins.Is(tgID) {
		if err := f.engine.CheckFollowup(user); err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				used := f.engine.FollowupsUsed(user.ID)
				total := entitlement.MonthlyFollowupQuota(plan)
				return blocked("quota_exceeded", fmt.Sprintf("Your plan's follow-up question quota is used up.\nUsed: %d/%d\nUpgrade to keep the conversation going.", used, total)), nil
			}
			return nil, err
		}
	}

	start := f.now()
	res, err := f.llm.FollowupAnswer(ctx, llm.FollowupRequest{
		UserID:        user.ID,
		CorrelationID: corr,
		Profile:       domain.ProfileOf(user),
		DreamText:     last.Text,
		Question:      question,
	})
	f.metrics.ObserveLLMCall(llm.OpFollowup, f.llm.Model(), time.Since(start), err)
	if err != nil {
		f.metrics.TrackError(errorType(err), llm.OpFollowup)
		return nil, fmt.Errorf("follow-up answer: %w", err)
	}

	f.engine.NoteFollowup(user)
	return &Outcome{HTML: esc(res.Text)}, nil
}
