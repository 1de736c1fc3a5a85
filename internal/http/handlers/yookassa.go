package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"dreambot/internal/entitlement"
)

var (
	uidPattern  = regexp.MustCompile(`uid:(\d+)`)
	planPattern = regexp.MustCompile(`plan:(week|month|year)`)
)

type yookassaEvent struct {
	Object struct {
		Status      string `json:"status"`
		Description string `json:"description"`
	} `json:"object"`
}

// YooKassaWebhook upgrades a user when a payment succeeds. The purchased
// duration rides in the payment description as "uid:<tgID> plan:<period>".
// The handler always answers 200: YooKassa retries on anything else, and a
// malformed event will not get better on retry.
func (a *App) YooKassaWebhook(w http.ResponseWriter, r *http.Request) {
	var event yookassaEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		a.Logger.Error().Err(err).Msg("yookassa: undecodable event")
		w.WriteHeader(http.StatusOK)
		return
	}
	if event.Object.Status != "succeeded" {
		w.WriteHeader(http.StatusOK)
		return
	}

	desc := event.Object.Description
	uid := firstGroup(uidPattern, desc)
	period := firstGroup(planPattern, desc)
	if uid == "" || period == "" {
		a.Logger.Warn().Str("description", desc).Msg("yookassa: cannot parse uid/plan from description")
		w.WriteHeader(http.StatusOK)
		return
	}

	now := time.Now()
	var until time.Time
	switch period {
	case "week":
		until = now.AddDate(0, 0, 7)
	case "month":
		until = now.AddDate(0, 1, 0)
	case "year":
		until = now.AddDate(1, 0, 0)
	}

	if err := a.Users.SetPlan(r.Context(), uid, entitlement.PlanPaid, until); err != nil {
		a.Logger.Error().Err(err).Str("uid", uid).Msg("yookassa: plan upgrade failed")
		w.WriteHeader(http.StatusOK)
		return
	}

	a.Logger.Info().
		Str("uid", uid).
		Str("period", period).
		Time("plan_until", until).
		Msg("yookassa: plan upgraded")
	w.WriteHeader(http.StatusOK)
}

// YooKassaPing answers the endpoint-liveness probe YooKassa sends over GET.
func (a *App) YooKassaPing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
