// Package handlers implements the webhook and ops HTTP endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"dreambot/internal/domain"
	"dreambot/internal/flow"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
	"dreambot/internal/metrics"
	"dreambot/internal/ratelimit"
	"dreambot/internal/usage"
)

// App is the handler container: the payment webhook, the read-only ops
// surface and the admin-triggered flow endpoints.
type App struct {
	Users   domain.UserRepository
	Flows   *flow.Flows
	Tracker *usage.Tracker
	Limiter *ratelimit.Limiter
	Prompts *llm.PromptRegistry
	Metrics *metrics.Metrics
	Logger  infra.Logger
}

func NewApp(users domain.UserRepository, flows *flow.Flows, tracker *usage.Tracker, limiter *ratelimit.Limiter, prompts *llm.PromptRegistry, m *metrics.Metrics, logger infra.Logger) *App {
	return &App{Users: users, Flows: flows, Tracker: tracker, Limiter: limiter, Prompts: prompts, Metrics: m, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, msg string) {
	a.json(w, code, map[string]string{"error": slug, "message": msg})
}
