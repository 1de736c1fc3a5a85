// Package httpapi builds the webhook/ops router.
package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"dreambot/internal/http/handlers"
	"dreambot/internal/infra"
	"dreambot/internal/middleware"
)

// NewRouter wires the public webhook surface and the token-guarded ops
// surface onto one listener.
func NewRouter(app *handlers.App, adminSecret string, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(logger), chimw.RealIP, chimw.Recoverer, middleware.Logger)

	r.Get("/v1/healthz", app.Health)

	r.Route("/webhook/yookassa", func(r chi.Router) {
		r.Get("/", app.YooKassaPing)
		r.Post("/", app.YooKassaWebhook)
	})

	r.Method(stdhttp.MethodGet, "/metrics", app.Metrics.Handler())

	r.Route("/ops", func(r chi.Router) {
		r.Use(middleware.AdminToken(adminSecret))
		r.Get("/budget", app.BudgetStatus)
		r.Get("/usage/daily", app.UsageDaily)
		r.Get("/usage/export", app.UsageExport)
		r.Get("/ratelimit/{tgID}", app.RateLimitStats)
		r.Get("/prompts", app.PromptExport)

		r.Post("/flow/interpret", app.FlowInterpret)
		r.Post("/flow/followup", app.FlowFollowup)
		r.Post("/flow/practice", app.FlowPractice)
		r.Post("/flow/report", app.FlowReport)
	})

	return r
}
