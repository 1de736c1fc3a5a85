package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RateLimitStats reports the live sliding windows of every feature for one
// Telegram user.
func (a *App) RateLimitStats(w http.ResponseWriter, r *http.Request) {
	tgID := chi.URLParam(r, "tgID")
	if tgID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user id is required")
		return
	}
	stats, err := a.Limiter.Stats(r.Context(), tgID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load rate-limit stats")
		return
	}
	a.json(w, http.StatusOK, stats)
}
