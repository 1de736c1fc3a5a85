package handlers

import (
	"net/http"
	"time"
)

// BudgetStatus reports the live daily-budget picture.
func (a *App) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Tracker.Budget())
}

// UsageDaily returns one day's aggregate. Defaults to today.
func (a *App) UsageDaily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" && !validDate(date) {
		a.error(w, http.StatusBadRequest, "bad_request", "date must be YYYY-MM-DD")
		return
	}
	day, ok := a.Tracker.Daily(date)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no usage recorded for that day")
		return
	}
	a.json(w, http.StatusOK, day)
}

// UsageExport snapshots the tracked usage over an inclusive date range.
func (a *App) UsageExport(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		today := time.Now().UTC().Format("2006-01-02")
		if start == "" {
			start = today
		}
		if end == "" {
			end = today
		}
	}
	if !validDate(start) || !validDate(end) {
		a.error(w, http.StatusBadRequest, "bad_request", "start and end must be YYYY-MM-DD")
		return
	}
	a.json(w, http.StatusOK, a.Tracker.Export(start, end))
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
