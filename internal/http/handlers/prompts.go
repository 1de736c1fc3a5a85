package handlers

import (
	"net/http"
)

// PromptExport dumps the prompt version registry, current and historical.
func (a *App) PromptExport(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Prompts.Export())
}
