package handlers

import (
	"encoding/json"
	"net/http"
)

type flowRequest struct {
	TgID     string `json:"tgId"`
	EntryID  string `json:"entryId"`
	Question string `json:"question"`
}

// The flow endpoints drive the gated operations over HTTP. The messenger
// transport normally calls the flows directly; these exist for operations and
// smoke checks, which is why they live behind the admin token.

func (a *App) FlowInterpret(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeFlowRequest(w, r)
	if !ok {
		return
	}
	out, err := a.Flows.Interpret(r.Context(), req.TgID, req.EntryID)
	if err != nil {
		a.Logger.Error().Err(err).Str("tg_id", req.TgID).Msg("interpret flow failed")
		a.error(w, http.StatusBadGateway, "flow_failed", "interpretation failed, try again later")
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) FlowFollowup(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeFlowRequest(w, r)
	if !ok {
		return
	}
	if req.Question == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "question is required")
		return
	}
	out, err := a.Flows.Followup(r.Context(), req.TgID, req.EntryID, req.Question)
	if err != nil {
		a.Logger.Error().Err(err).Str("tg_id", req.TgID).Msg("followup flow failed")
		a.error(w, http.StatusBadGateway, "flow_failed", "follow-up failed, try again later")
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) FlowPractice(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeFlowRequest(w, r)
	if !ok {
		return
	}
	out, err := a.Flows.Practice(r.Context(), req.TgID, req.EntryID)
	if err != nil {
		a.Logger.Error().Err(err).Str("tg_id", req.TgID).Msg("practice flow failed")
		a.error(w, http.StatusBadGateway, "flow_failed", "practice generation failed, try again later")
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) FlowReport(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeFlowRequest(w, r)
	if !ok {
		return
	}
	out, err := a.Flows.Report(r.Context(), req.TgID)
	if err != nil {
		a.Logger.Error().Err(err).Str("tg_id", req.TgID).Msg("report flow failed")
		a.error(w, http.StatusBadGateway, "flow_failed", "report failed, try again later")
		return
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) decodeFlowRequest(w http.ResponseWriter, r *http.Request) (flowRequest, bool) {
	var req flowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return req, false
	}
	if req.TgID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "tgId is required")
		return req, false
	}
	return req, true
}
