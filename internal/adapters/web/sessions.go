package web

import (
	"errors"
	"io"
	"net/http"

	"retail-sim/internal/app"
	"retail-sim/internal/core"
	"retail-sim/internal/report"
)

// createSession handles POST /api/sessions. The body is optional.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req app.NewSessionRequest
	if r.ContentLength != 0 {
		if err := decodeOptional(r, &req); err != nil {
			writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
	}
	res, err := h.svc.NewSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func decodeOptional(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		return err
	}
	return jsonUnmarshalStrict(body, v)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListSessions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetSession(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listWeeks(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListWeeks(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getWeek(w http.ResponseWriter, r *http.Request) {
	week, err := weekParam(r)
	if err != nil {
		writeError(w, r, "week must be a number", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	st, err := h.svc.GetWeek(r.Context(), sessionID(r), week)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// submitDecisions handles PUT /api/sessions/{id}/decisions.
func (h *Handler) submitDecisions(w http.ResponseWriter, r *http.Request) {
	var d core.Decisions
	if !decodeJSON(w, r, &d) {
		return
	}
	res, err := h.svc.SubmitDecisions(r.Context(), sessionID(r), d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) validateWeek(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ValidateWeek(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// commitWeek answers 422 with the full outcome when validation blocks the commit.
func (h *Handler) commitWeek(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.CommitWeek(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if !out.Committed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SeasonReport(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(res.Markdown))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) reportHTML(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SeasonReport(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	html, err := report.HTML(res.Markdown)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

type adviceRequest struct {
	Brief string `json:"brief"`
}

// advice handles POST /api/sessions/{id}/advice.
func (h *Handler) advice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SuggestDecisions(r.Context(), sessionID(r), req.Brief)
	if errors.Is(err, app.ErrAdvisorUnavailable) {
		writeError(w, r, err.Error(), "ADVISOR_UNAVAILABLE", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// previewDemand handles POST /api/demand/preview. It never touches a session.
func (h *Handler) previewDemand(w http.ResponseWriter, r *http.Request) {
	var in core.DemandInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.PreviewDemand(r.Context(), in)
	if err != nil {
		writeError(w, r, err.Error(), "INVALID_INPUT", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) decisionSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.DecisionSchema())
}
