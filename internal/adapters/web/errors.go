package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"retail-sim/internal/core"
)

type errorResponse struct {
	Error     string       `json:"error"`
	Code      string       `json:"code"`
	RequestID string       `json:"request_id,omitempty"`
	Issues    []core.Issue `json:"issues,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorBody(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: RequestIDFrom(r.Context()),
	})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeServiceError maps application errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *core.DecisionError
	if errors.As(err, &de) {
		writeErrorBody(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     "decisions rejected",
			Code:      "DECISIONS_REJECTED",
			RequestID: RequestIDFrom(r.Context()),
			Issues:    de.Issues,
		})
		return
	}

	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrWeekNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrCommitInProgress):
		status, code = http.StatusConflict, "COMMIT_IN_PROGRESS"
	case errors.Is(err, core.ErrSessionCompleted), errors.Is(err, core.ErrWeekCommitted), errors.Is(err, core.ErrSeasonOver):
		status, code = http.StatusConflict, "SESSION_COMPLETED"
	case errors.Is(err, core.ErrCatalogMismatched):
		status, code = http.StatusConflict, "CATALOG_MISMATCH"
	case errors.Is(err, core.ErrStateIntegrity):
		status, code = http.StatusInternalServerError, "STATE_INTEGRITY"
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, r, msg, code, status)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonUnmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
