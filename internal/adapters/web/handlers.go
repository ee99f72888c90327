package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"retail-sim/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	log    zerolog.Logger
}

// Options configures cross-cutting HTTP behaviour.
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options, log zerolog.Logger) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(RequestBodyLimit(opts.MaxBodyBytes))

	r.Get("/api/health", h.health)
	r.Get("/api/schema/decisions", h.decisionSchema)
	r.Post("/api/demand/preview", h.previewDemand)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.listSessions)
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Get("/weeks", h.listWeeks)
			r.Get("/weeks/{week}", h.getWeek)
			r.Put("/decisions", h.submitDecisions)
			r.Post("/validate", h.validateWeek)
			r.Post("/commit", h.commitWeek)
			r.Get("/report", h.report)
			r.Get("/report.html", h.reportHTML)
			r.Post("/advice", h.advice)
		})
	})

	return r
}

// health returns service status and the catalog version in play.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status  string `json:"status"`
		Catalog string `json:"catalog"`
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Catalog: h.svc.Catalog().Version})
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func weekParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "week"))
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
