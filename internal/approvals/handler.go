package approvals

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/handlers"
	"github.com/parleyhq/parley/pkg/routes"
)

// Handler provides HTTP endpoints for the approval ledger.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "approvals"),
	}
}

// Routes returns the route group definition for approval endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/approvals",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Record},
			{Method: "GET", Pattern: "/draft/{id}", Handler: h.ForDraft},
			{Method: "GET", Pattern: "/message/{id}", Handler: h.ForMessage},
		},
	}
}

// MetricsRoutes returns the route group for the metrics endpoint.
func (h *Handler) MetricsRoutes() routes.Group {
	return routes.Group{
		Prefix: "/metrics",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Metrics},
		},
	}
}

// Record accepts an operator decision and applies it through the ledger.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var cmd RecordCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	a, err := h.sys.Record(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, a)
}

// ForDraft returns the decision recorded against a draft.
func (h *Handler) ForDraft(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	a, err := h.sys.ForDraft(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// ForMessage returns all decisions recorded against a message, newest first.
func (h *Handler) ForMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	history, err := h.sys.ForMessage(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, history)
}

// Metrics returns decision quality aggregates for the trailing window.
// The window defaults to 7 days and is capped at 90.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			handlers.RespondError(w, h.logger, http.StatusBadRequest,
				ErrValidation)
			return
		}
		days = parsed
	}
	if days > 90 {
		days = 90
	}

	m, err := h.sys.Metrics(r.Context(), days)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, m)
}
