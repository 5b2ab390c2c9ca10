package workflow

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/messages"
	"github.com/parleyhq/parley/pkg/handlers"
	"github.com/parleyhq/parley/pkg/routes"
)

// Handler provides HTTP endpoints for synchronous orchestration and the
// full message read model.
type Handler struct {
	rt     *Runtime
	logger *slog.Logger
}

// NewHandler creates a Handler over the runtime.
func NewHandler(rt *Runtime, logger *slog.Logger) *Handler {
	return &Handler{
		rt:     rt,
		logger: logger.With("handler", "workflow"),
	}
}

// Routes returns the route group definition for workflow endpoints. The
// group shares the /messages prefix with the store handler; the store owns
// intake and listing, the workflow owns processing and the detail view.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/messages",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/process", Handler: h.Process},
			{Method: "GET", Pattern: "/{id}", Handler: h.Detail},
		},
	}
}

// Process submits a message and runs the pipeline inline, returning the
// processed projection.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var cmd messages.SubmitCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	p, err := h.rt.Process(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, messages.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// Detail returns the full history view of one message.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, messages.ErrNotFound)
		return
	}

	detail, err := h.rt.Detail(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, messages.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, detail)
}
