package messages

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/parleyhq/parley/pkg/events"
	"github.com/parleyhq/parley/pkg/handlers"
	"github.com/parleyhq/parley/pkg/pagination"
	"github.com/parleyhq/parley/pkg/routes"
)

// Handler provides HTTP endpoints for message store operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	feed       *events.Broadcaster
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "messages"),
		pagination: pagination,
	}
}

// WithFeed attaches the state-change broadcaster backing the events endpoint.
func (h *Handler) WithFeed(feed *events.Broadcaster) *Handler {
	h.feed = feed
	return h
}

// Routes returns the route group definition for message store endpoints.
// The detail view of a single message is owned by the workflow handler,
// which embeds the pipeline artifacts alongside the stored record.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/messages",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Submit},
			{Method: "GET", Pattern: "/events", Handler: h.Events},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
		},
	}
}

// List returns a paginated inbox view with optional query parameter filters.
// Entries are ordered by most recent activity and carry a pending-approval flag.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching messages.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Submit registers an inbound message for asynchronous orchestration.
// Returns 202 with the stored message; the worker pool picks it up from
// received status.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var cmd SubmitCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	m, err := h.sys.Submit(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, m)
}

// Events streams state-change events as server-sent events. Clients without
// SSE support fall back to polling the inbox.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		handlers.RespondError(w, h.logger, http.StatusNotImplemented,
			fmt.Errorf("event feed not configured"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError,
			fmt.Errorf("streaming unsupported"))
		return
	}

	sub, cancel := h.feed.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-sub:
			if !open {
				return
			}

			payload, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("encode event failed", "error", err)
				continue
			}

			fmt.Fprintf(w, "event: state_change\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
