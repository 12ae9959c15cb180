// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/openlabel/demand/internal/domain/types"
)

// QueueDependencies defines the interface for funding queue reads.
type QueueDependencies interface {
	QueuePage(ctx context.Context, page, limit int, filter string) (types.QueuePage, error)
}

// QueueHandler handles funding queue requests.
type QueueHandler struct {
	deps QueueDependencies
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(deps QueueDependencies) *QueueHandler {
	return &QueueHandler{deps: deps}
}

// HandleGetQueue handles GET /queue?page=N&limit=N&filter=F requests.
// All parameters are optional; the filter defaults to most_voted.
func (h *QueueHandler) HandleGetQueue(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_queue"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	page, err := positiveIntParam(q.Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	limit, err := positiveIntParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.QueuePage(r.Context(), page, limit, q.Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// positiveIntParam parses an optional positive integer query parameter.
// An empty value means "unset" and parses to 0.
func positiveIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrBadRequest
	}
	return n, nil
}
