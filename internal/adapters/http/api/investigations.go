// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/openlabel/demand/internal/domain/types"
)

// identityHeader carries the caller's opaque identity token. The query
// parameter form exists for clients that cannot set headers.
const identityHeader = "X-Identity"

// InvestigationDependencies defines the interface for per-identity
// investigation reads.
type InvestigationDependencies interface {
	Investigations(ctx context.Context, identity string) ([]types.Investigation, error)
}

// InvestigationsHandler handles "my investigations" requests.
type InvestigationsHandler struct {
	deps InvestigationDependencies
}

// NewInvestigationsHandler creates a new investigations handler.
func NewInvestigationsHandler(deps InvestigationDependencies) *InvestigationsHandler {
	return &InvestigationsHandler{deps: deps}
}

// HandleGetInvestigations handles GET /investigations requests. The
// identity comes from the X-Identity header or the identity query
// parameter; anonymous lookups are not supported.
func (h *InvestigationsHandler) HandleGetInvestigations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	identity := strings.TrimSpace(r.Header.Get(identityHeader))
	if identity == "" {
		identity = strings.TrimSpace(r.URL.Query().Get("identity"))
	}

	list, err := h.deps.Investigations(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
