// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/openlabel/demand/internal/app"
	"github.com/openlabel/demand/internal/domain/types"
)

// ContributionDependencies defines the interface for evidence
// contributions.
type ContributionDependencies interface {
	Contribute(ctx context.Context, in service.ContributionInput) (types.ContributionResult, error)
}

// ContributionsHandler handles evidence contribution requests.
type ContributionsHandler struct {
	deps ContributionDependencies
}

// NewContributionsHandler creates a new contributions handler.
func NewContributionsHandler(deps ContributionDependencies) *ContributionsHandler {
	return &ContributionsHandler{deps: deps}
}

// contributionRequest mirrors the OpenAPI schema for POST /contributions.
type contributionRequest struct {
	Barcode     string `json:"barcode"`
	Identity    string `json:"identity"`
	EvidenceRef string `json:"evidence_reference_id"`
}

// HandlePostContribution handles POST /contributions requests.
func (h *ContributionsHandler) HandlePostContribution(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_contribution"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req contributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.Contribute(r.Context(), service.ContributionInput{
		Barcode:     strings.TrimSpace(req.Barcode),
		Identity:    strings.TrimSpace(req.Identity),
		EvidenceRef: strings.TrimSpace(req.EvidenceRef),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
