// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/openlabel/demand/internal/app"
	"github.com/openlabel/demand/internal/domain/model"
	"github.com/openlabel/demand/internal/domain/types"
)

// VoteDependencies defines the interface for vote ingestion and lookup.
type VoteDependencies interface {
	CastVote(ctx context.Context, in service.VoteInput) (types.VoteReceipt, error)
	Status(ctx context.Context, barcode string) (types.StatusView, error)
}

// VotesHandler handles vote ingestion and status lookups.
type VotesHandler struct {
	deps VoteDependencies
}

// NewVotesHandler creates a new votes handler.
func NewVotesHandler(deps VoteDependencies) *VotesHandler {
	return &VotesHandler{deps: deps}
}

// voteRequest mirrors the OpenAPI schema for POST /votes.
type voteRequest struct {
	Barcode  string `json:"barcode"`
	VoteType string `json:"vote_type"`
	Identity string `json:"identity,omitempty"`
	EventID  string `json:"event_id,omitempty"`
	Product  struct {
		Name     string `json:"name,omitempty"`
		Brand    string `json:"brand,omitempty"`
		ImageURL string `json:"image_url,omitempty"`
	} `json:"product_info,omitempty"`
}

// HandlePostVote handles POST /votes requests.
func (h *VotesHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.CastVote(r.Context(), service.VoteInput{
		Barcode:  strings.TrimSpace(req.Barcode),
		VoteType: strings.TrimSpace(req.VoteType),
		Identity: strings.TrimSpace(req.Identity),
		EventID:  strings.TrimSpace(req.EventID),
		Product: model.ProductInfo{
			Name:     req.Product.Name,
			Brand:    req.Product.Brand,
			ImageURL: req.Product.ImageURL,
		},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if receipt.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, receipt)
}

// HandleGetStatus handles GET /votes/{barcode} requests. A barcode no
// one has voted on answers exists=false with a 200, not a 404.
func (h *VotesHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_vote_status"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	barcode := strings.TrimPrefix(r.URL.Path, "/votes/")
	if barcode == "" || strings.Contains(barcode, "/") {
		writeError(w, http.StatusBadRequest, "barcode_required", NewKind(op, ErrBadRequest))
		return
	}
	view, err := h.deps.Status(r.Context(), barcode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
