// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/openlabel/demand/internal/app"
	"github.com/openlabel/demand/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CastVote(ctx context.Context, in service.VoteInput) (types.VoteReceipt, error)
	Status(ctx context.Context, barcode string) (types.StatusView, error)
	Leaderboard(ctx context.Context, limit int) ([]types.Entry, error)
	QueuePage(ctx context.Context, page, limit int, filter string) (types.QueuePage, error)
	Contribute(ctx context.Context, in service.ContributionInput) (types.ContributionResult, error)
	Investigations(ctx context.Context, identity string) ([]types.Investigation, error)
}

// Server wires HTTP routes for the demand API.
type Server struct {
	healthHandler         *HealthHandler
	statsHandler          *StatsHandler
	votesHandler          *VotesHandler
	leaderboardHandler    *LeaderboardHandler
	queueHandler          *QueueHandler
	contributionsHandler  *ContributionsHandler
	investigationsHandler *InvestigationsHandler
	dashboardHandler      *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:         NewHealthHandler(),
		statsHandler:          NewStatsHandler(statsProvider),
		votesHandler:          NewVotesHandler(deps),
		leaderboardHandler:    NewLeaderboardHandler(deps),
		queueHandler:          NewQueueHandler(deps),
		contributionsHandler:  NewContributionsHandler(deps),
		investigationsHandler: NewInvestigationsHandler(deps),
		dashboardHandler:      newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/votes", MetricsMiddleware(s.votesHandler.HandlePostVote, "votes"))
	mux.HandleFunc("/votes/", MetricsMiddleware(s.votesHandler.HandleGetStatus, "vote_status"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/queue", MetricsMiddleware(s.queueHandler.HandleGetQueue, "queue"))
	mux.HandleFunc("/contributions", MetricsMiddleware(s.contributionsHandler.HandlePostContribution, "contributions"))
	mux.HandleFunc("/investigations", MetricsMiddleware(s.investigationsHandler.HandleGetInvestigations, "investigations"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service error kinds to HTTP statuses,
// carrying the stable reason code to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	code := service.Reason(err)
	switch {
	case errors.Is(err, service.ErrValidation):
		if code == "" {
			code = "bad_request"
		}
		writeError(w, http.StatusBadRequest, code, err)
	case errors.Is(err, service.ErrNotFound):
		if code == "" {
			code = "not_found"
		}
		writeError(w, http.StatusNotFound, code, err)
	case errors.Is(err, service.ErrTransient):
		if code == "" {
			code = "retry_later"
		}
		writeError(w, http.StatusServiceUnavailable, code, err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
