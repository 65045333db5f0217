package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	creditledger "atelier/contexts/finance-core/credit-ledger"
	ledgererrors "atelier/contexts/finance-core/credit-ledger/domain/errors"
	ledgerhttp "atelier/contexts/finance-core/credit-ledger/transport/http"
	submissionservice "atelier/contexts/request-queue/submission-service"
	voteengine "atelier/contexts/request-queue/vote-engine"
	"atelier/internal/shared/identity"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "atelier/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	ledger      creditledger.Module
	submissions submissionservice.Module
	votes       voteengine.Module
}

func New(
	ledger creditledger.Module,
	submissions submissionservice.Module,
	votes voteengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		ledger:      ledger,
		submissions: submissions,
		votes:       votes,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/submissions", s.handleCreateSubmission)
	s.mux.HandleFunc("GET /v1/submissions/{submission_id}", s.handleGetSubmission)
	s.mux.HandleFunc("PATCH /v1/submissions/{submission_id}", s.handleUpdateSubmission)
	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/cancel", s.handleCancelSubmission)
	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/start", s.handleStartSubmission)
	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/complete", s.handleCompleteSubmission)
	s.mux.HandleFunc("GET /v1/queues/{queue_type}", s.handleQueueView)
	s.mux.HandleFunc("GET /v1/users/{user_id}/submissions", s.handleListUserSubmissions)
	s.mux.HandleFunc("GET /v1/search", s.handleSearchCompleted)

	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/vote", s.handleCastVote)
	s.mux.HandleFunc("DELETE /v1/submissions/{submission_id}/vote", s.handleRemoveVote)
	s.mux.HandleFunc("GET /v1/submissions/{submission_id}/vote", s.handleHasVoted)
	s.mux.HandleFunc("GET /v1/votes", s.handleListVotes)
	s.mux.HandleFunc("GET /v1/votes/allowance", s.handleVoteAllowance)

	s.mux.HandleFunc("GET /v1/credits/balance", s.handleCreditBalance)
	s.mux.HandleFunc("GET /v1/credits/history", s.handleCreditHistory)
	s.mux.HandleFunc("POST /v1/admin/credits/grant", s.handleCreditGrant)
}

func (s *Server) handleCreditBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.BalanceHandler(r.Context(), actor.UserID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreditHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.ledger.Handler.HistoryHandler(r.Context(), actor.UserID, limit)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreditGrant(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "admin access required")
		return
	}

	var req ledgerhttp.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.GrantHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrUserRequired),
		errors.Is(err, ledgererrors.ErrInvalidInput),
		errors.Is(err, ledgererrors.ErrUnknownType):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ledgererrors.ErrDuplicateGrant):
		writeError(w, http.StatusConflict, "duplicate_grant", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// requireActor resolves the calling identity from the gateway-issued headers
// and rejects the request when no user is present.
func (s *Server) requireActor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor := resolveActor(r)
	if !actor.Valid() {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return identity.Actor{}, false
	}
	return actor, true
}

func resolveActor(r *http.Request) identity.Actor {
	tier := 1
	if raw := strings.TrimSpace(r.Header.Get("X-User-Tier")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			tier = parsed
		}
	}
	return identity.Actor{
		UserID:  strings.TrimSpace(r.Header.Get("X-User-Id")),
		Tier:    tier,
		IsAdmin: strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Admin")), "true"),
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
