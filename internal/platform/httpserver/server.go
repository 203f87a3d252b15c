package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	electionengine "rostrum/contexts/governance/election-engine"
	electionerrors "rostrum/contexts/governance/election-engine/domain/errors"
	electionhttp "rostrum/contexts/governance/election-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "rostrum/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	election electionengine.Module
}

func New(election electionengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		election: election,
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

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/slates", s.handleEtchSlate)
	s.mux.HandleFunc("POST /v1/delegations", s.handleDelegate)
	s.mux.HandleFunc("POST /v1/weight/lock", s.handleLock)
	s.mux.HandleFunc("POST /v1/weight/free", s.handleFree)

	s.mux.HandleFunc("POST /v1/roster/swap", s.handleSwap)
	s.mux.HandleFunc("POST /v1/roster/drop", s.handleDrop)
	s.mux.HandleFunc("POST /v1/roster/refresh-max", s.handleRefreshMax)

	s.mux.HandleFunc("GET /v1/roster", s.handleRoster)
	s.mux.HandleFunc("GET /v1/roster/standings", s.handleStandings)
	s.mux.HandleFunc("GET /v1/candidates/{candidate_id}/votes", s.handleVotes)
	s.mux.HandleFunc("GET /v1/candidates/{candidate_id}/elected", s.handleElected)
	s.mux.HandleFunc("GET /v1/voters/{voter_id}", s.handleVoter)
}

func (s *Server) handleEtchSlate(w http.ResponseWriter, r *http.Request) {
	var req electionhttp.EtchSlateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.election.Handler.EtchSlateHandler(r.Context(), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	voterID := r.Header.Get("X-Voter-Id")
	if voterID == "" {
		writeElectionError(w, http.StatusUnauthorized, "missing_voter", "X-Voter-Id header is required")
		return
	}
	var req electionhttp.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.election.Handler.DelegateHandler(r.Context(), voterID, req); err != nil {
		writeElectionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	voterID := r.Header.Get("X-Voter-Id")
	if voterID == "" {
		writeElectionError(w, http.StatusUnauthorized, "missing_voter", "X-Voter-Id header is required")
		return
	}
	var req electionhttp.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.election.Handler.LockHandler(r.Context(), voterID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFree(w http.ResponseWriter, r *http.Request) {
	voterID := r.Header.Get("X-Voter-Id")
	if voterID == "" {
		writeElectionError(w, http.StatusUnauthorized, "missing_voter", "X-Voter-Id header is required")
		return
	}
	var req electionhttp.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.election.Handler.FreeHandler(r.Context(), voterID, req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req electionhttp.SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.election.Handler.SwapHandler(r.Context(), req); err != nil {
		writeElectionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req electionhttp.DropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.election.Handler.DropHandler(r.Context(), req); err != nil {
		writeElectionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshMax(w http.ResponseWriter, r *http.Request) {
	var req electionhttp.RefreshMaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeElectionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.election.Handler.RefreshMaxHandler(r.Context(), req)
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.RosterHandler(r.Context())
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.StandingsHandler(r.Context())
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.VotesHandler(r.Context(), r.PathValue("candidate_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleElected(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.IsElectedHandler(r.Context(), r.PathValue("candidate_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.VoterHandler(r.Context(), r.PathValue("voter_id"))
	if err != nil {
		writeElectionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeElectionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, electionerrors.ErrMalformedSlate):
		writeElectionError(w, http.StatusBadRequest, "malformed_slate", err.Error())
	case errors.Is(err, electionerrors.ErrUnknownSlate):
		writeElectionError(w, http.StatusNotFound, "unknown_slate", err.Error())
	case errors.Is(err, electionerrors.ErrVoterNotFound):
		writeElectionError(w, http.StatusNotFound, "voter_not_found", err.Error())
	case errors.Is(err, electionerrors.ErrTransferFailed):
		writeElectionError(w, http.StatusConflict, "transfer_failed", err.Error())
	case errors.Is(err, electionerrors.ErrInsufficientWeight):
		writeElectionError(w, http.StatusConflict, "insufficient_weight", err.Error())
	case errors.Is(err, electionerrors.ErrInvariantViolation):
		writeElectionError(w, http.StatusConflict, "invariant_violation", err.Error())
	case errors.Is(err, electionerrors.ErrDuplicateCandidate):
		writeElectionError(w, http.StatusConflict, "duplicate_candidate", err.Error())
	case errors.Is(err, electionerrors.ErrSeatOutOfRange):
		writeElectionError(w, http.StatusBadRequest, "seat_out_of_range", err.Error())
	case errors.Is(err, electionerrors.ErrInvalidInput):
		writeElectionError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeElectionError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func writeElectionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, electionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
