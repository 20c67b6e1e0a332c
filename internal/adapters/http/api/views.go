package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// handleScore handles GET /score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	board, err := s.deps.Scoreboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cacheFor(w, 10*time.Second)
	writeJSON(w, http.StatusOK, board)
}

// handleAudit handles GET /audit.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Audit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cacheFor(w, 5*time.Second)
	writeJSON(w, http.StatusOK, entries)
}

// handleChallenges handles GET /challenges.
func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	cs, err := s.deps.Challenges(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// handleChallenge handles GET /challenges/{challengeId}.
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Challenge(r.Context(), mux.Vars(r)["challengeId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleTeams handles GET /teams.
func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.deps.Teams(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cacheFor(w, 5*time.Second)
	writeJSON(w, http.StatusOK, teams)
}
