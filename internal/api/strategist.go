package api

import (
	"encoding/json"
	"net/http"

	"apyhub/internal/domain"
	"apyhub/internal/strategist"
)

// handleStrategies serves rule-based strategy proposals for query-selected
// risk tolerance and APY target.
func (s *server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	if s.strategist == nil {
		respondError(w, http.StatusServiceUnavailable, "strategist is not configured")
		return
	}

	q := r.URL.Query()
	targetAPY, err := parseFloat(q.Get("targetApy"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "targetApy must be a number")
		return
	}

	tolerance := domain.RiskLevel(q.Get("riskTolerance"))
	if tolerance != "" && !tolerance.Valid() {
		respondError(w, http.StatusBadRequest, "unknown riskTolerance")
		return
	}

	advice, err := s.strategist.Generate(r.Context(), strategist.Request{
		TargetAPY:     targetAPY,
		RiskTolerance: tolerance,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate strategies")
		return
	}
	respondList(w, http.StatusOK, len(advice.Strategies), advice.Strategies)
}

// handleStrategistAsk serves full advice: proposals, corpus notes and, when
// the composer is configured, a narrative summary.
func (s *server) handleStrategistAsk(w http.ResponseWriter, r *http.Request) {
	if s.strategist == nil {
		respondError(w, http.StatusServiceUnavailable, "strategist is not configured")
		return
	}

	var req strategist.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RiskTolerance != "" && !req.RiskTolerance.Valid() {
		respondError(w, http.StatusBadRequest, "unknown riskTolerance")
		return
	}

	advice, err := s.strategist.Generate(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate advice")
		return
	}
	respondData(w, http.StatusOK, advice)
}
