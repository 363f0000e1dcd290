package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"apyhub/internal/aggregate"
	"apyhub/internal/cache"
	"apyhub/internal/domain"
	"apyhub/internal/observability"
)

// dashboardPayload is the per-wallet aggregation response.
type dashboardPayload struct {
	Positions []domain.Position     `json:"positions"`
	Stats     domain.PortfolioStats `json:"stats"`
	Meta      dashboardMeta         `json:"meta"`
}

type dashboardMeta struct {
	DataSource string `json:"dataSource"`
}

// handleDashboard serves a wallet's positions with aggregate stats and the
// provenance of the data.
func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.resolveDashboard(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, payload)
}

// handleDashboardSummary serves only the aggregate stats.
func (s *server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.resolveDashboard(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, struct {
		Stats domain.PortfolioStats `json:"stats"`
		Meta  dashboardMeta         `json:"meta"`
	}{Stats: payload.Stats, Meta: payload.Meta})
}

// resolveDashboard validates the address and returns the cached or freshly
// aggregated dashboard. Writes the error response itself on failure.
func (s *server) resolveDashboard(w http.ResponseWriter, r *http.Request) (*dashboardPayload, bool) {
	address := chi.URLParam(r, "address")
	if !addressRe.MatchString(address) {
		respondError(w, http.StatusBadRequest, "invalid address format")
		return nil, false
	}

	key := "dashboard:" + strings.ToLower(address)

	var cached dashboardPayload
	if cache.GetJSON(r.Context(), s.cache, key, &cached) {
		observability.RecordCacheLookup("dashboard", true)
		return &cached, true
	}
	observability.RecordCacheLookup("dashboard", false)

	result, err := s.orchestrator.FetchPositions(r.Context(), address)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to aggregate positions")
		return nil, false
	}

	payload := &dashboardPayload{
		Positions: result.Positions,
		Stats:     aggregate.Summarize(result.Positions),
		Meta:      dashboardMeta{DataSource: result.DataSource},
	}
	if payload.Positions == nil {
		payload.Positions = []domain.Position{}
	}

	cache.SetJSON(r.Context(), s.cache, key, payload, s.positionsTTL)
	return payload, true
}
