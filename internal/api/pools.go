package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"apyhub/internal/pools"
	"apyhub/internal/ranking"
	"apyhub/internal/storage"
)

// handlePoolList serves the filtered, sorted, paginated pool catalog.
func (s *server) handlePoolList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minAPY, err := parseFloat(q.Get("minAPY"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "minAPY must be a number")
		return
	}
	minTVL, err := parseFloat(q.Get("minTVL"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "minTVL must be a number")
		return
	}

	filters := ranking.Filters{
		MinAPY:   minAPY,
		MinTVL:   minTVL,
		Chain:    q.Get("chain"),
		Protocol: q.Get("protocol"),
	}
	if raw := q.Get("stablecoin"); raw != "" {
		stable, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "stablecoin must be a boolean")
			return
		}
		filters.Stablecoin = &stable
	}

	page, err := parseInt(q.Get("page"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := parseInt(q.Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	list, total, err := s.pools.List(r.Context(), pools.ListQuery{
		Filters:   filters,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		if errors.Is(err, pools.ErrInvalidQuery) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to list pools")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool        `json:"success"`
		Count   int         `json:"count"`
		Total   int         `json:"total"`
		Data    interface{} `json:"data"`
	}{Success: true, Count: len(list), Total: total, Data: list})
}

// handlePoolByID serves one pool.
func (s *server) handlePoolByID(w http.ResponseWriter, r *http.Request) {
	pool, err := s.pools.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "pool not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load pool")
		return
	}
	respondData(w, http.StatusOK, pool)
}

// handlePoolTop serves the N highest-scored pools.
func (s *server) handlePoolTop(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(chi.URLParam(r, "limit"))
	if err != nil || limit <= 0 {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	top, err := s.pools.Top(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load top pools")
		return
	}
	respondList(w, http.StatusOK, len(top), top)
}

// handlePoolStats serves catalog-wide statistics.
func (s *server) handlePoolStats(w http.ResponseWriter, r *http.Request) {
	overview, err := s.pools.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute pool stats")
		return
	}
	respondData(w, http.StatusOK, overview)
}

// handlePoolHistory serves the recorded APY points for a pool.
func (s *server) handlePoolHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	points, err := s.pools.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "pool not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load pool history")
		return
	}
	respondList(w, http.StatusOK, len(points), points)
}

// parseInt parses an optional positive integer; empty means zero.
func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
