package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"apyhub/internal/bridge"
	"apyhub/internal/storage"
)

// handleBridgeChains lists the bridgeable chains.
func (s *server) handleBridgeChains(w http.ResponseWriter, _ *http.Request) {
	type chainInfo struct {
		Name    string `json:"name"`
		ChainID int64  `json:"chainId"`
	}

	chains := s.bridge.SupportedChains()
	out := make([]chainInfo, 0, len(chains))
	for name, id := range chains {
		out = append(out, chainInfo{Name: name, ChainID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })

	respondList(w, http.StatusOK, len(out), out)
}

// handleBridgeQuote prices a transfer without executing it.
func (s *server) handleBridgeQuote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBridgeRequest(w, r)
	if !ok {
		return
	}

	quote, err := s.bridge.Quote(r.Context(), req)
	if err != nil {
		respondBridgeError(w, err)
		return
	}
	respondData(w, http.StatusOK, quote)
}

// handleBridgeExecute executes a transfer and returns the settled record.
func (s *server) handleBridgeExecute(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBridgeRequest(w, r)
	if !ok {
		return
	}

	tx, err := s.bridge.Execute(r.Context(), req)
	if err != nil {
		respondBridgeError(w, err)
		return
	}
	respondData(w, http.StatusOK, tx)
}

// handleBridgeStatus serves one transaction by id.
func (s *server) handleBridgeStatus(w http.ResponseWriter, r *http.Request) {
	tx, err := s.bridge.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "bridge transaction not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load bridge transaction")
		return
	}
	respondData(w, http.StatusOK, tx)
}

// handleBridgeHistory serves a wallet's transactions, newest first.
func (s *server) handleBridgeHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	history, err := s.bridge.History(r.Context(), chi.URLParam(r, "address"), limit)
	if err != nil {
		respondBridgeError(w, err)
		return
	}
	respondList(w, http.StatusOK, len(history), history)
}

func decodeBridgeRequest(w http.ResponseWriter, r *http.Request) (bridge.Request, bool) {
	var req bridge.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	req.FromChain = strings.ToLower(req.FromChain)
	req.ToChain = strings.ToLower(req.ToChain)
	return req, true
}

// respondBridgeError maps service errors onto HTTP statuses.
func respondBridgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bridge.ErrUnsupportedChain),
		errors.Is(err, bridge.ErrSameChain),
		errors.Is(err, bridge.ErrInvalidAmount),
		errors.Is(err, bridge.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "bridge transaction not found")
	default:
		respondError(w, http.StatusInternalServerError, "bridge operation failed")
	}
}
