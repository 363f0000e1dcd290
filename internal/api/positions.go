package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"apyhub/internal/aggregate"
	"apyhub/internal/domain"
	"apyhub/internal/pools"
)

const maxPositionLimit = 500

// handlePositions serves protocol-wide yield opportunities, or a wallet's
// positions when an address is given.
func (s *server) handlePositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	positions, ok := s.resolvePositions(w, r)
	if !ok {
		return
	}

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

	filtered := positions[:0]
	for _, p := range positions {
		if p.APY < minAPY || p.TotalValueUSD < minTVL {
			continue
		}
		if chain := q.Get("chain"); chain != "" && !strings.EqualFold(p.Chain, chain) {
			continue
		}
		if protocol := q.Get("protocol"); protocol != "" &&
			!strings.Contains(strings.ToLower(p.Protocol), strings.ToLower(protocol)) {
			continue
		}
		filtered = append(filtered, p)
	}

	if !sortPositions(filtered, q.Get("sortBy"), q.Get("sortOrder")) {
		respondError(w, http.StatusBadRequest, "unknown sortBy or sortOrder")
		return
	}

	limit := maxPositionLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}
	if limit < len(filtered) {
		filtered = filtered[:limit]
	}

	respondList(w, http.StatusOK, len(filtered), filtered)
}

// handlePositionStats serves aggregate statistics over the same position set
// the list endpoint would return.
func (s *server) handlePositionStats(w http.ResponseWriter, r *http.Request) {
	positions, ok := s.resolvePositions(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, aggregate.Summarize(positions))
}

// handleProtocols lists the protocols present in the pool catalog with their
// aggregate TVL.
func (s *server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	catalog, _, err := s.pools.List(r.Context(), poolsListAll())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load protocols")
		return
	}

	type protocolInfo struct {
		Name   string   `json:"name"`
		TVLUsd float64  `json:"tvlUsd"`
		Pools  int      `json:"pools"`
		Chains []string `json:"chains"`
	}

	byName := make(map[string]*protocolInfo)
	chainSets := make(map[string]map[string]struct{})
	for _, p := range catalog {
		info, ok := byName[p.Project]
		if !ok {
			info = &protocolInfo{Name: p.Project}
			byName[p.Project] = info
			chainSets[p.Project] = make(map[string]struct{})
		}
		info.TVLUsd += p.TVLUsd
		info.Pools++
		chainSets[p.Project][p.Chain] = struct{}{}
	}

	out := make([]protocolInfo, 0, len(byName))
	for name, info := range byName {
		for chain := range chainSets[name] {
			info.Chains = append(info.Chains, chain)
		}
		sort.Strings(info.Chains)
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TVLUsd > out[j].TVLUsd })

	respondList(w, http.StatusOK, len(out), out)
}

// handleChains lists the supported chains with their EVM ids.
func (s *server) handleChains(w http.ResponseWriter, _ *http.Request) {
	type chainInfo struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	out := make([]chainInfo, 0, len(domain.BridgeChainIDs))
	for name, id := range domain.BridgeChainIDs {
		out = append(out, chainInfo{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	respondList(w, http.StatusOK, len(out), out)
}

// resolvePositions picks the position universe for a request: the wallet's
// positions when an address is given, otherwise opportunities derived from
// the pool catalog. Writes the error response itself on failure.
func (s *server) resolvePositions(w http.ResponseWriter, r *http.Request) ([]domain.Position, bool) {
	address := r.URL.Query().Get("address")
	if address != "" {
		if !addressRe.MatchString(address) {
			respondError(w, http.StatusBadRequest, "invalid address format")
			return nil, false
		}
		result, err := s.orchestrator.FetchPositions(r.Context(), address)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to fetch positions")
			return nil, false
		}
		return result.Positions, true
	}

	catalog, _, err := s.pools.List(r.Context(), poolsListAll())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load positions")
		return nil, false
	}

	positions := make([]domain.Position, 0, len(catalog))
	for _, p := range catalog {
		positions = append(positions, opportunityFromPool(p))
	}
	return positions, true
}

// opportunityFromPool presents a catalog pool as an investable position.
func opportunityFromPool(p domain.Pool) domain.Position {
	posType := domain.PositionLending
	if p.ILExposure {
		posType = domain.PositionLP
	}

	assets := strings.Split(p.Symbol, "-")
	if len(assets) == 1 && assets[0] == "" {
		assets = []string{"MULTI"}
	}

	return domain.Position{
		ID:            "pool:" + p.PoolID,
		PoolName:      p.Symbol,
		Protocol:      p.Project,
		Chain:         p.Chain,
		Type:          posType,
		Assets:        assets,
		TotalValueUSD: p.TVLUsd,
		APY:           p.APY,
		APYBase:       p.APYBase,
		APYReward:     p.APYReward,
		Risk:          p.Risk,
		DataSource:    p.DataSource,
		LastUpdated:   p.UpdatedAt,
	}
}

// poolsListAll is the unfiltered catalog query at the maximum page size.
func poolsListAll() pools.ListQuery {
	return pools.ListQuery{Limit: 200}
}

// sortPositions orders positions in place. Returns false on unknown keys.
func sortPositions(positions []domain.Position, sortBy, sortOrder string) bool {
	var key func(p domain.Position) float64
	switch strings.ToLower(sortBy) {
	case "", "tvl":
		key = func(p domain.Position) float64 { return p.TotalValueUSD }
	case "apy":
		key = func(p domain.Position) float64 { return p.APY }
	case "fees24h":
		key = func(p domain.Position) float64 { return p.Fees24h }
	default:
		return false
	}

	switch strings.ToLower(sortOrder) {
	case "", "desc":
		sort.SliceStable(positions, func(i, j int) bool { return key(positions[i]) > key(positions[j]) })
	case "asc":
		sort.SliceStable(positions, func(i, j int) bool { return key(positions[i]) < key(positions[j]) })
	default:
		return false
	}
	return true
}

// parseFloat parses an optional query number; empty means zero.
func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
