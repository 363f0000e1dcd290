package sources

import (
	"context"
	"strings"

	"apyhub/internal/domain"
)

// Data source provenance labels, surfaced as meta.dataSource.
const (
	SourceDeBank    = "DeBank"
	SourceZapper    = "Zapper"
	SourceOnChain   = "Blockchain (limited)"
	SourceDefiLlama = "DefiLlama"
)

// PositionSource fetches wallet positions from one upstream.
// Implementations return their positions already normalized to the common
// Position shape; errors are absorbed by the orchestrator, never surfaced to
// API callers.
type PositionSource interface {
	Name() string
	FetchPositions(ctx context.Context, address string) ([]domain.Position, error)
}

// PoolSource fetches protocol-wide yield pools from one upstream.
type PoolSource interface {
	Name() string
	FetchPools(ctx context.Context) ([]domain.Pool, error)
}

// chainAliases maps upstream chain shorthands to canonical names.
var chainAliases = map[string]string{
	"eth":   "ethereum",
	"arb":   "arbitrum",
	"op":    "optimism",
	"matic": "polygon",
	"avax":  "avalanche",
	"bsc":   "binance",
}

// NormalizeChain canonicalizes an upstream chain identifier. Unknown chains
// pass through lowercased.
func NormalizeChain(chain string) string {
	c := strings.ToLower(chain)
	if mapped, ok := chainAliases[c]; ok {
		return mapped
	}
	return c
}

// InferPositionType classifies a position from upstream type/label keywords.
// fallback is returned when no keyword matches.
func InferPositionType(label string, fallback domain.PositionType) domain.PositionType {
	l := strings.ToLower(label)
	switch {
	case containsAny(l, "lend", "supply", "deposit"):
		return domain.PositionLending
	case containsAny(l, "borrow", "debt"):
		return domain.PositionBorrowing
	case containsAny(l, "stake", "restake", "yield", "reward", "farm"):
		return domain.PositionStaking
	case containsAny(l, "liquidity", "pool", "lp"):
		return domain.PositionLP
	default:
		return fallback
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ClampAPY enforces the display invariant: APY is never negative.
func ClampAPY(apy float64) float64 {
	if apy < 0 {
		return 0
	}
	return apy
}

// ClampIL bounds impermanent loss to a displayable percentage.
func ClampIL(il float64) float64 {
	switch {
	case il < 0:
		return 0
	case il > 100:
		return 100
	default:
		return il
	}
}

// ClampValue enforces totalValueUSD >= 0.
func ClampValue(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// NonEmptyAssets guarantees the assets list is never empty; positions with no
// resolvable token symbols display as MULTI.
func NonEmptyAssets(assets []string) []string {
	out := assets[:0]
	for _, a := range assets {
		if a != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return []string{"MULTI"}
	}
	return out
}
