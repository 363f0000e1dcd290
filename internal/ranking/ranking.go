// Package ranking scores and orders yield pools.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"apyhub/internal/domain"
)

// Weights is the named scoring configuration. The three weights must sum
// to 1; Validate is called at startup so a bad config never reaches the
// scoring path.
type Weights struct {
	APYWeight  float64
	TVLWeight  float64
	RiskWeight float64

	// APYCap bounds the APY term: apyTerm = min(apy/100, APYCap).
	APYCap float64

	// RiskMultipliers maps each risk level to its score multiplier.
	RiskMultipliers map[domain.RiskLevel]float64
}

// DefaultWeights returns the production scoring configuration.
func DefaultWeights() Weights {
	return Weights{
		APYWeight:  0.5,
		TVLWeight:  0.3,
		RiskWeight: 0.2,
		APYCap:     2.0,
		RiskMultipliers: map[domain.RiskLevel]float64{
			domain.RiskLow:      0.9,
			domain.RiskMedium:   0.7,
			domain.RiskHigh:     0.5,
			domain.RiskVeryHigh: 0.3,
		},
	}
}

// Validate checks the configuration invariants.
func (w Weights) Validate() error {
	if w.APYWeight < 0 || w.TVLWeight < 0 || w.RiskWeight < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	sum := w.APYWeight + w.TVLWeight + w.RiskWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %g", sum)
	}
	if w.APYCap <= 0 {
		return fmt.Errorf("apy cap must be positive")
	}
	for _, level := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskVeryHigh} {
		m, ok := w.RiskMultipliers[level]
		if !ok {
			return fmt.Errorf("missing risk multiplier for %s", level)
		}
		if m < 0 || m > 1 {
			return fmt.Errorf("risk multiplier for %s must be in [0, 1], got %g", level, m)
		}
	}
	return nil
}

// Score computes the composite score of one pool. TVL is clamped to 1
// before the log so zero-TVL pools score finitely.
func (w Weights) Score(p domain.Pool) float64 {
	apyTerm := math.Min(p.APY/100, w.APYCap)
	tvlTerm := math.Log10(math.Max(p.TVLUsd, 1)) / 10
	riskTerm := w.RiskMultipliers[p.Risk]

	return apyTerm*w.APYWeight + tvlTerm*w.TVLWeight + riskTerm*w.RiskWeight
}

// Filters narrows a pool list before scoring. Zero values mean no
// constraint; a zero-APY pool passes an unset MinAPY.
type Filters struct {
	MinAPY     float64
	MinTVL     float64
	Chain      string
	Protocol   string
	Stablecoin *bool
}

// Apply returns the pools passing every filter. Filtering happens before
// scoring, so excluded pools never influence ranking.
func (f Filters) Apply(pools []domain.Pool) []domain.Pool {
	out := make([]domain.Pool, 0, len(pools))
	for _, p := range pools {
		if p.APY < f.MinAPY {
			continue
		}
		if p.TVLUsd < f.MinTVL {
			continue
		}
		if f.Chain != "" && !strings.EqualFold(p.Chain, f.Chain) {
			continue
		}
		if f.Protocol != "" && !strings.Contains(strings.ToLower(p.Project), strings.ToLower(f.Protocol)) {
			continue
		}
		if f.Stablecoin != nil && p.Stablecoin != *f.Stablecoin {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Rank filters, scores and orders pools by score descending. The sort is
// stable: equal-score pools keep their input order, so ranking is
// deterministic for a fixed input.
func Rank(pools []domain.Pool, w Weights, f Filters) []domain.Pool {
	filtered := f.Apply(pools)
	for i := range filtered {
		filtered[i].Score = w.Score(filtered[i])
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered
}
