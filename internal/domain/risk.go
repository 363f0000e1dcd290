package domain

// RiskLevel is a coarse risk classification for a position or pool.
type RiskLevel string

// Risk level constants, ordered from safest to riskiest.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

// Valid reports whether r is one of the known risk levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskVeryHigh:
		return true
	}
	return false
}

// ClassifyPoolRisk derives a coarse risk level from pool characteristics.
// Stablecoin pools with deep liquidity are LOW; exotic low-TVL pools with
// impermanent-loss exposure are VERY_HIGH.
func ClassifyPoolRisk(tvlUSD float64, stablecoin bool, ilExposure bool) RiskLevel {
	switch {
	case stablecoin && tvlUSD >= 10_000_000:
		return RiskLow
	case tvlUSD >= 10_000_000 && !ilExposure:
		return RiskMedium
	case tvlUSD >= 1_000_000:
		if ilExposure {
			return RiskHigh
		}
		return RiskMedium
	default:
		if ilExposure {
			return RiskVeryHigh
		}
		return RiskHigh
	}
}
