package domain

// GroupStat accumulates position count and value for one grouping key.
type GroupStat struct {
	Count    int     `json:"count"`
	ValueUSD float64 `json:"valueUSD"`
}

// PortfolioStats is the derived portfolio-level summary of a position list.
// Computed fresh per request, never stored.
type PortfolioStats struct {
	TotalPositions int     `json:"totalPositions"`
	TotalValueUSD  float64 `json:"totalValueUSD"`
	// WeightedAPY is sum(apy_i * value_i) / sum(value_i), defined as 0 when
	// the total value is 0 so that no NaN ever escapes.
	WeightedAPY          float64              `json:"weightedAPY"`
	AvgAPY               float64              `json:"avgAPY"`
	TotalFees24h         float64              `json:"totalFees24h"`
	TotalImpermanentLoss float64              `json:"totalImpermanentLoss"`
	ByChain              map[string]GroupStat `json:"byChain"`
	ByProtocol           map[string]GroupStat `json:"byProtocol"`
}
