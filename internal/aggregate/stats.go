package aggregate

import "apyhub/internal/domain"

// Summarize computes portfolio-level statistics in a single pass.
// The weighted APY is defined as 0 when the portfolio has no value, so an
// empty position list yields all-zero stats rather than NaN.
func Summarize(positions []domain.Position) domain.PortfolioStats {
	stats := domain.PortfolioStats{
		TotalPositions: len(positions),
		ByChain:        make(map[string]domain.GroupStat),
		ByProtocol:     make(map[string]domain.GroupStat),
	}

	var weightedSum float64
	var apySum float64

	for _, p := range positions {
		stats.TotalValueUSD += p.TotalValueUSD
		stats.TotalFees24h += p.Fees24h
		stats.TotalImpermanentLoss += p.ImpermanentLoss
		weightedSum += p.APY * p.TotalValueUSD
		apySum += p.APY

		chain := stats.ByChain[p.Chain]
		chain.Count++
		chain.ValueUSD += p.TotalValueUSD
		stats.ByChain[p.Chain] = chain

		protocol := stats.ByProtocol[p.Protocol]
		protocol.Count++
		protocol.ValueUSD += p.TotalValueUSD
		stats.ByProtocol[p.Protocol] = protocol
	}

	if stats.TotalValueUSD > 0 {
		stats.WeightedAPY = weightedSum / stats.TotalValueUSD
	}
	if len(positions) > 0 {
		stats.AvgAPY = apySum / float64(len(positions))
	}
	return stats
}
