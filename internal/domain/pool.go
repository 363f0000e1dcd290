package domain

// Pool is a protocol-wide yield opportunity from the pool catalog.
// Corresponds to the pools table in PostgreSQL; refreshed periodically from
// upstream aggregators and served by the pool listing endpoints.
type Pool struct {
	PoolID     string  // PRIMARY KEY, upstream pool identifier
	Chain      string  // e.g. "Ethereum"
	Project    string  // protocol slug, e.g. "aave-v3"
	Symbol     string  // asset symbol(s), e.g. "USDC" or "USDC-WETH"
	TVLUsd     float64 // clamped >= 0
	APY        float64 // total APY percentage, clamped >= 0
	APYBase    float64
	APYReward  float64
	Stablecoin bool
	ILExposure bool // pool carries impermanent-loss exposure
	Risk       RiskLevel
	Score      float64 // composite ranking score, recomputed on refresh
	DataSource string  // adapter that produced this pool
	UpdatedAt  int64   // Unix timestamp in milliseconds
}

// APYPoint is one APY/TVL observation for a pool.
// Corresponds to the apy_history table in ClickHouse.
type APYPoint struct {
	PoolID      string
	APY         float64
	TVLUsd      float64
	TimestampMs int64
}
