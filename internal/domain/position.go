package domain

// PositionType classifies how a position earns (or pays) yield.
type PositionType string

// Position type constants.
const (
	PositionLP        PositionType = "LP"
	PositionLending   PositionType = "LENDING"
	PositionBorrowing PositionType = "BORROWING"
	PositionStaking   PositionType = "STAKING"
)

// Position is a normalized yield-bearing holding or opportunity.
// It is a transient read-model projection: constructed fresh per aggregation
// request, never persisted, never mutated after creation.
type Position struct {
	ID          string       // source-qualified identifier, e.g. "debank-aave3-0"
	Address     string       // owning wallet address, empty for protocol-wide listings
	PoolAddress string       // pool/contract address (may be empty for some sources)
	PoolName    string       // display name, e.g. "USDC/WETH 0.05%"
	Protocol    string       // protocol name, e.g. "Aave V3"
	Chain       string       // symbolic chain identifier, e.g. "ethereum"
	Type        PositionType // LP | LENDING | BORROWING | STAKING

	Assets  []string  // token symbols, non-empty
	Amounts []float64 // per-asset amounts, same length as Assets

	TotalValueUSD   float64  // >= 0
	APY             float64  // percentage, clamped >= 0 at the normalizer boundary
	APYBase         float64  // base component, when the source decomposes APY
	APYReward       float64  // reward component
	Fees24h         float64  // USD
	ImpermanentLoss float64  // percentage in [0, 100]
	HealthFactor    *float64 // borrow positions only (nullable)

	Risk RiskLevel

	DataSource  string // fetcher that produced this position
	LastUpdated int64  // Unix timestamp in milliseconds
}
