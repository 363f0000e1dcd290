package domain

// BridgeStatus tracks the lifecycle of a bridge transaction.
type BridgeStatus string

// Bridge status constants.
const (
	BridgePending   BridgeStatus = "PENDING"
	BridgeConfirmed BridgeStatus = "CONFIRMED"
	BridgeCompleted BridgeStatus = "COMPLETED"
	BridgeFailed    BridgeStatus = "FAILED"
)

// BridgeTransaction is the audit record of one bridge operation.
// Corresponds to the bridge_transactions table in PostgreSQL; written once by
// execute, updated on status transitions, read by status and history.
type BridgeTransaction struct {
	ID        string // PRIMARY KEY (uuid)
	IntentID  string // quote intent this execution came from
	Address   string // recipient wallet address
	FromChain string
	ToChain   string
	Token     string
	Amount    string // base-unit amount as a decimal string
	FeeUSD    float64
	Status    BridgeStatus
	TxHash    string // empty until confirmed
	CreatedAt int64  // Unix timestamp in milliseconds
	UpdatedAt int64
}

// Supported bridge chains and their EVM chain ids.
var BridgeChainIDs = map[string]int64{
	"ethereum": 1,
	"optimism": 10,
	"polygon":  137,
	"base":     8453,
	"arbitrum": 42161,
}

// BridgeChainName resolves an EVM chain id to its symbolic name.
// Returns "" when the chain is not supported.
func BridgeChainName(chainID int64) string {
	for name, id := range BridgeChainIDs {
		if id == chainID {
			return name
		}
	}
	return ""
}
