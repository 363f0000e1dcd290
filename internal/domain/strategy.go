package domain

// StrategyAction is one kind of step inside a yield strategy.
type StrategyAction string

// Strategy step actions.
const (
	ActionBridge  StrategyAction = "bridge"
	ActionSwap    StrategyAction = "swap"
	ActionDeposit StrategyAction = "deposit"
	ActionBorrow  StrategyAction = "borrow"
	ActionStake   StrategyAction = "stake"
	ActionLoop    StrategyAction = "loop"
)

// StrategyStep is a single action within a strategy plan.
type StrategyStep struct {
	Action      StrategyAction `json:"action"`
	Protocol    string         `json:"protocol"`
	Chain       string         `json:"chain"`
	InputToken  string         `json:"inputToken"`
	OutputToken string         `json:"outputToken"`
	Leverage    float64        `json:"leverage,omitempty"`
}

// Strategy is a generated yield strategy proposal.
type Strategy struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	ExpectedAPY     float64        `json:"expectedAPY"`
	Risk            RiskLevel      `json:"riskLevel"`
	RequiredCapital float64        `json:"requiredCapital"`
	Steps           []StrategyStep `json:"steps"`
	GasEstimate     float64        `json:"gasEstimate"`
	ILRisk          float64        `json:"ilRisk"`
}
