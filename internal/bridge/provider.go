package bridge

import (
	"context"
	"strings"
)

// Quote describes the cost of moving an amount between two chains.
type Quote struct {
	IntentID      string  `json:"intentId"`
	Provider      string  `json:"provider"`
	FromChain     string  `json:"fromChain"`
	ToChain       string  `json:"toChain"`
	Token         string  `json:"token"`
	InputAmount   float64 `json:"inputAmount"`
	OutputAmount  float64 `json:"outputAmount"`
	FeeUSD        float64 `json:"feeUsd"`
	EstimatedTime int     `json:"estimatedTime"` // seconds
}

// RouteProvider prices a route between two supported chains.
// The service fills in the intent id after the provider returns.
type RouteProvider interface {
	Name() string
	Quote(ctx context.Context, fromChain, toChain, token string, amount float64) (*Quote, error)
}

// FeeModel is the pricing used by the built-in provider. FeeBps is taken
// from the bridged amount, FlatFeeUSD is added on top of the reported fee.
type FeeModel struct {
	FeeBps     float64
	FlatFeeUSD float64
}

// StaticProvider prices routes from a fixed fee model. Settlement through
// Ethereum is slower than between L2s.
type StaticProvider struct {
	model FeeModel
}

// NewStaticProvider creates a provider with the given fee model.
func NewStaticProvider(model FeeModel) *StaticProvider {
	return &StaticProvider{model: model}
}

var _ RouteProvider = (*StaticProvider)(nil)

func (p *StaticProvider) Name() string { return "builtin" }

// Quote prices a route. Amounts are treated as USD-denominated.
func (p *StaticProvider) Quote(_ context.Context, fromChain, toChain, token string, amount float64) (*Quote, error) {
	bpsFee := amount * p.model.FeeBps / 10_000

	return &Quote{
		Provider:      p.Name(),
		FromChain:     fromChain,
		ToChain:       toChain,
		Token:         strings.ToUpper(token),
		InputAmount:   amount,
		OutputAmount:  amount - bpsFee,
		FeeUSD:        bpsFee + p.model.FlatFeeUSD,
		EstimatedTime: estimatedTime(fromChain, toChain),
	}, nil
}

// estimatedTime returns the expected settlement time in seconds.
func estimatedTime(fromChain, toChain string) int {
	if fromChain == "ethereum" || toChain == "ethereum" {
		return 600
	}
	return 180
}
