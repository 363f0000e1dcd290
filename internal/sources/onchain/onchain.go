package onchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"apyhub/internal/domain"
	"apyhub/internal/evm"
	"apyhub/internal/sources"
)

// Ethereum mainnet contracts.
const (
	UniswapV3PositionManager = "0xC36442b4a4522E871399CD717aBDD847Ab11FE88"
	AaveV3Pool               = "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"
)

// maxPositionsPerWallet bounds the per-wallet NFT enumeration.
const maxPositionsPerWallet = 20

// positions(uint256) return word layout.
const (
	posWordToken0     = 2
	posWordToken1     = 3
	posWordFee        = 4
	posWordLiquidity  = 7
	posWordOwed0      = 10
	posWordOwed1      = 11
)

// Caller executes read-only contract calls.
type Caller interface {
	EthCall(ctx context.Context, to string, calldata []byte) ([]byte, error)
}

// Fetcher reads positions directly from Ethereum contracts. It is the
// last-resort source: coverage is limited to Uniswap V3 LP NFTs and the
// caller's Aave V3 account, and USD values are rough estimates.
type Fetcher struct {
	caller Caller
	now    func() time.Time
}

// Options configures Fetcher.
type Options struct {
	Caller Caller
	Now    func() time.Time
}

// New creates an on-chain fetcher.
func New(opts Options) *Fetcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Fetcher{caller: opts.Caller, now: opts.Now}
}

// Name implements sources.PositionSource.
func (f *Fetcher) Name() string { return sources.SourceOnChain }

// FetchPositions implements sources.PositionSource. Uniswap and Aave reads
// fail independently; an error is returned only when both protocols fail.
func (f *Fetcher) FetchPositions(ctx context.Context, address string) ([]domain.Position, error) {
	uni, uniErr := f.fetchUniswapV3(ctx, address)
	aave, aaveErr := f.fetchAave(ctx, address)

	out := append(uni, aave...)
	if len(out) == 0 && uniErr != nil && aaveErr != nil {
		return nil, errors.Join(uniErr, aaveErr)
	}
	return out, nil
}

func (f *Fetcher) fetchUniswapV3(ctx context.Context, address string) ([]domain.Position, error) {
	raw, err := f.caller.EthCall(ctx, UniswapV3PositionManager, evm.EncodeBalanceOf(address))
	if err != nil {
		return nil, fmt.Errorf("uniswap balanceOf: %w", err)
	}
	count := evm.DecodeUint256(raw, 0).Int64()
	if count > maxPositionsPerWallet {
		count = maxPositionsPerWallet
	}

	nowMs := f.now().UnixMilli()
	var out []domain.Position
	for i := int64(0); i < count; i++ {
		raw, err := f.caller.EthCall(ctx, UniswapV3PositionManager, evm.EncodeTokenOfOwnerByIndex(address, i))
		if err != nil {
			continue
		}
		tokenID := evm.DecodeUint256(raw, 0)

		posRaw, err := f.caller.EthCall(ctx, UniswapV3PositionManager, evm.EncodePositions(tokenID))
		if err != nil {
			continue
		}

		token0 := evm.DecodeAddress(posRaw, posWordToken0)
		token1 := evm.DecodeAddress(posRaw, posWordToken1)
		fee := evm.DecodeUint256(posRaw, posWordFee).Int64()
		liquidity := evm.DecodeUint256(posRaw, posWordLiquidity)

		sym0, dec0 := f.tokenInfo(ctx, token0)
		sym1, dec1 := f.tokenInfo(ctx, token1)

		owed0 := evm.ToFloat(evm.DecodeUint256(posRaw, posWordOwed0), dec0)
		owed1 := evm.ToFloat(evm.DecodeUint256(posRaw, posWordOwed1), dec1)

		out = append(out, domain.Position{
			ID:            fmt.Sprintf("uniswap-v3-%s", tokenID.String()),
			Address:       address,
			PoolAddress:   UniswapV3PositionManager,
			PoolName:      fmt.Sprintf("%s/%s %g%%", sym0, sym1, float64(fee)/10000),
			Protocol:      "Uniswap V3",
			Chain:         "ethereum",
			Type:          domain.PositionLP,
			Assets:        []string{sym0, sym1},
			Amounts:       []float64{owed0, owed1},
			TotalValueUSD: estimateLiquidityValue(liquidity),
			Risk:          domain.RiskMedium,
			DataSource:    sources.SourceOnChain,
			LastUpdated:   nowMs,
		})
	}
	return out, nil
}

func (f *Fetcher) fetchAave(ctx context.Context, address string) ([]domain.Position, error) {
	raw, err := f.caller.EthCall(ctx, AaveV3Pool, evm.EncodeGetUserAccountData(address))
	if err != nil {
		return nil, fmt.Errorf("aave getUserAccountData: %w", err)
	}

	// Base-currency values use 8 decimals, health factor 18.
	collateral := evm.ToFloat(evm.DecodeUint256(raw, 0), 8)
	debt := evm.ToFloat(evm.DecodeUint256(raw, 1), 8)
	healthFactor := evm.ToFloat(evm.DecodeUint256(raw, 5), 18)

	if collateral <= 0 {
		return nil, nil
	}

	posType := domain.PositionLending
	risk := domain.RiskLow
	var hf *float64
	if debt > 0 {
		posType = domain.PositionBorrowing
		hf = &healthFactor
		risk = domain.RiskHigh
		if healthFactor < 1.2 {
			risk = domain.RiskVeryHigh
		}
	}

	return []domain.Position{{
		ID:            fmt.Sprintf("aave-v3-%s", address),
		Address:       address,
		PoolAddress:   AaveV3Pool,
		PoolName:      "Aave V3 Lending",
		Protocol:      "Aave V3",
		Chain:         "ethereum",
		Type:          posType,
		Assets:        []string{"MIXED"},
		Amounts:       []float64{collateral},
		TotalValueUSD: sources.ClampValue(collateral),
		Fees24h:       collateral * 0.03 / 365,
		HealthFactor:  hf,
		Risk:          risk,
		DataSource:    sources.SourceOnChain,
		LastUpdated:   f.now().UnixMilli(),
	}}, nil
}

// tokenInfo resolves symbol and decimals, defaulting to UNKNOWN/18.
func (f *Fetcher) tokenInfo(ctx context.Context, token string) (string, int) {
	symbol := "UNKNOWN"
	decimals := 18

	if raw, err := f.caller.EthCall(ctx, token, append([]byte(nil), evm.SelectorSymbol...)); err == nil {
		if s := evm.DecodeString(raw); s != "" {
			symbol = s
		}
	}
	if raw, err := f.caller.EthCall(ctx, token, append([]byte(nil), evm.SelectorDecimals...)); err == nil {
		if d := evm.DecodeUint256(raw, 0).Int64(); d > 0 && d <= 36 {
			decimals = int(d)
		}
	}
	return symbol, decimals
}

// estimateLiquidityValue turns raw liquidity into a rough USD figure.
// Real pricing needs pool tick math and an oracle; this mirrors the simple
// heuristic the dashboard has always shown for the limited source.
func estimateLiquidityValue(liquidity *big.Int) float64 {
	return sources.ClampValue(evm.ToFloat(liquidity, 18) * 2000)
}

// Verify interface compliance at compile time.
var _ sources.PositionSource = (*Fetcher)(nil)
