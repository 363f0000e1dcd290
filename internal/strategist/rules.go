package strategist

import (
	"fmt"
	"strings"

	"apyhub/internal/domain"
)

const (
	defaultTargetAPY = 10.0
	loopLeverage     = 2.0
)

// lendingProjects are the venues where a supplied asset can be borrowed
// against, which is what makes a pool loopable.
var lendingProjects = []string{"aave", "compound", "spark", "morpho", "venus"}

// riskLevelsFor expands a tolerance into the set of acceptable levels.
func riskLevelsFor(tolerance domain.RiskLevel) map[domain.RiskLevel]bool {
	ordered := []domain.RiskLevel{
		domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskVeryHigh,
	}

	accepted := make(map[domain.RiskLevel]bool)
	for _, level := range ordered {
		accepted[level] = true
		if level == tolerance {
			break
		}
	}
	return accepted
}

// GenerateRuleBased builds strategy proposals from the ranked pool catalog.
// Pools must arrive ordered best first; the rules pick from the top of the
// acceptable slice.
func GenerateRuleBased(pools []domain.Pool, tolerance domain.RiskLevel, targetAPY float64) []domain.Strategy {
	if !tolerance.Valid() {
		tolerance = domain.RiskMedium
	}
	if targetAPY <= 0 {
		targetAPY = defaultTargetAPY
	}

	accepted := riskLevelsFor(tolerance)
	var eligible []domain.Pool
	for _, p := range pools {
		if accepted[p.Risk] && p.APY >= targetAPY {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		// Relax the APY floor rather than return nothing.
		for _, p := range pools {
			if accepted[p.Risk] {
				eligible = append(eligible, p)
			}
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	var strategies []domain.Strategy

	top := eligible[0]
	strategies = append(strategies, domain.Strategy{
		ID:   "simple-deposit",
		Name: fmt.Sprintf("High Yield %s Deposit", top.Symbol),
		Description: fmt.Sprintf("Deposit %s into %s on %s for %.2f%% APY",
			top.Symbol, top.Project, top.Chain, top.APY),
		ExpectedAPY:     top.APY,
		Risk:            top.Risk,
		RequiredCapital: 1000,
		Steps: []domain.StrategyStep{
			{
				Action:      domain.ActionDeposit,
				Protocol:    top.Project,
				Chain:       top.Chain,
				InputToken:  top.Symbol,
				OutputToken: top.Project + "-receipt",
			},
		},
		GasEstimate: 0.01,
		ILRisk:      ilRiskFor(top),
	})

	if loop, ok := firstLoopable(eligible); ok {
		strategies = append(strategies, domain.Strategy{
			ID:   "leveraged-loop",
			Name: fmt.Sprintf("Leveraged %s Loop", loop.Symbol),
			Description: fmt.Sprintf("Loop %s in %s with %.0fx leverage for ~%.2f%% APY",
				loop.Symbol, loop.Project, loopLeverage, loop.APY*loopLeverage),
			ExpectedAPY:     loop.APY * loopLeverage,
			Risk:            domain.RiskHigh,
			RequiredCapital: 5000,
			Steps: []domain.StrategyStep{
				{
					Action:      domain.ActionDeposit,
					Protocol:    loop.Project,
					Chain:       loop.Chain,
					InputToken:  loop.Symbol,
					OutputToken: "a" + loop.Symbol,
				},
				{
					Action:      domain.ActionBorrow,
					Protocol:    loop.Project,
					Chain:       loop.Chain,
					InputToken:  "a" + loop.Symbol,
					OutputToken: loop.Symbol,
					Leverage:    loopLeverage,
				},
				{
					Action:      domain.ActionLoop,
					Protocol:    loop.Project,
					Chain:       loop.Chain,
					InputToken:  loop.Symbol,
					OutputToken: "a" + loop.Symbol,
					Leverage:    loopLeverage,
				},
			},
			GasEstimate: 0.05,
			ILRisk:      0,
		})
	}

	if stables := stablecoinPools(eligible); len(stables) >= 2 {
		strategies = append(strategies, domain.Strategy{
			ID:              "delta-neutral",
			Name:            "Delta Neutral Stable Farming",
			Description:     "Earn yield on stables while maintaining USD exposure",
			ExpectedAPY:     stables[0].APY * 0.8,
			Risk:            domain.RiskLow,
			RequiredCapital: 10000,
			Steps: []domain.StrategyStep{
				{
					Action:      domain.ActionDeposit,
					Protocol:    stables[0].Project,
					Chain:       stables[0].Chain,
					InputToken:  "USDC",
					OutputToken: "aUSDC",
				},
				{
					Action:      domain.ActionBorrow,
					Protocol:    stables[0].Project,
					Chain:       stables[0].Chain,
					InputToken:  "aUSDC",
					OutputToken: "USDT",
				},
				{
					Action:      domain.ActionDeposit,
					Protocol:    stables[1].Project,
					Chain:       stables[1].Chain,
					InputToken:  "USDT",
					OutputToken: "cUSDT",
				},
			},
			GasEstimate: 0.03,
			ILRisk:      5,
		})
	}

	return strategies
}

func firstLoopable(pools []domain.Pool) (domain.Pool, bool) {
	for _, p := range pools {
		if p.ILExposure {
			continue
		}
		project := strings.ToLower(p.Project)
		for _, lending := range lendingProjects {
			if strings.Contains(project, lending) {
				return p, true
			}
		}
	}
	return domain.Pool{}, false
}

func stablecoinPools(pools []domain.Pool) []domain.Pool {
	var out []domain.Pool
	for _, p := range pools {
		if p.Stablecoin {
			out = append(out, p)
		}
	}
	return out
}

func ilRiskFor(p domain.Pool) float64 {
	if !p.ILExposure {
		return 0
	}
	if p.Stablecoin {
		return 5
	}
	return 30
}
