package debank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"apyhub/internal/domain"
	"apyhub/internal/sources"
)

// DefaultBaseURL is DeBank's public OpenAPI endpoint.
const DefaultBaseURL = "https://openapi.debank.com/v1"

// Client fetches wallet positions from the DeBank complex-protocol API.
type Client struct {
	baseURL   string
	accessKey string
	client    *http.Client
	now       func() time.Time
}

// Options configures Client.
type Options struct {
	BaseURL   string
	AccessKey string // optional, the public endpoint works without one
	Timeout   time.Duration
	Now       func() time.Time
}

// New creates a DeBank client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		accessKey: opts.AccessKey,
		client:    &http.Client{Timeout: opts.Timeout},
		now:       opts.Now,
	}
}

// Name implements sources.PositionSource.
func (c *Client) Name() string { return sources.SourceDeBank }

// protocolEntry is one protocol in the all_complex_protocol_list response.
type protocolEntry struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Chain             string          `json:"chain"`
	PortfolioItemList []portfolioItem `json:"portfolio_item_list"`
}

type portfolioItem struct {
	Name        string        `json:"name"`
	DetailTypes []string      `json:"detail_types"`
	Stats       itemStats     `json:"stats"`
	Detail      itemDetail    `json:"detail"`
	Pool        *itemPoolInfo `json:"pool"`
}

type itemStats struct {
	NetUSDValue   float64  `json:"net_usd_value"`
	AssetUSDValue float64  `json:"asset_usd_value"`
	APY           float64  `json:"apy"`
	HealthRate    *float64 `json:"health_rate"`
	DebtRatio     float64  `json:"debt_ratio"`
}

type itemDetail struct {
	PoolID          string      `json:"pool_id"`
	ContractID      string      `json:"contract_id"`
	BaseAPY         float64     `json:"base_apy"`
	RewardAPY       float64     `json:"reward_apy"`
	SupplyAPY       float64     `json:"supply_apy"`
	SupplyTokenList []tokenInfo `json:"supply_token_list"`
	BorrowTokenList []tokenInfo `json:"borrow_token_list"`
}

type itemPoolInfo struct {
	APY float64 `json:"apy"`
}

type tokenInfo struct {
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
}

// FetchPositions implements sources.PositionSource. The full protocol list is
// fetched in one call and flattened into normalized positions.
func (c *Client) FetchPositions(ctx context.Context, address string) ([]domain.Position, error) {
	endpoint := fmt.Sprintf("%s/user/all_complex_protocol_list?id=%s",
		c.baseURL, url.QueryEscape(strings.ToLower(address)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.accessKey != "" {
		req.Header.Set("AccessKey", c.accessKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("debank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("debank status %d: %s", resp.StatusCode, string(body))
	}

	var protocols []protocolEntry
	if err := json.NewDecoder(resp.Body).Decode(&protocols); err != nil {
		return nil, fmt.Errorf("decode debank response: %w", err)
	}

	return c.normalize(address, protocols), nil
}

// normalize flattens protocol portfolio items into Positions. Total: every
// item produces exactly one position, defaults fill missing fields.
func (c *Client) normalize(address string, protocols []protocolEntry) []domain.Position {
	nowMs := c.now().UnixMilli()
	var out []domain.Position

	for _, p := range protocols {
		protocolName := p.Name
		if protocolName == "" {
			protocolName = "Unknown"
		}
		chain := p.Chain
		if chain == "" {
			chain = "eth"
		}

		for _, item := range p.PortfolioItemList {
			detailType := ""
			if len(item.DetailTypes) > 0 {
				detailType = item.DetailTypes[0]
			}

			poolName := item.Name
			if poolName == "" {
				poolName = protocolName + " Position"
			}

			poolAddr := item.Detail.PoolID
			if poolAddr == "" {
				poolAddr = item.Detail.ContractID
			}

			assets, amounts := extractTokens(item.Detail)

			value := item.Stats.NetUSDValue
			if value == 0 {
				value = item.Stats.AssetUSDValue
			}

			pos := domain.Position{
				ID:              fmt.Sprintf("%s-%s", p.ID, slug(item.Name, len(out))),
				Address:         address,
				PoolAddress:     poolAddr,
				PoolName:        poolName,
				Protocol:        protocolName,
				Chain:           sources.NormalizeChain(chain),
				Type:            sources.InferPositionType(detailType+" "+item.Name, domain.PositionLending),
				Assets:          assets,
				Amounts:         amounts,
				TotalValueUSD:   sources.ClampValue(value),
				APY:             sources.ClampAPY(extractAPY(item)),
				APYBase:         sources.ClampAPY(item.Detail.BaseAPY),
				APYReward:       sources.ClampAPY(item.Detail.RewardAPY),
				Fees24h:         sources.ClampValue(value * 0.0001),
				ImpermanentLoss: 0,
				HealthFactor:    item.Stats.HealthRate,
				DataSource:      sources.SourceDeBank,
				LastUpdated:     nowMs,
			}
			pos.Risk = positionRisk(pos)
			out = append(out, pos)
		}
	}
	return out
}

// extractAPY tries the known APY locations in priority order.
func extractAPY(item portfolioItem) float64 {
	switch {
	case item.Stats.APY != 0:
		return item.Stats.APY
	case item.Detail.BaseAPY != 0:
		return item.Detail.BaseAPY
	case item.Detail.RewardAPY != 0:
		return item.Detail.RewardAPY
	case item.Detail.SupplyAPY != 0:
		return item.Detail.SupplyAPY
	case item.Pool != nil:
		return item.Pool.APY
	default:
		return 0
	}
}

func extractTokens(detail itemDetail) ([]string, []float64) {
	list := detail.SupplyTokenList
	if len(list) == 0 {
		list = detail.BorrowTokenList
	}
	var assets []string
	var amounts []float64
	for _, t := range list {
		if t.Symbol == "" {
			continue
		}
		assets = append(assets, t.Symbol)
		amounts = append(amounts, t.Amount)
	}
	assets = sources.NonEmptyAssets(assets)
	for len(amounts) < len(assets) {
		amounts = append(amounts, 0)
	}
	return assets, amounts
}

func positionRisk(p domain.Position) domain.RiskLevel {
	if p.Type == domain.PositionBorrowing {
		if p.HealthFactor != nil && *p.HealthFactor < 1.2 {
			return domain.RiskVeryHigh
		}
		return domain.RiskHigh
	}
	if p.Type == domain.PositionLP {
		return domain.RiskMedium
	}
	return domain.RiskLow
}

func slug(name string, fallback int) string {
	if name == "" {
		return fmt.Sprintf("%d", fallback)
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// Verify interface compliance at compile time.
var _ sources.PositionSource = (*Client)(nil)
