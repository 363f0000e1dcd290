package llama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"apyhub/internal/domain"
	"apyhub/internal/sources"
)

// DefaultBaseURL is the DefiLlama yields API.
const DefaultBaseURL = "https://yields.llama.fi"

// Client fetches protocol-wide yield pools from DefiLlama.
type Client struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// Options configures Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Now     func() time.Time
}

// New creates a DefiLlama client.
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
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{Timeout: opts.Timeout},
		now:     opts.Now,
	}
}

// Name implements sources.PoolSource.
func (c *Client) Name() string { return sources.SourceDefiLlama }

type poolsResponse struct {
	Status string      `json:"status"`
	Data   []poolEntry `json:"data"`
}

type poolEntry struct {
	Pool       string  `json:"pool"`
	Chain      string  `json:"chain"`
	Project    string  `json:"project"`
	Symbol     string  `json:"symbol"`
	TVLUsd     float64 `json:"tvlUsd"`
	APY        float64 `json:"apy"`
	APYBase    float64 `json:"apyBase"`
	APYReward  float64 `json:"apyReward"`
	Stablecoin bool    `json:"stablecoin"`
	ILRisk     string  `json:"ilRisk"`
	Exposure   string  `json:"exposure"`
}

// FetchPools implements sources.PoolSource. Entries without a pool id are
// dropped; everything else normalizes totally.
func (c *Client) FetchPools(ctx context.Context) ([]domain.Pool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pools", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("defillama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("defillama status %d: %s", resp.StatusCode, string(body))
	}

	var payload poolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode defillama response: %w", err)
	}

	nowMs := c.now().UnixMilli()
	pools := make([]domain.Pool, 0, len(payload.Data))
	for _, e := range payload.Data {
		if e.Pool == "" {
			continue
		}
		ilExposure := strings.EqualFold(e.ILRisk, "yes")
		tvl := e.TVLUsd
		if tvl < 0 {
			tvl = 0
		}
		pools = append(pools, domain.Pool{
			PoolID:     e.Pool,
			Chain:      e.Chain,
			Project:    e.Project,
			Symbol:     e.Symbol,
			TVLUsd:     tvl,
			APY:        sources.ClampAPY(e.APY),
			APYBase:    sources.ClampAPY(e.APYBase),
			APYReward:  sources.ClampAPY(e.APYReward),
			Stablecoin: e.Stablecoin,
			ILExposure: ilExposure,
			Risk:       domain.ClassifyPoolRisk(tvl, e.Stablecoin, ilExposure),
			DataSource: sources.SourceDefiLlama,
			UpdatedAt:  nowMs,
		})
	}
	return pools, nil
}

// Verify interface compliance at compile time.
var _ sources.PoolSource = (*Client)(nil)
