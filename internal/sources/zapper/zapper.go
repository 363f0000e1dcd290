package zapper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"apyhub/internal/domain"
	"apyhub/internal/sources"
)

// DefaultEndpoint is Zapper's public GraphQL endpoint.
const DefaultEndpoint = "https://public.zapper.xyz/graphql"

// dustThresholdUSD filters out near-zero balances.
const dustThresholdUSD = 0.01

// appBalancesQuery pulls per-app position balances from portfolioV2.
const appBalancesQuery = `
query AppBalances($addresses: [Address!]!, $first: Int) {
  portfolioV2(addresses: $addresses) {
    appBalances {
      byApp(first: $first) {
        edges {
          node {
            balanceUSD
            app { displayName category { name } }
            network { name chainId }
            positionBalances(first: 20) {
              edges {
                node {
                  ... on AppTokenPositionBalance {
                    type symbol balance balanceUSD groupLabel
                    displayProps { label }
                  }
                  ... on ContractPositionBalance {
                    type balanceUSD groupLabel
                    tokens {
                      metaType
                      token {
                        ... on BaseTokenPositionBalance { symbol balance balanceUSD }
                      }
                    }
                    displayProps { label }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// Client fetches wallet positions from Zapper's portfolioV2 GraphQL API.
// A client without an API key is disabled and reports no positions.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	now      func() time.Time
}

// Options configures Client.
type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Now      func() time.Time
}

// New creates a Zapper client.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		client:   &http.Client{Timeout: opts.Timeout},
		now:      opts.Now,
	}
}

// Name implements sources.PositionSource.
func (c *Client) Name() string { return sources.SourceZapper }

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		PortfolioV2 struct {
			AppBalances struct {
				ByApp struct {
					Edges []appEdge `json:"edges"`
				} `json:"byApp"`
			} `json:"appBalances"`
		} `json:"portfolioV2"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type appEdge struct {
	Node appNode `json:"node"`
}

type appNode struct {
	BalanceUSD float64 `json:"balanceUSD"`
	App        struct {
		DisplayName string `json:"displayName"`
		Category    struct {
			Name string `json:"name"`
		} `json:"category"`
	} `json:"app"`
	Network struct {
		Name    string `json:"name"`
		ChainID int64  `json:"chainId"`
	} `json:"network"`
	PositionBalances struct {
		Edges []positionEdge `json:"edges"`
	} `json:"positionBalances"`
}

type positionEdge struct {
	Node positionNode `json:"node"`
}

type positionNode struct {
	Type       string    `json:"type"`
	Symbol     string    `json:"symbol"`
	Balance    flexFloat `json:"balance"`
	BalanceUSD float64   `json:"balanceUSD"`
	GroupLabel string    `json:"groupLabel"`
	Tokens     []struct {
		MetaType string `json:"metaType"`
		Token    struct {
			Symbol  string    `json:"symbol"`
			Balance flexFloat `json:"balance"`
		} `json:"token"`
	} `json:"tokens"`
	DisplayProps struct {
		Label string `json:"label"`
	} `json:"displayProps"`
}

// flexFloat accepts both numeric and string-encoded balances; Zapper is not
// consistent across position kinds.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// FetchPositions implements sources.PositionSource.
func (c *Client) FetchPositions(ctx context.Context, address string) ([]domain.Position, error) {
	if !c.Enabled() {
		return nil, nil
	}

	body, err := json.Marshal(graphqlRequest{
		Query: appBalancesQuery,
		Variables: map[string]any{
			"addresses": []string{strings.ToLower(address)},
			"first":     100,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-zapper-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zapper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("zapper status %d: %s", resp.StatusCode, string(raw))
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("decode zapper response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("zapper graphql: %s", gqlResp.Errors[0].Message)
	}

	return c.normalize(address, gqlResp.Data.PortfolioV2.AppBalances.ByApp.Edges), nil
}

func (c *Client) normalize(address string, apps []appEdge) []domain.Position {
	nowMs := c.now().UnixMilli()
	var out []domain.Position

	for _, appEdge := range apps {
		app := appEdge.Node
		appName := app.App.DisplayName
		if appName == "" {
			appName = "Unknown"
		}
		chain := app.Network.Name
		if chain == "" {
			chain = "ethereum"
		}
		category := app.App.Category.Name
		if category == "" {
			category = "DeFi"
		}

		for i, posEdge := range app.PositionBalances.Edges {
			node := posEdge.Node
			if node.BalanceUSD <= dustThresholdUSD {
				continue
			}

			label := node.DisplayProps.Label
			if label == "" {
				label = node.GroupLabel
			}
			if label == "" {
				label = appName + " Position"
			}

			assets, amounts := extractTokens(node)

			pos := domain.Position{
				ID:            fmt.Sprintf("zapper-%s-%d", slugify(appName), i),
				Address:       address,
				PoolName:      label,
				Protocol:      appName,
				Chain:         sources.NormalizeChain(chain),
				Type:          positionType(node, category),
				Assets:        assets,
				Amounts:       amounts,
				TotalValueUSD: sources.ClampValue(node.BalanceUSD),
				Fees24h:       sources.ClampValue(node.BalanceUSD * 0.0001),
				DataSource:    sources.SourceZapper,
				LastUpdated:   nowMs,
			}
			pos.Risk = riskFor(pos.Type)
			out = append(out, pos)
		}
	}
	return out
}

// positionType classifies from type, group label, then app category. Zapper
// positions default to LP.
func positionType(node positionNode, category string) domain.PositionType {
	label := node.Type
	if label == "" {
		label = node.GroupLabel
	}
	if label == "" {
		label = category
	}
	return sources.InferPositionType(label, domain.PositionLP)
}

func extractTokens(node positionNode) ([]string, []float64) {
	var assets []string
	var amounts []float64
	if node.Symbol != "" {
		assets = append(assets, node.Symbol)
		amounts = append(amounts, float64(node.Balance))
	}
	for _, t := range node.Tokens {
		if t.Token.Symbol == "" {
			continue
		}
		assets = append(assets, t.Token.Symbol)
		amounts = append(amounts, float64(t.Token.Balance))
	}
	assets = sources.NonEmptyAssets(assets)
	for len(amounts) < len(assets) {
		amounts = append(amounts, 0)
	}
	return assets, amounts
}

func riskFor(t domain.PositionType) domain.RiskLevel {
	switch t {
	case domain.PositionBorrowing:
		return domain.RiskHigh
	case domain.PositionLP:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

// Verify interface compliance at compile time.
var _ sources.PositionSource = (*Client)(nil)
