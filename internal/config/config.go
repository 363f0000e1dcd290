package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Sources    SourcesConfig    `yaml:"sources"`
	Cache      CacheConfig      `yaml:"cache"`
	Storage    StorageConfig    `yaml:"storage"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	Strategist StrategistConfig `yaml:"strategist"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SourcesConfig holds upstream data source credentials and endpoints.
type SourcesConfig struct {
	DeBankAccessKey string            `yaml:"debank_access_key"`
	ZapperAPIKey    string            `yaml:"zapper_api_key"`
	LlamaBaseURL    string            `yaml:"llama_base_url"`
	RPCEndpoints    map[string]string `yaml:"rpc_endpoints"`
	RequestTimeout  time.Duration     `yaml:"request_timeout"`
}

// CacheConfig holds TTL cache settings.
type CacheConfig struct {
	PositionsTTL time.Duration `yaml:"positions_ttl"`
	PoolsTTL     time.Duration `yaml:"pools_ttl"`
	MaxEntries   int           `yaml:"max_entries"`
	RedisURL     string        `yaml:"redis_url"`
}

// StorageConfig holds database connection settings. Empty DSNs select the
// in-memory stores.
type StorageConfig struct {
	PostgresDSN    string `yaml:"postgres_dsn"`
	ClickHouseAddr string `yaml:"clickhouse_addr"`
	ClickHouseDB   string `yaml:"clickhouse_db"`
}

// RankingConfig holds pool scoring parameters.
type RankingConfig struct {
	APYWeight  float64 `yaml:"apy_weight"`
	TVLWeight  float64 `yaml:"tvl_weight"`
	RiskWeight float64 `yaml:"risk_weight"`
	APYCap     float64 `yaml:"apy_cap"`
}

// RefreshConfig holds background pool refresh settings.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
	MinTVL   float64       `yaml:"min_tvl"`
}

// BridgeConfig holds bridge fee model settings.
type BridgeConfig struct {
	FeeBps     float64 `yaml:"fee_bps"`
	FlatFeeUSD float64 `yaml:"flat_fee_usd"`
}

// StrategistConfig holds AI strategist settings. The strategist degrades to
// rule-based generation when the API key is empty.
type StrategistConfig struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	Model           string `yaml:"model"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			ShutdownTimeout: 15 * time.Second,
		},
		Sources: SourcesConfig{
			LlamaBaseURL:   "https://yields.llama.fi",
			RequestTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			PositionsTTL: 5 * time.Minute,
			PoolsTTL:     30 * time.Minute,
			MaxEntries:   10_000,
		},
		Ranking: RankingConfig{
			APYWeight:  0.5,
			TVLWeight:  0.3,
			RiskWeight: 0.2,
			APYCap:     2.0,
		},
		Refresh: RefreshConfig{
			Interval: 10 * time.Minute,
			MinTVL:   100_000,
		},
		Bridge: BridgeConfig{
			FeeBps:     5,
			FlatFeeUSD: 0.5,
		},
		Strategist: StrategistConfig{
			Model: "claude-sonnet-4-5",
		},
	}
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result. An empty path loads defaults plus env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.loadEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadEnvOverrides() {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("DEBANK_ACCESS_KEY"); v != "" {
		c.Sources.DeBankAccessKey = v
	}
	if v := os.Getenv("ZAPPER_API_KEY"); v != "" {
		c.Sources.ZapperAPIKey = v
	}
	if v := os.Getenv("LLAMA_BASE_URL"); v != "" {
		c.Sources.LlamaBaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_ADDR"); v != "" {
		c.Storage.ClickHouseAddr = v
	}
	if v := os.Getenv("CLICKHOUSE_DB"); v != "" {
		c.Storage.ClickHouseDB = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Strategist.AnthropicAPIKey = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Refresh.Interval = d
		}
	}
	if v := os.Getenv("CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.MaxEntries = n
		}
	}
}

// Validate checks invariants that would otherwise surface as bad scores or
// runtime panics deep in the pipeline.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Cache.PositionsTTL <= 0 {
		return fmt.Errorf("cache.positions_ttl must be positive")
	}
	if c.Cache.PoolsTTL <= 0 {
		return fmt.Errorf("cache.pools_ttl must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive")
	}
	if c.Ranking.APYWeight < 0 || c.Ranking.TVLWeight < 0 || c.Ranking.RiskWeight < 0 {
		return fmt.Errorf("ranking weights must be non-negative")
	}
	sum := c.Ranking.APYWeight + c.Ranking.TVLWeight + c.Ranking.RiskWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("ranking weights must sum to 1, got %g", sum)
	}
	if c.Ranking.APYCap <= 0 {
		return fmt.Errorf("ranking.apy_cap must be positive")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	if c.Bridge.FeeBps < 0 || c.Bridge.FlatFeeUSD < 0 {
		return fmt.Errorf("bridge fees must be non-negative")
	}
	return nil
}
