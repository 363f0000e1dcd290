// Package main runs the yield aggregation server:
// - HTTP API: positions, dashboard, pools, bridge, strategist
// - WebSocket hub: pool refresh notifications
// - Background refresher: pool catalog scoring on an interval
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"apyhub/internal/aggregate"
	"apyhub/internal/api"
	"apyhub/internal/bridge"
	"apyhub/internal/cache"
	"apyhub/internal/config"
	"apyhub/internal/evm"
	"apyhub/internal/observability"
	"apyhub/internal/pools"
	"apyhub/internal/ranking"
	"apyhub/internal/sources"
	"apyhub/internal/sources/debank"
	"apyhub/internal/sources/llama"
	"apyhub/internal/sources/onchain"
	"apyhub/internal/sources/zapper"
	"apyhub/internal/storage"
	chstore "apyhub/internal/storage/clickhouse"
	"apyhub/internal/storage/memory"
	"apyhub/internal/storage/migrations"
	pgstore "apyhub/internal/storage/postgres"
	"apyhub/internal/strategist"
	"apyhub/internal/ws"
)

// appStores holds the storage implementations behind the services.
type appStores struct {
	bridgeStore storage.BridgeTransactionStore
	poolStore   storage.PoolStore
	history     storage.APYHistoryStore
}

func main() {
	loadEnvFile()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Cache: in-process always, Redis tier when REDIS_URL is set.
	memCache := cache.NewMemory(cache.MemoryOptions{
		DefaultTTL: cfg.Cache.PositionsTTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})
	tiered := cache.NewTiered(memCache, cfg.Cache.RedisURL, logger)

	// Position sources, highest priority first. Zapper without an API key and
	// on-chain without an RPC endpoint return empty results and the chain
	// falls through.
	chain := []sources.PositionSource{
		debank.New(debank.Options{
			AccessKey: cfg.Sources.DeBankAccessKey,
			Timeout:   cfg.Sources.RequestTimeout,
		}),
		zapper.New(zapper.Options{
			APIKey:  cfg.Sources.ZapperAPIKey,
			Timeout: cfg.Sources.RequestTimeout,
		}),
	}
	if rpc := cfg.Sources.RPCEndpoints["ethereum"]; rpc != "" {
		chain = append(chain, onchain.New(onchain.Options{
			Caller: evm.NewClient(rpc, evm.WithTimeout(cfg.Sources.RequestTimeout)),
		}))
	}

	orchestrator := aggregate.NewOrchestrator(aggregate.OrchestratorOptions{
		Chain:  chain,
		Logger: logger,
	})

	fanout := aggregate.NewFanOut(aggregate.FanOutOptions{
		Sources: []sources.PoolSource{
			llama.New(llama.Options{
				BaseURL: cfg.Sources.LlamaBaseURL,
				Timeout: cfg.Sources.RequestTimeout,
			}),
		},
		Logger: logger,
	})

	hub := ws.NewHub(log.New(os.Stdout, "[ws] ", log.LstdFlags))
	defer hub.Close()

	weights := ranking.Weights{
		APYWeight:       cfg.Ranking.APYWeight,
		TVLWeight:       cfg.Ranking.TVLWeight,
		RiskWeight:      cfg.Ranking.RiskWeight,
		APYCap:          cfg.Ranking.APYCap,
		RiskMultipliers: ranking.DefaultWeights().RiskMultipliers,
	}

	poolSvc, err := pools.NewService(pools.Options{
		Fetcher:     fanout,
		PoolStore:   stores.poolStore,
		History:     stores.history,
		Cache:       tiered,
		Broadcaster: hub,
		Weights:     weights,
		MinTVL:      cfg.Refresh.MinTVL,
		CacheTTL:    cfg.Cache.PoolsTTL,
		Logger:      log.New(os.Stdout, "[pools] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create pool service: %v", err)
	}

	bridgeSvc, err := bridge.NewService(bridge.Options{
		Provider: bridge.NewStaticProvider(bridge.FeeModel{
			FeeBps:     cfg.Bridge.FeeBps,
			FlatFeeUSD: cfg.Bridge.FlatFeeUSD,
		}),
		Store:  stores.bridgeStore,
		Logger: log.New(os.Stdout, "[bridge] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create bridge service: %v", err)
	}

	composer := strategist.NewComposer(cfg.Strategist.AnthropicAPIKey, cfg.Strategist.Model)
	if composer == nil {
		logger.Println("ANTHROPIC_API_KEY not set, strategist runs rule-based only")
	}
	strategistSvc, err := strategist.NewService(strategist.Options{
		Catalog:  poolSvc,
		Composer: composer,
		Logger:   log.New(os.Stdout, "[strategist] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create strategist service: %v", err)
	}

	router, err := api.NewRouter(api.Options{
		Orchestrator: orchestrator,
		Pools:        poolSvc,
		Bridge:       bridgeSvc,
		Strategist:   strategistSvc,
		Hub:          hub,
		Cache:        tiered,
		PositionsTTL: cfg.Cache.PositionsTTL,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create router: %v", err)
	}

	// Background pool refresh.
	refresher := pools.NewRefresher(poolSvc, cfg.Refresh.Interval, logger)
	go refresher.Run(ctx)

	// Metrics server on its own listener.
	go startMetricsServer(cfg.Server.MetricsAddr, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Starting API server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		logger.Fatalf("API server error: %v", err)
	}
	cancel()

	go func() {
		sig := <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores selects the storage backends. With --use-memory, or when no
// DSN is configured, everything runs in process. Postgres and ClickHouse are
// independent: a deployment may persist bridge transactions and the pool
// catalog while keeping APY history in memory.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*appStores, func(), error) {
	stores := &appStores{
		bridgeStore: memory.NewBridgeTransactionStore(),
		poolStore:   memory.NewPoolStore(),
		history:     memory.NewAPYHistoryStore(),
	}
	cleanup := func() {}

	if useMemory {
		return stores, cleanup, nil
	}

	var closers []func()

	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		stores.bridgeStore = pgstore.NewBridgeTransactionStore(pool)
		stores.poolStore = pgstore.NewPoolStore(pool)
		closers = append(closers, pool.Close)
	}

	if cfg.Storage.ClickHouseAddr != "" {
		dsn := clickhouseDSN(cfg.Storage.ClickHouseAddr, cfg.Storage.ClickHouseDB)
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.history = chstore.NewAPYHistoryStore(conn)
		closers = append(closers, func() { conn.Close() })
	}

	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return stores, cleanup, nil
}

// clickhouseDSN builds a native-protocol DSN from addr and database.
func clickhouseDSN(addr, database string) string {
	if database == "" {
		database = "apyhub"
	}
	if !strings.Contains(addr, "://") {
		addr = "clickhouse://" + addr
	}
	return strings.TrimRight(addr, "/") + "/" + database
}

// startMetricsServer serves Prometheus metrics and the liveness probe.
func startMetricsServer(addr string, logger *log.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

// loadEnvFile loads environment variables from .env if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
