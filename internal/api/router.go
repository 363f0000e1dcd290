package api

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"apyhub/internal/aggregate"
	"apyhub/internal/bridge"
	"apyhub/internal/cache"
	"apyhub/internal/pools"
	"apyhub/internal/strategist"
)

var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Options wires the HTTP layer to the services behind it. Hub and
// Strategist are optional; their routes answer 503 when absent.
type Options struct {
	Orchestrator *aggregate.Orchestrator
	Pools        *pools.Service
	Bridge       *bridge.Service
	Strategist   *strategist.Service
	Hub          http.Handler
	Cache        cache.Cache
	PositionsTTL time.Duration
	Logger       *log.Logger
}

type server struct {
	orchestrator *aggregate.Orchestrator
	pools        *pools.Service
	bridge       *bridge.Service
	strategist   *strategist.Service
	cache        cache.Cache
	positionsTTL time.Duration
	logger       *log.Logger
}

// NewRouter builds the API router.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("api: orchestrator is required")
	}
	if opts.Pools == nil {
		return nil, fmt.Errorf("api: pool service is required")
	}
	if opts.Bridge == nil {
		return nil, fmt.Errorf("api: bridge service is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("api: cache is required")
	}
	if opts.PositionsTTL <= 0 {
		opts.PositionsTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &server{
		orchestrator: opts.Orchestrator,
		pools:        opts.Pools,
		bridge:       opts.Bridge,
		strategist:   opts.Strategist,
		cache:        opts.Cache,
		positionsTTL: opts.PositionsTTL,
		logger:       opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/positions", func(r chi.Router) {
			r.Get("/", s.handlePositions)
			r.Get("/stats", s.handlePositionStats)
			r.Get("/protocols", s.handleProtocols)
			r.Get("/chains", s.handleChains)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/{address}", s.handleDashboard)
			r.Get("/{address}/summary", s.handleDashboardSummary)
		})

		r.Route("/pools", func(r chi.Router) {
			r.Get("/", s.handlePoolList)
			r.Get("/top/{limit}", s.handlePoolTop)
			r.Get("/stats/overview", s.handlePoolStats)
			r.Get("/{id}", s.handlePoolByID)
			r.Get("/{id}/history", s.handlePoolHistory)
		})

		r.Route("/bridge", func(r chi.Router) {
			r.Get("/chains", s.handleBridgeChains)
			r.Post("/quote", s.handleBridgeQuote)
			r.Post("/execute", s.handleBridgeExecute)
			r.Get("/status/{id}", s.handleBridgeStatus)
			r.Get("/history/{address}", s.handleBridgeHistory)
		})

		r.Route("/strategist", func(r chi.Router) {
			r.Get("/strategies", s.handleStrategies)
			r.Post("/ask", s.handleStrategistAsk)
		})
	})

	if opts.Hub != nil {
		r.Get("/ws/pools", opts.Hub.ServeHTTP)
	}

	return r, nil
}
