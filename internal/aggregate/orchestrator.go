// Package aggregate combines upstream position sources into portfolio views.
package aggregate

import (
	"context"
	"io"
	"log"
	"time"

	"apyhub/internal/domain"
	"apyhub/internal/observability"
	"apyhub/internal/sources"
)

// Orchestrator resolves wallet positions through an ordered fallback chain.
// Sources are tried strictly in order; the first one returning a non-empty
// position list wins and later sources are never invoked. Source errors are
// absorbed and treated as empty results.
type Orchestrator struct {
	chain  []sources.PositionSource
	logger *log.Logger
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	// Chain is the fallback order, highest priority first.
	Chain  []sources.PositionSource
	Logger *log.Logger
}

// NewOrchestrator creates a fallback orchestrator.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{chain: opts.Chain, logger: opts.Logger}
}

// Result is the outcome of a fallback resolution.
type Result struct {
	Positions []domain.Position
	// DataSource names the source that served the request, or "none" when
	// every source came back empty.
	DataSource string
}

// FetchPositions walks the fallback chain for one wallet address.
// An all-empty chain is not an error: the result carries no positions and
// DataSource "none".
func (o *Orchestrator) FetchPositions(ctx context.Context, address string) (Result, error) {
	for _, src := range o.chain {
		start := time.Now()
		positions, err := src.FetchPositions(ctx, address)
		elapsed := time.Since(start)

		if err != nil {
			observability.RecordSourceFetch(src.Name(), "error", elapsed.Seconds())
			o.logger.Printf("[aggregate] source %s failed for %s: %v", src.Name(), address, err)
			continue
		}
		if len(positions) == 0 {
			observability.RecordSourceFetch(src.Name(), "empty", elapsed.Seconds())
			continue
		}

		observability.RecordSourceFetch(src.Name(), "ok", elapsed.Seconds())
		observability.RecordFallbackSource(src.Name())
		return Result{Positions: positions, DataSource: src.Name()}, nil
	}

	return Result{DataSource: "none"}, nil
}
