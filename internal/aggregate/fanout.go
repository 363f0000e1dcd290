package aggregate

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"apyhub/internal/domain"
	"apyhub/internal/observability"
	"apyhub/internal/sources"
)

// defaultFanOutConcurrency bounds simultaneous upstream pool fetches.
const defaultFanOutConcurrency = 4

// FanOut aggregates protocol-wide pools across all sources concurrently.
// Unlike the wallet fallback chain, every source runs and the union of the
// successful results is returned; a failed source contributes nothing.
type FanOut struct {
	srcs        []sources.PoolSource
	concurrency int
	logger      *log.Logger
}

// FanOutOptions configures a FanOut.
type FanOutOptions struct {
	Sources     []sources.PoolSource
	Concurrency int
	Logger      *log.Logger
}

// NewFanOut creates a bounded-concurrency pool aggregator.
func NewFanOut(opts FanOutOptions) *FanOut {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultFanOutConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &FanOut{srcs: opts.Sources, concurrency: opts.Concurrency, logger: opts.Logger}
}

// FetchPools runs every source and unions the successes. Result order
// follows source registration order, so output is deterministic for a fixed
// set of source responses.
func (f *FanOut) FetchPools(ctx context.Context) []domain.Pool {
	results := make([][]domain.Pool, len(f.srcs))
	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for i, src := range f.srcs {
		wg.Add(1)
		go func(i int, src sources.PoolSource) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			pools, err := src.FetchPools(ctx)
			elapsed := time.Since(start)
			if err != nil {
				observability.RecordSourceFetch(src.Name(), "error", elapsed.Seconds())
				f.logger.Printf("[aggregate] pool source %s failed: %v", src.Name(), err)
				return
			}
			observability.RecordSourceFetch(src.Name(), "ok", elapsed.Seconds())
			results[i] = pools
		}(i, src)
	}
	wg.Wait()

	var out []domain.Pool
	for _, pools := range results {
		out = append(out, pools...)
	}
	return out
}
