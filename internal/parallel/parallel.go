// Package parallel splits index ranges across goroutines for the native kernels.
package parallel

import (
	"golang.org/x/sync/errgroup"

	"github.com/YoshimuraKazumasa/chainer/internal/envconfig"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of goroutines in flight.
	MinChunkSize int  // Minimum number of items handled by one goroutine.
	Threshold    int  // Ranges shorter than this run sequentially.
}

// DefaultConfig derives the configuration from XCHAINER_NUM_THREADS and
// XCHAINER_PARALLEL_THRESHOLD.
func DefaultConfig() Config {
	n := envconfig.NumThreads
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1024,
		Threshold:    envconfig.ParallelThreshold,
	}
}

// For executes f(start, end) over disjoint chunks covering [0, n).
// Every chunk has finished when For returns.
func For(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.Threshold {
		f(0, n)
		return
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		s, e := start, min(start+chunkSize, n)
		g.Go(func() error {
			f(s, e)
			return nil
		})
	}
	_ = g.Wait()
}

// Each executes f(i) for every i in [0, n).
func Each(n int, f func(i int), cfg Config) {
	For(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}
