// Package parallel provides the fork-join index-range executor used by layer
// kernels for per-sample and per-element work.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16,
	}
}

// Executor runs bodies over index ranges. A nil *Executor is valid and runs
// everything on the calling goroutine.
type Executor struct {
	cfg Config
}

// New creates an executor. Non-positive worker or chunk settings are clamped to 1.
func New(cfg Config) *Executor {
	if cfg.NumWorkers < 1 {
		cfg.NumWorkers = 1
	}
	if cfg.MinChunkSize < 1 {
		cfg.MinChunkSize = 1
	}
	return &Executor{cfg: cfg}
}

// Sequential returns an executor that never spawns goroutines.
func Sequential() *Executor {
	return New(Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1})
}

// Config returns the executor configuration.
func (e *Executor) Config() Config {
	if e == nil {
		return Config{NumWorkers: 1, MinChunkSize: 1}
	}
	return e.cfg
}

// For executes body(i) for i in [begin, end). When parallel is true and the
// executor allows it, the range is split in chunks run on separate goroutines.
// Iterations are unordered; For returns only after all of them completed.
func (e *Executor) For(parallel bool, begin, end int, body func(i int)) {
	n := end - begin
	if n <= 0 {
		return
	}
	if e == nil || !parallel || !e.cfg.Enabled || e.cfg.NumWorkers < 2 || n < e.cfg.MinChunkSize {
		for i := begin; i < end; i++ {
			body(i)
		}
		return
	}

	chunkSize := max((n+e.cfg.NumWorkers-1)/e.cfg.NumWorkers, e.cfg.MinChunkSize)

	var wg sync.WaitGroup
	for start := begin; start < end; start += chunkSize {
		stop := min(start+chunkSize, end)
		wg.Add(1)
		go func(s, t int) {
			defer wg.Done()
			for i := s; i < t; i++ {
				body(i)
			}
		}(start, stop)
	}
	wg.Wait()
}
