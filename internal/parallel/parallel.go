// Package parallel splits index ranges across goroutines for the decode loops
// that widen half precision and quantized weights.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how a range is split.
type Config struct {
	Workers  int // Maximum number of goroutines; <= 1 runs inline.
	MinChunk int // Minimum indices per goroutine.
}

// DefaultConfig uses one worker per CPU and chunks of at least 4096 indices.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		MinChunk: 4096,
	}
}

// Chunks calls f(start, end) over disjoint sub-ranges covering [0, n) and waits
// for all of them. Ranges smaller than two chunks run inline on the caller.
func Chunks(n int, cfg Config, f func(start, end int)) {
	if n <= 0 {
		return
	}
	minChunk := max(cfg.MinChunk, 1)
	if cfg.Workers <= 1 || n < 2*minChunk {
		f(0, n)
		return
	}

	size := max((n+cfg.Workers-1)/cfg.Workers, minChunk)

	var wg sync.WaitGroup
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}

// For calls f(i) for every i in [0, n).
func For(n int, cfg Config, f func(i int)) {
	Chunks(n, cfg, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	})
}
