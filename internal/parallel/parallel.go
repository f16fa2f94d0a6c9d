// Package parallel runs independent jobs on a bounded number of
// goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how many jobs run at once.
type Config struct {
	// NumWorkers is the number of worker goroutines. Values below 2 run
	// every job on the calling goroutine.
	NumWorkers int
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	return Config{NumWorkers: runtime.NumCPU()}
}

// For calls f(i) for every i in [0, n). Jobs are handed out one at a time,
// so a slow job does not hold back a whole chunk.
func For(n int, f func(i int), cfg Config) {
	workers := min(cfg.NumWorkers, n)
	if workers < 2 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				f(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// Errors calls f(i) for every i in [0, n) and returns the results by
// index. Every job runs even when earlier ones fail.
func Errors(n int, f func(i int) error, cfg Config) []error {
	errs := make([]error, n)
	For(n, func(i int) { errs[i] = f(i) }, cfg)
	return errs
}
