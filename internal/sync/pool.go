package sync

import (
	"context"
	stdsync "sync"
)

// runJobs runs fn for every symbol using at most workers goroutines and
// returns the per-symbol outcome. A cancelled context fails the
// remaining jobs with the context error.
func runJobs(ctx context.Context, symbols []string, workers int, fn func(context.Context, string) error) map[string]error {
	if workers > len(symbols) {
		workers = len(symbols)
	}

	jobs := make(chan string)
	errs := make(map[string]error, len(symbols))

	var mu stdsync.Mutex
	var wg stdsync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				err := ctx.Err()
				if err == nil {
					err = fn(ctx, symbol)
				}
				mu.Lock()
				errs[symbol] = err
				mu.Unlock()
			}
		}()
	}

	for _, symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()

	return errs
}
