package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Run executes fn once per index in [0, n) using a worker pool of the given
// size and returns the first error encountered. workers <= 0 selects a single
// worker, which preserves strictly sequential upstream access. Workers stop
// early on error or context cancellation; indices already claimed still finish.
func Run(ctx context.Context, n, workers int, fn func(ctx context.Context, index int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	indices := make(chan int, n)
	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)

	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0

			for i := range indices {
				select {
				case <-ctx.Done():
					log.Debug().
						Int("worker_id", workerID).
						Int("chunks_processed", processed).
						Msg("Worker stopping (context cancelled)")
					return
				default:
				}

				if err := fn(ctx, i); err != nil {
					log.Warn().
						Err(err).
						Int("worker_id", workerID).
						Int("chunk", i).
						Msg("Chunk failed")

					// Non-blocking: only the first error is reported
					select {
					case errs <- err:
					default:
					}
					return
				}

				processed++
			}
		}(w)
	}

	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return err
	}

	return ctx.Err()
}
