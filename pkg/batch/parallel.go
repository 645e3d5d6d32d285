package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// inlineThreshold is the input size at or below which ParallelMap runs
// serially; pool overhead is not worth it for tiny inputs.
const inlineThreshold = 3

// ParallelMap applies fn to every item using at most workers concurrent
// goroutines. Output order matches input order regardless of completion
// order; a failed item yields a nil result at its position and never
// cancels its siblings.
func ParallelMap[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) []*R {
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	results := make([]*R, len(items))

	if len(items) <= inlineThreshold {
		for i, item := range items {
			results[i] = applyOne(ctx, i, item, fn)
		}
		return results
	}

	log.Debug().
		Int("items", len(items)).
		Int("workers", workers).
		Msg("Starting parallel map")

	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				select {
				case <-ctx.Done():
					return
				default:
				}
				// Workers own disjoint result positions, so no lock
				// is needed around the slice writes.
				results[i] = applyOne(ctx, i, items[i], fn)
			}
		}()
	}
	wg.Wait()

	return results
}

// applyOne runs fn for a single item, converting failures and panics
// into a nil result.
func applyOne[T, R any](ctx context.Context, index int, item T, fn func(context.Context, T) (R, error)) (out *R) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int("index", index).Any("panic", r).Msg("Parallel task panicked")
			out = nil
		}
	}()

	value, err := fn(ctx, item)
	if err != nil {
		log.Warn().Err(err).Int("index", index).Msg("Parallel task failed")
		return nil
	}
	return &value
}

// Concurrency returns the engine's configured worker bound, for
// callers driving ParallelMap with engine settings.
func (e *Engine) Concurrency() int {
	return e.config.Concurrency
}
