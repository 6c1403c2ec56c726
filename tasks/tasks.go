package tasks

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Foreach runs fn over every item with at most workers goroutines, and never
// aborts on failure: every failure is counted, handed to onFailure (if set),
// and swallowed. Returns the number of failed items.
//
// Context cancellation only stops scheduling of new items, items already
// running are left to finish.
func Foreach[T any](ctx context.Context, items []T, workers int, onFailure func(item T, err error), fn func(ctx context.Context, item T) error) int {
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var failures int64

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(ctx, item); err != nil {
				atomic.AddInt64(&failures, 1)
				if onFailure != nil {
					onFailure(item, err)
				}
			}
		}(item)
	}

	wg.Wait()
	return int(failures)
}

// All runs fn over every item with at most workers goroutines and fails fast:
// the first error cancels the remaining work and is returned.
func All[T any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, item T) error) error {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(ctx, item)
		})
	}
	return g.Wait()
}
