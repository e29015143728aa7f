// Package dataflow runs channel based processing stages with bounded workers.
package dataflow

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// From emits items in order on a channel that is closed once every item is
// sent or ctx is done.
func From[T any](ctx context.Context, items ...T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, item := range items {
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Map applies fn to every item of in. Failing calls are retried per WithRetry.
// An item that still fails goes to the error handler: true drops the item,
// false (or no handler) stops the stage. With more than one worker the output
// order is not preserved.
//
// The returned wait func blocks until the output is closed and returns the
// error that stopped the stage, if any. Drain the output or cancel ctx before
// calling it.
func Map[In, Out any](ctx context.Context, in <-chan In, fn func(In) (Out, error), opts ...Option) (<-chan Out, func() error) {
	cfg := newConfig(opts)
	out := make(chan Out, cfg.bufferSize)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case item, ok := <-in:
					if !ok {
						return nil
					}
					result, err := withRetry(gctx, cfg, func() (Out, error) { return fn(item) })
					if err != nil {
						if cfg.errorHandler != nil && cfg.errorHandler(err) {
							continue
						}
						return err
					}
					select {
					case out <- result:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
		})
	}

	var stageErr error
	done := make(chan struct{})
	go func() {
		stageErr = g.Wait()
		close(out)
		close(done)
	}()
	return out, func() error {
		<-done
		return stageErr
	}
}

// ForEach calls fn for every item of in and returns the first error fn
// returns, after retries. Cancel ctx to release upstream stages on error.
func ForEach[T any](ctx context.Context, in <-chan T, fn func(T) error, opts ...Option) error {
	cfg := newConfig(opts)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case item, ok := <-in:
					if !ok {
						return nil
					}
					_, err := withRetry(gctx, cfg, func() (struct{}, error) { return struct{}{}, fn(item) })
					if err != nil {
						if cfg.errorHandler != nil && cfg.errorHandler(err) {
							continue
						}
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}

func withRetry[T any](ctx context.Context, cfg *config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 && cfg.backoff != nil {
			select {
			case <-time.After(cfg.backoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
