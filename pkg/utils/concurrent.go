package utils

import (
	"context"
	"sync"
)

// DefaultConcurrency bounds executor parallelism when no explicit limit is
// given.
const DefaultConcurrency = 8

// ConcurrentExecutor runs functions concurrently under a semaphore. Panics
// inside submitted functions surface as PanicError results instead of
// crashing the process.
type ConcurrentExecutor struct {
	semaphore chan struct{}
}

// NewConcurrentExecutor builds an executor allowing at most maxConcurrency
// functions in flight; non-positive values fall back to DefaultConcurrency.
func NewConcurrentExecutor(maxConcurrency int) *ConcurrentExecutor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultConcurrency
	}
	return &ConcurrentExecutor{semaphore: make(chan struct{}, maxConcurrency)}
}

// Execute runs the functions concurrently and returns one error slot per
// function, in submission order. A cancelled context fails the functions
// still waiting for a semaphore slot; functions already running complete.
func (e *ConcurrentExecutor) Execute(ctx context.Context, functions ...func() error) []error {
	if len(functions) == 0 {
		return nil
	}

	results := make([]error, len(functions))
	var wg sync.WaitGroup

	for i, fn := range functions {
		wg.Add(1)
		go func(index int, function func() error) {
			defer wg.Done()
			defer RecoverWithCallback(func(err error) {
				results[index] = err
			})

			select {
			case e.semaphore <- struct{}{}:
			case <-ctx.Done():
				results[index] = ctx.Err()
				return
			}
			defer func() { <-e.semaphore }()

			// Acquisition races with cancellation when both are ready;
			// a cancelled context always wins.
			if err := ctx.Err(); err != nil {
				results[index] = err
				return
			}

			results[index] = function()
		}(i, fn)
	}

	wg.Wait()
	return results
}

// FirstError returns the first non-nil error from an Execute result.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
