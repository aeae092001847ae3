package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunsAllFunctions(t *testing.T) {
	exec := NewConcurrentExecutor(2)
	var calls atomic.Int32

	fns := make([]func() error, 10)
	for i := range fns {
		fns[i] = func() error {
			calls.Add(1)
			return nil
		}
	}

	errs := exec.Execute(context.Background(), fns...)
	require.Len(t, errs, 10)
	assert.NoError(t, FirstError(errs))
	assert.Equal(t, int32(10), calls.Load())
}

func TestExecutePreservesOrder(t *testing.T) {
	exec := NewConcurrentExecutor(4)
	boom := errors.New("boom")

	errs := exec.Execute(context.Background(),
		func() error { return nil },
		func() error { return boom },
		func() error { return nil },
	)
	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
	assert.ErrorIs(t, FirstError(errs), boom)
}

func TestExecuteRecoversPanics(t *testing.T) {
	exec := NewConcurrentExecutor(1)

	errs := exec.Execute(context.Background(),
		func() error { panic("kaboom") },
		func() error { return nil },
	)
	require.Len(t, errs, 2)
	var panicErr *PanicError
	require.ErrorAs(t, errs[0], &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NoError(t, errs[1])
}

func TestExecuteHonorsCancellation(t *testing.T) {
	exec := NewConcurrentExecutor(1)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan []error, 1)
	go func() {
		done <- exec.Execute(ctx,
			func() error { close(started); <-release; return nil },
			func() error { return nil },
		)
	}()

	<-started
	cancel()
	close(release)

	errs := <-done
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0], "a running function completes")
	assert.ErrorIs(t, errs[1], context.Canceled, "a queued function is abandoned")
}
