package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsAllTasksBeforeShutdownReturns(t *testing.T) {
	wp := NewWorkerPool(3, zerolog.Nop())

	var done atomic.Int32
	for i := 0; i < 50; i++ {
		assert.True(t, wp.Submit(func(ctx context.Context) error {
			done.Add(1)
			return nil
		}))
	}
	wp.Shutdown()

	assert.Equal(t, int32(50), done.Load())
}

func TestWorkerPool_FailingTaskDoesNotStopWorker(t *testing.T) {
	wp := NewWorkerPool(1, zerolog.Nop())

	var done atomic.Int32
	wp.Submit(func(ctx context.Context) error { return errors.New("boom") })
	wp.Submit(func(ctx context.Context) error {
		done.Add(1)
		return nil
	})
	wp.Shutdown()

	assert.Equal(t, int32(1), done.Load())
}

func TestWorkerPool_SubmitAfterShutdownIsDropped(t *testing.T) {
	wp := NewWorkerPool(1, zerolog.Nop())
	wp.Shutdown()

	assert.False(t, wp.Submit(func(ctx context.Context) error { return nil }))
	assert.NotPanics(t, wp.Shutdown)
}

func TestWorkerPool_FullQueueDrops(t *testing.T) {
	wp := NewWorkerPoolWithQueue(1, 1, zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	wp.Submit(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	assert.True(t, wp.Submit(func(ctx context.Context) error { return nil }))
	assert.False(t, wp.Submit(func(ctx context.Context) error { return nil }))

	close(release)
	wp.Shutdown()
}
