package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanQueue struct {
	ch chan Task
}

func newChanQueue() *chanQueue {
	return &chanQueue{ch: make(chan Task, 10)}
}

func (q *chanQueue) GetChannel() <-chan Task {
	return q.ch
}

func TestNewWorkerPool(t *testing.T) {
	queue := newChanQueue()

	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 5}, testLogger())
	assert.Equal(t, 5, pool.workerCount)
	assert.Nil(t, pool.errorHandler)
	assert.NotNil(t, pool.handle)

	for _, n := range []int{0, -5} {
		pool = NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: n}, testLogger())
		assert.Equal(t, 1, pool.workerCount)
	}
}

func TestWorkerPool_ExecutesTasks(t *testing.T) {
	queue := newChanQueue()
	pool := NewWorkerPool(queue, DefaultWorkerPoolConfig(), testLogger())
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	task := newFakeTask()
	task.execFn = func(ctx context.Context) error {
		close(done)
		return nil
	}
	queue.ch <- task

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task to complete")
	}
}

func TestWorkerPool_CustomHandler(t *testing.T) {
	queue := newChanQueue()
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, testLogger())

	seen := make(chan int, 1)
	pool.SetHandler(func(ctx context.Context, task Task, workerID int) error {
		seen <- workerID
		return nil
	})
	pool.SetHandler(nil)
	pool.Start()
	defer pool.Stop()

	queue.ch <- newFakeTask()

	select {
	case id := <-seen:
		assert.Equal(t, 0, id)
	case <-time.After(time.Second):
		t.Fatal("custom handler was not called")
	}
}

func TestWorkerPool_ErrorHandler(t *testing.T) {
	queue := newChanQueue()
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, testLogger())

	handled := make(chan error, 2)
	pool.SetErrorHandler(func(task Task, err error) {
		handled <- err
	})
	pool.Start()
	defer pool.Stop()

	expected := errors.New("test error")
	failing := newFakeTask()
	failing.execFn = func(ctx context.Context) error { return expected }
	panicking := newFakeTask()
	panicking.execFn = func(ctx context.Context) error { panic("kaboom") }

	queue.ch <- failing
	queue.ch <- panicking

	for i, check := range []func(error){
		func(err error) { assert.ErrorIs(t, err, expected) },
		func(err error) { assert.Contains(t, err.Error(), "kaboom") },
	} {
		select {
		case err := <-handled:
			check(err)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for error %d", i)
		}
	}
}

func TestWorkerPool_StopCancelsInFlight(t *testing.T) {
	queue := newChanQueue()
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 2}, testLogger())
	pool.Start()

	var cancelled atomic.Int32
	started := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		task := newFakeTask()
		task.execFn = func(ctx context.Context) error {
			started <- struct{}{}
			<-ctx.Done()
			cancelled.Add(1)
			return ctx.Err()
		}
		queue.ch <- task
	}
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("workers did not pick up tasks")
		}
	}

	pool.Stop()
	require.Equal(t, int32(2), cancelled.Load())
	assert.Error(t, pool.Context().Err())
}

func TestWorkerPool_ExitsWhenQueueCloses(t *testing.T) {
	queue := NewTaskQueue(1, testLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 3}, testLogger())
	pool.Start()

	queue.Close()

	stopped := make(chan struct{})
	go func() {
		pool.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("workers did not exit after queue closed")
	}
	pool.Stop()
}
