package task

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskQueue(t *testing.T) {
	queue := NewTaskQueue(10, testLogger())

	assert.NotNil(t, queue)
	assert.Equal(t, 10, cap(queue.tasks))
	assert.False(t, queue.closed)

	// A zero size would make every Enqueue fail
	assert.Equal(t, 1, cap(NewTaskQueue(0, testLogger()).tasks))
}

func TestEnqueue(t *testing.T) {
	queue := NewTaskQueue(2, testLogger())

	require.NoError(t, queue.Enqueue(newFakeTask()))
	require.NoError(t, queue.Enqueue(newFakeTask()))
	assert.Equal(t, 2, queue.Len())

	overflow := newFakeTask()
	err := queue.Enqueue(overflow)
	assert.ErrorIs(t, err, ErrQueueFull)

	<-queue.tasks
	assert.NoError(t, queue.Enqueue(overflow))
}

func TestClose(t *testing.T) {
	queue := NewTaskQueue(10, testLogger())

	task := newFakeTask()
	require.NoError(t, queue.Enqueue(task))

	queue.Close()
	queue.Close()
	assert.True(t, queue.closed)

	assert.ErrorIs(t, queue.Enqueue(newFakeTask()), ErrQueueClosed)

	received := <-queue.GetChannel()
	assert.Equal(t, task.ID(), received.ID())

	select {
	case _, ok := <-queue.GetChannel():
		assert.False(t, ok, "channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for closed channel read")
	}
}

func TestConcurrentEnqueue(t *testing.T) {
	queue := NewTaskQueue(100, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, queue.Enqueue(newFakeTask()))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, queue.Len())
}

func TestCloseDuringEnqueue(t *testing.T) {
	queue := NewTaskQueue(100, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := queue.Enqueue(newFakeTask()); err != nil {
					assert.ErrorIs(t, err, ErrQueueClosed)
				}
			}
		}()
	}
	queue.Close()
	wg.Wait()
}
