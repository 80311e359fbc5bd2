package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the persisted lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeImageGeneration renders every shot of one generation as a batch.
const TaskTypeImageGeneration = "image_generation"

// Task is a unit of background work. Payload must carry everything a
// Factory needs to rebuild the task after a restart.
type Task interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// Factory rebuilds executable tasks of one type from their persisted
// payload. The runner uses it for tasks loaded back from the store.
type Factory interface {
	Type() string
	FromPayload(id uuid.UUID, payload []byte) (Task, error)
}

// TaskQueueReader gives workers the consuming end of the queue.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskStore persists tasks so unfinished work survives a restart.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks returns tasks that were saved but never started.
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks returns tasks in processing state. A non-zero
	// olderThan limits the result to tasks not updated for that long.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)
}
