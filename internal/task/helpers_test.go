package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// fakeTask is a Task whose behavior is set per test.
type fakeTask struct {
	mu       sync.Mutex
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
	execFn   func(ctx context.Context) error
}

func newFakeTask() *fakeTask {
	return &fakeTask{
		id:       uuid.New(),
		taskType: "fake",
		payload:  []byte(`{"message":"test"}`),
		status:   TaskStatusPending,
	}
}

func (t *fakeTask) ID() uuid.UUID   { return t.id }
func (t *fakeTask) Type() string    { return t.taskType }
func (t *fakeTask) Payload() []byte { return t.payload }

func (t *fakeTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *fakeTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

func (t *fakeTask) Execute(ctx context.Context) error {
	if t.execFn != nil {
		return t.execFn(ctx)
	}
	return nil
}

// memoryTaskStore is an in-memory TaskStore.
type memoryTaskStore struct {
	mu          sync.RWMutex
	tasks       map[uuid.UUID]*fakeTask
	statusTimes map[uuid.UUID]time.Time
	errors      map[uuid.UUID]string

	SaveFn func(ctx context.Context, task Task) error
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{
		tasks:       make(map[uuid.UUID]*fakeTask),
		statusTimes: make(map[uuid.UUID]time.Time),
		errors:      make(map[uuid.UUID]string),
	}
}

func (s *memoryTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, task)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := task.(*fakeTask)
	if !ok {
		stored = &fakeTask{
			id:       task.ID(),
			taskType: task.Type(),
			payload:  task.Payload(),
			status:   task.Status(),
		}
	}
	s.tasks[task.ID()] = stored
	s.statusTimes[task.ID()] = time.Now()
	return nil
}

func (s *memoryTaskStore) UpdateTaskStatus(_ context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	stored.setStatus(status)
	s.statusTimes[taskID] = time.Now()
	s.errors[taskID] = errorMsg
	return nil
}

func (s *memoryTaskStore) GetPendingTasks(_ context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Task
	for _, t := range s.tasks {
		if t.Status() == TaskStatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Task
	now := time.Now()
	for id, t := range s.tasks {
		if t.Status() != TaskStatusProcessing {
			continue
		}
		if olderThan == 0 || now.Sub(s.statusTimes[id]) > olderThan {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryTaskStore) status(id uuid.UUID) TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tasks[id]; ok {
		return t.Status()
	}
	return ""
}

func (s *memoryTaskStore) backdate(id uuid.UUID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusTimes[id] = time.Now().Add(-d)
}

// recordingExecutor records the generations it was asked to run.
type recordingExecutor struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
	done  chan uuid.UUID
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{done: make(chan uuid.UUID, 10)}
}

func (e *recordingExecutor) ExecuteGeneration(_ context.Context, id uuid.UUID) error {
	e.mu.Lock()
	e.calls = append(e.calls, id)
	e.mu.Unlock()
	e.done <- id
	return e.err
}
