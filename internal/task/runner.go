package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can go without a status update
	// in processing state before it's considered stuck and reset. Running
	// tasks refresh their status every third of this age.
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner manages background task processing. Tasks are persisted before
// they are queued, and every status transition is written back to the store.
type TaskRunner struct {
	store     TaskStore
	queue     *TaskQueue
	pool      *WorkerPool
	config    TaskRunnerConfig
	logger    *slog.Logger
	wg        sync.WaitGroup
	mu        sync.RWMutex
	factories map[string]Factory

	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)

	r := &TaskRunner{
		store:     store,
		queue:     queue,
		pool:      pool,
		config:    config,
		logger:    logger,
		factories: make(map[string]Factory),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}

	pool.SetHandler(r.processTask)
	pool.SetErrorHandler(func(task Task, err error) {
		r.errHandler(task, err)
	})

	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// RegisterFactory makes tasks of f.Type() recoverable from the store.
func (r *TaskRunner) RegisterFactory(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Type()] = f
}

// Submit adds a new task to the queue
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start initializes the worker pool and begins processing tasks
func (r *TaskRunner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the task runner. Tasks interrupted by Stop stay
// in processing state and are picked up again by the next Recover.
func (r *TaskRunner) Stop() {
	r.pool.Stop()
	r.wg.Wait()
	r.queue.Close()
}

// Recover loads any unfinished tasks from the database
func (r *TaskRunner) Recover() error {
	ctx := context.Background()

	pendingTasks, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Processing tasks were interrupted by a crash or shutdown
	processingTasks, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pendingTasks),
		"processing_count", len(processingTasks))

	for _, task := range pendingTasks {
		r.requeue(ctx, task, "pending")
	}

	for _, task := range processingTasks {
		if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
			continue
		}
		r.requeue(ctx, task, "processing")
	}

	return nil
}

// requeue rebuilds a stored task through its factory and puts it back on the
// queue. Tasks whose payload can no longer be decoded are marked failed.
func (r *TaskRunner) requeue(ctx context.Context, stored Task, origin string) {
	logger := r.logger.With(
		"task_id", stored.ID(),
		"task_type", stored.Type(),
		"origin", origin,
	)

	task, err := r.rehydrate(stored)
	if err != nil {
		logger.Error("failed to rebuild task from payload", "error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, stored.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		return
	}

	if err := r.queue.Enqueue(task); err != nil {
		logger.Error("failed to requeue task", "error", err)
		return
	}
	logger.Info("requeued task")
}

func (r *TaskRunner) rehydrate(task Task) (Task, error) {
	r.mu.RLock()
	f, ok := r.factories[task.Type()]
	r.mu.RUnlock()
	if !ok {
		return task, nil
	}
	return f.FromPayload(task.ID(), task.Payload())
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) error {
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return nil
	}

	logger.Info("processing task")
	start := time.Now()

	stopHeartbeat := r.heartbeat(ctx, task.ID(), logger)
	err := execute(ctx, task)
	stopHeartbeat()
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			logger.Warn("task interrupted by shutdown", "duration_ms", time.Since(start).Milliseconds())
			return nil
		}

		// Status updates use a fresh context so they land even if ctx is done
		if updateErr := r.store.UpdateTaskStatus(context.Background(), task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		return err
	}

	logger.Info("task completed successfully", "duration_ms", time.Since(start).Milliseconds())
	if updateErr := r.store.UpdateTaskStatus(context.Background(), task.ID(), TaskStatusCompleted, ""); updateErr != nil {
		logger.Error("failed to update task status to completed", "error", updateErr)
	}
	return nil
}

// heartbeat keeps a running task's status fresh so the stuck task monitor
// only resets tasks whose worker has gone away. The returned func stops it
// and waits for the last refresh to finish.
func (r *TaskRunner) heartbeat(ctx context.Context, taskID uuid.UUID, logger *slog.Logger) func() {
	interval := r.config.StuckTaskAge / 3
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.store.UpdateTaskStatus(ctx, taskID, TaskStatusProcessing, ""); err != nil {
					logger.Warn("failed to refresh task heartbeat", "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}

// stuckTaskMonitor periodically checks for tasks that have been in "processing"
// state for too long and resets them
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	done := r.pool.Context().Done()
	for {
		select {
		case <-done:
			return

		case <-ticker.C:
			ctx := context.Background()

			stuckTasks, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}
			if len(stuckTasks) == 0 {
				continue
			}

			r.logger.Info("found stuck tasks", "count", len(stuckTasks))
			for _, task := range stuckTasks {
				if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusPending,
					"Reset after being stuck in processing state"); err != nil {
					r.logger.Error("failed to reset stuck task status",
						"task_id", task.ID(),
						"task_type", task.Type(),
						"error", err)
					continue
				}
				r.requeue(ctx, task, "stuck")
			}
		}
	}
}
