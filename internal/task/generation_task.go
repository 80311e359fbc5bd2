package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/platform/logger"
)

// GenerationExecutor runs the full image batch for one generation.
type GenerationExecutor interface {
	ExecuteGeneration(ctx context.Context, generationID uuid.UUID) error
}

// GenerationPayload is the persisted payload of an image generation task.
type GenerationPayload struct {
	GenerationID uuid.UUID `json:"generation_id"`
}

// GenerationTask hands a stored generation to the executor.
type GenerationTask struct {
	id           uuid.UUID
	generationID uuid.UUID
	status       TaskStatus
	executor     GenerationExecutor
	logger       *slog.Logger
}

var _ Task = (*GenerationTask)(nil)

// NewGenerationTask creates a pending task for the given generation.
func NewGenerationTask(
	generationID uuid.UUID,
	executor GenerationExecutor,
	logger *slog.Logger,
) (*GenerationTask, error) {
	if generationID == uuid.Nil {
		return nil, fmt.Errorf("generation ID cannot be nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("generation executor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &GenerationTask{
		id:           uuid.New(),
		generationID: generationID,
		status:       TaskStatusPending,
		executor:     executor,
		logger:       logger.With("component", "generation_task"),
	}, nil
}

// ID returns the task's unique identifier
func (t *GenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *GenerationTask) Type() string {
	return TaskTypeImageGeneration
}

// GenerationID returns the generation this task works on.
func (t *GenerationTask) GenerationID() uuid.UUID {
	return t.generationID
}

// Payload returns the task data as a byte slice
func (t *GenerationTask) Payload() []byte {
	data, err := json.Marshal(GenerationPayload{GenerationID: t.generationID})
	if err != nil {
		t.logger.Error("failed to marshal task payload",
			"task_id", t.id,
			"error", err)
		return []byte("{}")
	}
	return data
}

// Status returns the current task status
func (t *GenerationTask) Status() TaskStatus {
	return t.status
}

// Execute runs the generation batch.
func (t *GenerationTask) Execute(ctx context.Context) error {
	log := t.logger.With(
		"task_id", t.id,
		"generation_id", t.generationID,
	)
	ctx = logger.WithLogger(ctx, log)

	t.status = TaskStatusProcessing
	if err := t.executor.ExecuteGeneration(ctx, t.generationID); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("generation %s: %w", t.generationID, err)
	}

	t.status = TaskStatusCompleted
	return nil
}
