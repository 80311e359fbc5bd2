package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// GenerationTaskFactory builds generation tasks for new requests and for
// tasks recovered from the store.
type GenerationTaskFactory struct {
	executor GenerationExecutor
	logger   *slog.Logger
}

var _ Factory = (*GenerationTaskFactory)(nil)

// NewGenerationTaskFactory creates a factory bound to the given executor.
func NewGenerationTaskFactory(executor GenerationExecutor, logger *slog.Logger) *GenerationTaskFactory {
	return &GenerationTaskFactory{
		executor: executor,
		logger:   logger,
	}
}

// Type returns TaskTypeImageGeneration.
func (f *GenerationTaskFactory) Type() string {
	return TaskTypeImageGeneration
}

// CreateTask creates a new task for the generation.
func (f *GenerationTaskFactory) CreateTask(generationID uuid.UUID) (Task, error) {
	return NewGenerationTask(generationID, f.executor, f.logger)
}

// FromPayload rebuilds a stored task, keeping its original ID.
func (f *GenerationTaskFactory) FromPayload(id uuid.UUID, payload []byte) (Task, error) {
	var p GenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid generation task payload: %w", err)
	}

	t, err := NewGenerationTask(p.GenerationID, f.executor, f.logger)
	if err != nil {
		return nil, err
	}
	t.id = id
	return t, nil
}
