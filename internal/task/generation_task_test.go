package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerationTask(t *testing.T) {
	executor := newRecordingExecutor()

	tests := []struct {
		name         string
		generationID uuid.UUID
		executor     GenerationExecutor
		wantErr      string
	}{
		{"valid", uuid.New(), executor, ""},
		{"nil generation", uuid.Nil, executor, "generation ID cannot be nil"},
		{"nil executor", uuid.New(), nil, "generation executor cannot be nil"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task, err := NewGenerationTask(tc.generationID, tc.executor, testLogger())
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, task.ID())
			assert.Equal(t, TaskTypeImageGeneration, task.Type())
			assert.Equal(t, TaskStatusPending, task.Status())
			assert.Equal(t, tc.generationID, task.GenerationID())
		})
	}

	_, err := NewGenerationTask(uuid.New(), executor, nil)
	assert.EqualError(t, err, "logger cannot be nil")
}

func TestGenerationTask_Payload(t *testing.T) {
	id := uuid.New()
	task, err := NewGenerationTask(id, newRecordingExecutor(), testLogger())
	require.NoError(t, err)

	var p GenerationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, id, p.GenerationID)
}

func TestGenerationTask_Execute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		executor := newRecordingExecutor()
		id := uuid.New()
		task, err := NewGenerationTask(id, executor, testLogger())
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))
		assert.Equal(t, TaskStatusCompleted, task.Status())
		assert.Equal(t, []uuid.UUID{id}, executor.calls)
	})

	t.Run("failure", func(t *testing.T) {
		executor := newRecordingExecutor()
		executor.err = errors.New("model unavailable")
		task, err := NewGenerationTask(uuid.New(), executor, testLogger())
		require.NoError(t, err)

		err = task.Execute(context.Background())
		assert.ErrorIs(t, err, executor.err)
		assert.Equal(t, TaskStatusFailed, task.Status())
	})
}

func TestGenerationTaskFactory(t *testing.T) {
	executor := newRecordingExecutor()
	factory := NewGenerationTaskFactory(executor, testLogger())
	assert.Equal(t, TaskTypeImageGeneration, factory.Type())

	generationID := uuid.New()
	created, err := factory.CreateTask(generationID)
	require.NoError(t, err)

	rebuilt, err := factory.FromPayload(created.ID(), created.Payload())
	require.NoError(t, err)
	assert.Equal(t, created.ID(), rebuilt.ID())
	assert.Equal(t, generationID, rebuilt.(*GenerationTask).GenerationID())

	_, err = factory.FromPayload(uuid.New(), []byte("{"))
	assert.ErrorContains(t, err, "invalid generation task payload")

	_, err = factory.FromPayload(uuid.New(), []byte(`{}`))
	assert.ErrorContains(t, err, "generation ID cannot be nil")
}
