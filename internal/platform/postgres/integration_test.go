package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/store"
	"github.com/phrazzld/studio-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to STUDIO_TEST_DATABASE_URL, migrates it and returns a
// transaction that is rolled back when the test ends.
func openTestDB(t *testing.T) (*sql.DB, *sql.Tx) {
	t.Helper()

	dbURL := os.Getenv("STUDIO_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test - STUDIO_TEST_DATABASE_URL environment variable required")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, Migrate(ctx, db, "up", discardLogger()))

	tx, err := db.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })

	return db, tx
}

func TestIntegration_GenerationLifecycle(t *testing.T) {
	_, tx := openTestDB(t)
	ctx := context.Background()

	generations := NewPostgresGenerationStore(tx, discardLogger())
	artifacts := NewPostgresArtifactStore(tx, discardLogger())
	credits := NewPostgresCreditStore(tx, discardLogger())

	g := newTestGeneration(t)
	require.NoError(t, generations.Create(ctx, g))

	grant, err := domain.NewGrant(g.UserID, 1000)
	require.NoError(t, err)
	require.NoError(t, credits.Append(ctx, grant))

	reservation, err := domain.NewReservation(g.UserID, g.ID, g.Cost)
	require.NoError(t, err)
	require.NoError(t, credits.Append(ctx, reservation))

	balance, err := credits.LockBalance(ctx, g.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1000-g.Cost, balance)

	require.NoError(t, generations.UpdateProgress(ctx, g.ID, 50))
	require.NoError(t, generations.UpdateProgress(ctx, g.ID, 25))

	got, err := generations.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress, "progress must not go backwards")
	assert.Equal(t, g.Prompts, got.Prompts)
	assert.Equal(t, g.Inputs.ProductImages, got.Inputs.ProductImages)

	now := time.Now().UTC()
	var batch []*domain.Artifact
	for _, shot := range g.Shots() {
		batch = append(batch, &domain.Artifact{
			GenerationID: g.ID,
			Index:        shot.Index,
			MIMEType:     "image/png",
			Data:         []byte{byte(shot.Index + 1)},
			Label:        shot.Prompt,
			CreatedAt:    now,
		})
	}
	require.NoError(t, artifacts.SaveAll(ctx, batch))
	require.NoError(t, generations.UpdateStatus(ctx, g.ID, domain.GenerationStatusCompleted, ""))

	got, err = generations.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	err = generations.UpdateStatus(ctx, g.ID, domain.GenerationStatusFailed, "late failure")
	assert.ErrorIs(t, err, store.ErrGenerationFinished)

	list, err := artifacts.List(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, list, g.TotalImages())

	a, err := artifacts.Get(ctx, g.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, a.Data)

	history, err := generations.ListByUser(ctx, g.UserID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, g.ID, history[0].ID)

	refund, err := domain.NewRefund(g.UserID, g.ID, g.Cost)
	require.NoError(t, err)
	require.NoError(t, credits.Append(ctx, refund))

	second, err := domain.NewRefund(g.UserID, g.ID, g.Cost)
	require.NoError(t, err)
	assert.ErrorIs(t, credits.Append(ctx, second), store.ErrDuplicate)
}

func TestIntegration_DeleteKeepsLedger(t *testing.T) {
	_, tx := openTestDB(t)
	ctx := context.Background()

	generations := NewPostgresGenerationStore(tx, discardLogger())
	credits := NewPostgresCreditStore(tx, discardLogger())

	g := newTestGeneration(t)
	require.NoError(t, generations.Create(ctx, g))
	grant, err := domain.NewGrant(g.UserID, 1000)
	require.NoError(t, err)
	require.NoError(t, credits.Append(ctx, grant))
	reservation, err := domain.NewReservation(g.UserID, g.ID, g.Cost)
	require.NoError(t, err)
	require.NoError(t, credits.Append(ctx, reservation))

	require.NoError(t, generations.Delete(ctx, g.ID))
	_, err = generations.GetByID(ctx, g.ID)
	assert.ErrorIs(t, err, store.ErrGenerationNotFound)

	balance, err := credits.Balance(ctx, g.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1000-g.Cost, balance, "deleting history must not change the balance")

	bonus, err := domain.NewDailyBonus(g.UserID, 100)
	require.NoError(t, err)
	require.NoError(t, credits.Append(ctx, bonus))
	again, err := domain.NewDailyBonus(g.UserID, 100)
	require.NoError(t, err)
	assert.ErrorIs(t, credits.Append(ctx, again), store.ErrDuplicate)
}

func TestIntegration_TaskStore(t *testing.T) {
	_, tx := openTestDB(t)
	ctx := context.Background()
	s := NewPostgresTaskStore(tx, discardLogger())

	pending := newTestTask()
	stuck := newTestTask()
	require.NoError(t, s.SaveTask(ctx, pending))
	require.NoError(t, s.SaveTask(ctx, stuck))
	require.NoError(t, s.UpdateTaskStatus(ctx, stuck.ID(), task.TaskStatusProcessing, ""))

	_, err := tx.ExecContext(ctx, "UPDATE tasks SET updated_at = $1 WHERE id = $2",
		time.Now().UTC().Add(-time.Hour), stuck.ID())
	require.NoError(t, err)

	pendingTasks, err := s.GetPendingTasks(ctx)
	require.NoError(t, err)
	assert.Contains(t, taskIDs(pendingTasks), pending.ID())
	assert.NotContains(t, taskIDs(pendingTasks), stuck.ID())

	old, err := s.GetProcessingTasks(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, taskIDs(old), stuck.ID())

	for _, st := range old {
		if st.ID() == stuck.ID() {
			// JSONB normalizes whitespace
			assert.JSONEq(t, string(stuck.Payload()), string(st.Payload()))
		}
	}
}

func taskIDs(tasks []task.Task) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID())
	}
	return ids
}
