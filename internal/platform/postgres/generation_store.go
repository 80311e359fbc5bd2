package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/store"
)

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the
// GenerationStore interface. If logger is nil, a default logger will be used.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// WithTx implements store.GenerationStore.WithTx
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.GenerationStore.Create
func (s *PostgresGenerationStore) Create(ctx context.Context, g *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := g.Validate(); err != nil {
		log.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()))
		return err
	}

	prompts, err := json.Marshal(g.Prompts)
	if err != nil {
		return fmt.Errorf("failed to encode prompts: %w", err)
	}
	inputs, err := json.Marshal(g.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}

	query := `
		INSERT INTO generations (
			id, user_id, mode, size, aspect_ratio, prompts, count_per_prompt,
			inputs, cost, status, progress, error_message, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(ctx, query,
		g.ID,
		g.UserID,
		g.Mode,
		g.Size,
		g.AspectRatio,
		prompts,
		g.CountPerPrompt,
		inputs,
		g.Cost,
		g.Status,
		g.Progress,
		nullString(g.ErrorMessage),
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()),
			slog.String("user_id", g.UserID.String()))
		return MapError(err)
	}

	log.Info("generation created",
		slog.String("generation_id", g.ID.String()),
		slog.String("user_id", g.UserID.String()),
		slog.String("mode", string(g.Mode)),
		slog.Int("images", g.TotalImages()))
	return nil
}

// GetByID implements store.GenerationStore.GetByID
func (s *PostgresGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, mode, size, aspect_ratio, prompts, count_per_prompt,
			inputs, cost, status, progress, error_message, created_at, updated_at
		FROM generations
		WHERE id = $1
	`

	var (
		g            domain.Generation
		prompts      []byte
		inputs       []byte
		errorMessage sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.UserID,
		&g.Mode,
		&g.Size,
		&g.AspectRatio,
		&prompts,
		&g.CountPerPrompt,
		&inputs,
		&g.Cost,
		&g.Status,
		&g.Progress,
		&errorMessage,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("generation not found", slog.String("generation_id", id.String()))
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return nil, MapError(err)
	}

	if err := json.Unmarshal(prompts, &g.Prompts); err != nil {
		return nil, fmt.Errorf("failed to decode prompts of generation %s: %w", id, err)
	}
	if err := json.Unmarshal(inputs, &g.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs of generation %s: %w", id, err)
	}
	g.ErrorMessage = errorMessage.String

	return &g, nil
}

// UpdateStatus implements store.GenerationStore.UpdateStatus
func (s *PostgresGenerationStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.GenerationStatus,
	errorMessage string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE generations
		SET status = $1,
			error_message = $2,
			progress = CASE WHEN $1 = 'completed' THEN 100 ELSE progress END,
			updated_at = $3
		WHERE id = $4 AND status NOT IN ('completed', 'failed')
	`
	result, err := s.db.ExecContext(ctx, query, status, nullString(errorMessage), time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update generation status",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	err = checkRowsAffected(result, store.ErrGenerationNotFound)
	if errors.Is(err, store.ErrGenerationNotFound) {
		return s.unchangedStatus(ctx, id, status)
	}
	if err != nil {
		return err
	}

	log.Info("generation status updated",
		slog.String("generation_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// unchangedStatus explains why UpdateStatus matched no row.
func (s *PostgresGenerationStore) unchangedStatus(ctx context.Context, id uuid.UUID, wanted domain.GenerationStatus) error {
	var current domain.GenerationStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM generations WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrGenerationNotFound
	}
	if err != nil {
		return MapError(err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("generation already finished, status left unchanged",
		slog.String("generation_id", id.String()),
		slog.String("status", string(current)),
		slog.String("wanted", string(wanted)))
	return fmt.Errorf("%w: status is %s", store.ErrGenerationFinished, current)
}

// UpdateProgress implements store.GenerationStore.UpdateProgress
func (s *PostgresGenerationStore) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	if progress < 0 || progress > 100 {
		return domain.ErrInvalidProgress
	}

	query := `
		UPDATE generations
		SET progress = GREATEST(progress, $1), updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, progress, time.Now().UTC(), id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update generation progress",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()),
			slog.Int("progress", progress))
		return MapError(err)
	}

	if err := checkRowsAffected(result, store.ErrGenerationNotFound); err != nil {
		return err
	}
	return nil
}

// ListByUser implements store.GenerationStore.ListByUser
func (s *PostgresGenerationStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, mode, size, aspect_ratio, prompts, count_per_prompt,
			cost, status, progress, error_message, created_at, updated_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to list generations",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	generations := []*domain.Generation{}
	for rows.Next() {
		var (
			g            domain.Generation
			prompts      []byte
			errorMessage sql.NullString
		)
		if err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.Mode,
			&g.Size,
			&g.AspectRatio,
			&prompts,
			&g.CountPerPrompt,
			&g.Cost,
			&g.Status,
			&g.Progress,
			&errorMessage,
			&g.CreatedAt,
			&g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		if err := json.Unmarshal(prompts, &g.Prompts); err != nil {
			return nil, fmt.Errorf("failed to decode prompts of generation %s: %w", g.ID, err)
		}
		g.ErrorMessage = errorMessage.String
		generations = append(generations, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation rows: %w", err)
	}

	return generations, nil
}

// Delete implements store.GenerationStore.Delete. Artifacts go with the
// generation through ON DELETE CASCADE; ledger rows keep their delta with
// the reference set to NULL.
func (s *PostgresGenerationStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return MapError(err)
	}
	if err := checkRowsAffected(result, store.ErrGenerationNotFound); err != nil {
		return err
	}

	log.Info("generation deleted", slog.String("generation_id", id.String()))
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
