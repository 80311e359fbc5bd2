package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/store"
)

// PostgresArtifactStore implements the store.ArtifactStore interface.
// Image bytes live in a bytea column next to their metadata.
type PostgresArtifactStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArtifactStore creates a new PostgresArtifactStore.
func NewPostgresArtifactStore(db store.DBTX, logger *slog.Logger) *PostgresArtifactStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresArtifactStore{
		db:     db,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

var _ store.ArtifactStore = (*PostgresArtifactStore)(nil)

// WithTx implements store.ArtifactStore.WithTx
func (s *PostgresArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore {
	return &PostgresArtifactStore{
		db:     tx,
		logger: s.logger,
	}
}

// SaveAll implements store.ArtifactStore.SaveAll
func (s *PostgresArtifactStore) SaveAll(ctx context.Context, artifacts []*domain.Artifact) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(artifacts) == 0 {
		log.Debug("no artifacts to save")
		return nil
	}

	for _, a := range artifacts {
		if err := a.Validate(); err != nil {
			log.Warn("artifact validation failed",
				slog.String("error", err.Error()),
				slog.String("generation_id", a.GenerationID.String()),
				slog.Int("index", a.Index))
			return err
		}
	}

	query, args := insertArtifactsQuery(artifacts)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to insert artifacts",
			slog.String("error", err.Error()),
			slog.String("generation_id", artifacts[0].GenerationID.String()),
			slog.Int("count", len(artifacts)))
		return MapError(err)
	}

	log.Info("artifacts saved",
		slog.String("generation_id", artifacts[0].GenerationID.String()),
		slog.Int("count", len(artifacts)))
	return nil
}

// artifactColumns is the column count of one VALUES tuple in insertArtifactsQuery.
const artifactColumns = 6

// insertArtifactsQuery builds one multi-row INSERT for artifacts.
func insertArtifactsQuery(artifacts []*domain.Artifact) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO artifacts (generation_id, idx, mime_type, data, label, created_at) VALUES ")

	args := make([]any, 0, len(artifacts)*artifactColumns)
	for i, a := range artifacts {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * artifactColumns
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, a.GenerationID, a.Index, a.MIMEType, a.Data, a.Label, a.CreatedAt)
	}
	return b.String(), args
}

// Get implements store.ArtifactStore.Get
func (s *PostgresArtifactStore) Get(ctx context.Context, generationID uuid.UUID, index int) (*domain.Artifact, error) {
	query := `
		SELECT generation_id, idx, mime_type, data, label, created_at
		FROM artifacts
		WHERE generation_id = $1 AND idx = $2
	`

	var a domain.Artifact
	err := s.db.QueryRowContext(ctx, query, generationID, index).Scan(
		&a.GenerationID,
		&a.Index,
		&a.MIMEType,
		&a.Data,
		&a.Label,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrArtifactNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get artifact",
			slog.String("error", err.Error()),
			slog.String("generation_id", generationID.String()),
			slog.Int("index", index))
		return nil, MapError(err)
	}
	return &a, nil
}

// List implements store.ArtifactStore.List
func (s *PostgresArtifactStore) List(ctx context.Context, generationID uuid.UUID) ([]*domain.Artifact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT generation_id, idx, mime_type, label, created_at
		FROM artifacts
		WHERE generation_id = $1
		ORDER BY idx ASC
	`
	rows, err := s.db.QueryContext(ctx, query, generationID)
	if err != nil {
		log.Error("failed to list artifacts",
			slog.String("error", err.Error()),
			slog.String("generation_id", generationID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	artifacts := []*domain.Artifact{}
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.GenerationID, &a.Index, &a.MIMEType, &a.Label, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		artifacts = append(artifacts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifact rows: %w", err)
	}

	return artifacts, nil
}
