package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/studio-api/internal/domain"
)

// ArtifactStore defines the interface for generated image persistence.
type ArtifactStore interface {
	// SaveAll stores the artifacts of one generation. Either all of them are
	// written or none; callers pass a transaction-bound store via WithTx.
	SaveAll(ctx context.Context, artifacts []*domain.Artifact) error

	// Get returns one artifact including its image bytes.
	// Returns ErrArtifactNotFound if there is no artifact at that index.
	Get(ctx context.Context, generationID uuid.UUID, index int) (*domain.Artifact, error)

	// List returns the artifacts of a generation ordered by index, without image bytes.
	List(ctx context.Context, generationID uuid.UUID) ([]*domain.Artifact, error)

	// WithTx returns a new ArtifactStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ArtifactStore
}
