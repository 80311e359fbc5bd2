package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/studio-api/internal/domain"
)

// GenerationStore defines the interface for generation persistence.
type GenerationStore interface {
	// Create saves a new generation, including its inputs.
	// Returns validation errors from the domain Generation if data is invalid.
	Create(ctx context.Context, g *domain.Generation) error

	// GetByID retrieves a generation by its unique ID.
	// Returns ErrGenerationNotFound if the generation does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error)

	// UpdateStatus sets the status and error message of a generation that is
	// still pending or processing. Finished generations are never changed.
	// Returns ErrGenerationNotFound if the generation does not exist and
	// ErrGenerationFinished if it has already completed or failed.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.GenerationStatus, errorMessage string) error

	// UpdateProgress records batch progress. The stored value never decreases.
	// Returns ErrGenerationNotFound if the generation does not exist.
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error

	// ListByUser returns a user's generations newest first, skipping offset
	// rows and returning at most limit. Input images are not loaded.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Generation, error)

	// Delete removes a generation together with its artifacts. Credit
	// entries stay in the ledger.
	// Returns ErrGenerationNotFound if the generation does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new GenerationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) GenerationStore
}
