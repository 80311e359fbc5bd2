package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/studio-api/internal/domain"
)

// CreditStore defines the interface for the append-only credit ledger.
type CreditStore interface {
	// Append inserts a ledger entry.
	Append(ctx context.Context, entry *domain.CreditEntry) error

	// Balance returns the sum of a user's ledger deltas (0 for unknown users).
	Balance(ctx context.Context, userID uuid.UUID) (int, error)

	// LockBalance returns the balance like Balance while holding a per-user
	// lock until the surrounding transaction ends. It must run inside a
	// transaction so concurrent reservations cannot overdraw.
	LockBalance(ctx context.Context, userID uuid.UUID) (int, error)

	// WithTx returns a new CreditStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CreditStore
}
