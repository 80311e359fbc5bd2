package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/store"
)

// PostgresCreditStore implements the store.CreditStore interface on an
// append-only credit_entries table.
type PostgresCreditStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCreditStore creates a new PostgresCreditStore.
func NewPostgresCreditStore(db store.DBTX, logger *slog.Logger) *PostgresCreditStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCreditStore{
		db:     db,
		logger: logger.With(slog.String("component", "credit_store")),
	}
}

var _ store.CreditStore = (*PostgresCreditStore)(nil)

// WithTx implements store.CreditStore.WithTx
func (s *PostgresCreditStore) WithTx(tx *sql.Tx) store.CreditStore {
	return &PostgresCreditStore{
		db:     tx,
		logger: s.logger,
	}
}

// Append implements store.CreditStore.Append
func (s *PostgresCreditStore) Append(ctx context.Context, entry *domain.CreditEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("credit entry validation failed",
			slog.String("error", err.Error()),
			slog.String("user_id", entry.UserID.String()))
		return err
	}

	query := `
		INSERT INTO credit_entries (id, user_id, delta, reason, generation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Delta,
		entry.Reason,
		entry.GenerationID,
		entry.CreatedAt,
	); err != nil {
		log.Error("failed to append credit entry",
			slog.String("error", err.Error()),
			slog.String("user_id", entry.UserID.String()),
			slog.String("reason", string(entry.Reason)))
		return MapError(err)
	}

	log.Info("credit entry appended",
		slog.String("user_id", entry.UserID.String()),
		slog.String("reason", string(entry.Reason)),
		slog.Int("delta", entry.Delta))
	return nil
}

// Balance implements store.CreditStore.Balance
func (s *PostgresCreditStore) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM credit_entries WHERE user_id = $1`,
		userID,
	).Scan(&balance)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read credit balance",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}
	return balance, nil
}

// LockBalance implements store.CreditStore.LockBalance. The advisory lock
// is released when the surrounding transaction commits or rolls back.
func (s *PostgresCreditStore) LockBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	if _, err := s.db.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		userID.String(),
	); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to lock credit balance",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}
	return s.Balance(ctx, userID)
}
