package studio

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/store"
)

// Balance returns the user's current credit balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return 0, NewServiceError("balance", "failed to read credit balance", err)
	}
	return balance, nil
}

// Grant adds credits to a user's balance and returns the new balance.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	entry, err := domain.NewGrant(userID, amount)
	if err != nil {
		return 0, err
	}
	if err := s.credits.Append(ctx, entry); err != nil {
		return 0, NewServiceError("grant", "failed to append grant", err)
	}

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("credits granted",
		"user_id", userID,
		"amount", amount,
		"balance", balance)
	return balance, nil
}

// BonusClaim is the outcome of ClaimDailyBonus.
type BonusClaim struct {
	Granted bool
	Amount  int
	Balance int
}

// ClaimDailyBonus grants the daily bonus if the user has not received one
// today (UTC). Claiming again on the same day is not an error; the claim
// reports Granted false and the unchanged balance.
func (s *Service) ClaimDailyBonus(ctx context.Context, userID uuid.UUID) (*BonusClaim, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("user_id", userID)
	claim := &BonusClaim{}

	if s.cfg.DailyBonus > 0 {
		entry, err := domain.NewDailyBonus(userID, s.cfg.DailyBonus)
		if err != nil {
			return nil, err
		}
		switch err := s.credits.Append(ctx, entry); {
		case err == nil:
			claim.Granted = true
			claim.Amount = s.cfg.DailyBonus
		case errors.Is(err, store.ErrDuplicate):
			log.Debug("daily bonus already claimed")
		default:
			return nil, NewServiceError("claim_daily_bonus", "failed to append bonus", err)
		}
	}

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	claim.Balance = balance

	if claim.Granted {
		log.Info("daily bonus granted", "amount", claim.Amount, "balance", balance)
	}
	return claim, nil
}
