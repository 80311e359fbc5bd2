package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CreditReason explains a ledger movement.
type CreditReason string

// Ledger reasons
const (
	CreditReasonReservation CreditReason = "reservation"
	CreditReasonRefund      CreditReason = "refund"
	CreditReasonGrant       CreditReason = "grant"
	CreditReasonBonus       CreditReason = "bonus"
)

// Validation errors for CreditEntry
var (
	ErrInvalidCreditReason = errors.New("invalid credit reason")
	ErrInvalidCreditDelta  = errors.New("credit delta has the wrong sign for its reason")
)

// CreditEntry is one immutable row of a user's credit ledger. A user's
// balance is the sum of the deltas of all their entries.
type CreditEntry struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Delta        int           `json:"delta"`
	Reason       CreditReason  `json:"reason"`
	GenerationID uuid.NullUUID `json:"generation_id"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewReservation debits cost credits for a generation.
func NewReservation(userID, generationID uuid.UUID, cost int) (*CreditEntry, error) {
	return newCreditEntry(userID, -cost, CreditReasonReservation, uuid.NullUUID{UUID: generationID, Valid: true})
}

// NewRefund returns cost credits reserved for a failed generation.
func NewRefund(userID, generationID uuid.UUID, cost int) (*CreditEntry, error) {
	return newCreditEntry(userID, cost, CreditReasonRefund, uuid.NullUUID{UUID: generationID, Valid: true})
}

// NewGrant adds credits to a user's balance, e.g. after a purchase.
func NewGrant(userID uuid.UUID, amount int) (*CreditEntry, error) {
	return newCreditEntry(userID, amount, CreditReasonGrant, uuid.NullUUID{})
}

// NewDailyBonus adds the once-per-day bonus to a user's balance. The ledger
// accepts one bonus per user and UTC day.
func NewDailyBonus(userID uuid.UUID, amount int) (*CreditEntry, error) {
	return newCreditEntry(userID, amount, CreditReasonBonus, uuid.NullUUID{})
}

// BonusDay is the UTC day a bonus entry counts for.
func (e *CreditEntry) BonusDay() time.Time {
	return e.CreatedAt.UTC().Truncate(24 * time.Hour)
}

func newCreditEntry(userID uuid.UUID, delta int, reason CreditReason, generationID uuid.NullUUID) (*CreditEntry, error) {
	e := &CreditEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Delta:        delta,
		Reason:       reason,
		GenerationID: generationID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the entry's fields. Reservations must be negative, refunds,
// grants and bonuses positive.
func (e *CreditEntry) Validate() error {
	if e.ID == uuid.Nil {
		return ErrInvalidID
	}
	if e.UserID == uuid.Nil {
		return ErrEmptyGenerationUserID
	}
	switch e.Reason {
	case CreditReasonReservation:
		if e.Delta >= 0 {
			return ErrInvalidCreditDelta
		}
	case CreditReasonRefund, CreditReasonGrant, CreditReasonBonus:
		if e.Delta <= 0 {
			return ErrInvalidCreditDelta
		}
	default:
		return ErrInvalidCreditReason
	}
	if (e.Reason == CreditReasonReservation || e.Reason == CreditReasonRefund) && !e.GenerationID.Valid {
		return ErrEmptyGenerationID
	}
	return nil
}
