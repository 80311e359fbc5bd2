package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditEntries(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	genID := uuid.New()

	res, err := NewReservation(userID, genID, 250)
	require.NoError(t, err)
	assert.Equal(t, -250, res.Delta)
	assert.Equal(t, CreditReasonReservation, res.Reason)
	assert.Equal(t, genID, res.GenerationID.UUID)
	assert.True(t, res.GenerationID.Valid)

	ref, err := NewRefund(userID, genID, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, ref.Delta)
	assert.Equal(t, 0, res.Delta+ref.Delta, "refund should cancel the reservation")

	grant, err := NewGrant(userID, 1000)
	require.NoError(t, err)
	assert.False(t, grant.GenerationID.Valid)

	bonus, err := NewDailyBonus(userID, 100)
	require.NoError(t, err)
	assert.Equal(t, CreditReasonBonus, bonus.Reason)
	assert.False(t, bonus.GenerationID.Valid)
}

func TestCreditEntry_BonusDay(t *testing.T) {
	t.Parallel()

	late := time.Date(2026, 3, 14, 23, 59, 0, 0, time.FixedZone("UTC-5", -5*60*60))
	e := &CreditEntry{CreatedAt: late}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, want.Equal(e.BonusDay()), "got %s", e.BonusDay())

	_, err := NewDailyBonus(uuid.New(), 0)
	assert.ErrorIs(t, err, ErrInvalidCreditDelta)
}

func TestCreditEntryValidation(t *testing.T) {
	t.Parallel()

	_, err := NewReservation(uuid.New(), uuid.New(), 0)
	assert.ErrorIs(t, err, ErrInvalidCreditDelta)

	_, err = NewGrant(uuid.New(), -5)
	assert.ErrorIs(t, err, ErrInvalidCreditDelta)

	_, err = NewGrant(uuid.Nil, 5)
	assert.ErrorIs(t, err, ErrEmptyGenerationUserID)

	e := &CreditEntry{ID: uuid.New(), UserID: uuid.New(), Delta: 5, Reason: CreditReason("gift")}
	assert.ErrorIs(t, e.Validate(), ErrInvalidCreditReason)

	e = &CreditEntry{ID: uuid.New(), UserID: uuid.New(), Delta: 5, Reason: CreditReasonRefund}
	assert.ErrorIs(t, e.Validate(), ErrEmptyGenerationID)
}
