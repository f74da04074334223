package service_test

import (
	"testing"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditTotal_CachedUntilLedgerChanges(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	h.attend(t, f.reg.ID, f.session(1), false)

	assert.True(t, h.total(t, f.user.UserID).Equal(decimal.NewFromInt(2)))
	assert.True(t, h.total(t, f.user.UserID).Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, h.cache.hits)

	h.attend(t, f.reg.ID, f.session(2), false)
	assert.True(t, h.total(t, f.user.UserID).Equal(decimal.NewFromInt(4)))
	assert.Equal(t, 1, h.cache.hits)
}

func TestAdjustCredits(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "ann@example.com")

	entry, err := h.svc.Credits.Adjust(h.ctx, user.UserID, decimal.NewFromInt(5), "transfer from previous provider", nil)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerAdjustment, entry.EntryType)
	assert.True(t, h.total(t, user.UserID).Equal(decimal.NewFromInt(5)))

	entry, err = h.svc.Credits.Adjust(h.ctx, user.UserID, decimal.RequireFromString("-1.5"), "correction", nil)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerRevoked, entry.EntryType)
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, h.total(t, user.UserID).Equal(decimal.RequireFromString("3.5")))

	_, err = h.svc.Credits.Adjust(h.ctx, user.UserID, decimal.Zero, "nothing", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.svc.Credits.Adjust(h.ctx, user.UserID, decimal.NewFromInt(1), "  ", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	summary, err := h.svc.Credits.Summary(h.ctx, user.UserID)
	require.NoError(t, err)
	assert.Len(t, summary.Entries, 2)
	assert.True(t, summary.Total.Equal(decimal.RequireFromString("3.5")))
}

func TestCreditSummary_EmptyLedger(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "ann@example.com")

	summary, err := h.svc.Credits.Summary(h.ctx, user.UserID)
	require.NoError(t, err)
	assert.NotNil(t, summary.Entries)
	assert.Empty(t, summary.Entries)
	assert.True(t, summary.Total.IsZero())
}
