package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeupTransitionTable(t *testing.T) {
	tests := []struct {
		from   MakeupStatus
		action MakeupAction
		to     MakeupStatus
		ok     bool
	}{
		{MakeupPending, ActionApprove, MakeupApproved, true},
		{MakeupPending, ActionDeny, MakeupDenied, true},
		{MakeupPending, ActionCancel, MakeupCancelled, true},
		{MakeupPending, ActionUpdate, MakeupPending, true},
		{MakeupApproved, ActionComplete, MakeupCompleted, true},
		{MakeupApproved, ActionCancel, MakeupCancelled, true},
		{MakeupApproved, ActionExpire, MakeupExpired, true},
		{MakeupApproved, ActionUpdate, MakeupApproved, true},
		{MakeupPending, ActionComplete, "", false},
		{MakeupPending, ActionExpire, "", false},
		{MakeupApproved, ActionApprove, "", false},
		{MakeupApproved, ActionDeny, "", false},
		{MakeupDenied, ActionComplete, "", false},
		{MakeupCancelled, ActionComplete, "", false},
		{MakeupExpired, ActionComplete, "", false},
		{MakeupCompleted, ActionCancel, "", false},
		{MakeupCompleted, ActionUpdate, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			to, ok := NextMakeupStatus(tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestMakeupStatusFlags(t *testing.T) {
	assert.True(t, MakeupPending.Outstanding())
	assert.True(t, MakeupApproved.Outstanding())
	for _, s := range []MakeupStatus{MakeupDenied, MakeupCompleted, MakeupCancelled, MakeupExpired} {
		assert.True(t, s.Terminal(), s)
		assert.False(t, s.Outstanding(), s)
	}
	assert.False(t, MakeupStatus("bogus").Terminal())
	assert.True(t, ActionUpdate.Valid())
	assert.False(t, MakeupAction("reopen").Valid())
}

func TestPeriodRange(t *testing.T) {
	from, to, err := FirstHalf.Range(2026)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), to)

	from, to, err = SecondHalf.Range(2026)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = Period("q3").Range(2026)
	assert.Error(t, err)
}

func TestSeminarRecomputeCredits(t *testing.T) {
	s := Seminar{TotalSessions: 10, CreditsPerSession: decimal.NewFromInt(2)}
	s.RecomputeCredits()
	assert.True(t, s.TotalCredits.Equal(decimal.NewFromInt(20)))

	s.CreditsOverridden = true
	s.TotalCredits = decimal.NewFromInt(25)
	s.RecomputeCredits()
	assert.True(t, s.TotalCredits.Equal(decimal.NewFromInt(25)))
}

func TestLedgerEntrySigned(t *testing.T) {
	earned := LedgerEntry{EntryType: LedgerEarned, Amount: decimal.NewFromInt(2)}
	revoked := LedgerEntry{EntryType: LedgerRevoked, Amount: decimal.NewFromInt(2)}
	assert.True(t, earned.Signed().Add(revoked.Signed()).IsZero())
}

func TestSessionOnOrAfter(t *testing.T) {
	s := Session{SessionDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	assert.True(t, s.OnOrAfter(time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)))
	assert.False(t, s.OnOrAfter(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)))
}
