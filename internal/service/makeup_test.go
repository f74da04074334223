package service_test

import (
	"sync"
	"testing"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeupLifecycle_EndToEnd(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)

	h.attend(t, f.reg.ID, f.session(3), false)
	reg := h.registration(t, f.reg.ID)
	require.Equal(t, 1, reg.SessionsCompleted)
	require.Equal(t, 9, reg.SessionsRemaining)
	require.True(t, h.total(t, f.user.UserID).Equal(decimal.NewFromInt(2)))

	resp, err := h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{
		RegistrationID:  f.reg.ID,
		MissedSessionID: f.session(1).ID,
		Reason:          strPtr("  travel  "),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MakeupPending, resp.Status)
	require.NotNil(t, resp.MissedSession)
	assert.Equal(t, 1, resp.MissedSession.SessionNumber)
	assert.Nil(t, resp.RequestedSession)

	reviewer := int64(77)
	approved, err := h.svc.Makeups.Act(h.ctx, resp.ID, &models.MakeupActionRequest{Action: models.ActionApprove}, &reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.MakeupApproved, approved.Status)
	assert.Equal(t, reviewer, *approved.ReviewedBy)
	require.NotNil(t, approved.ExpiresAt)
	assert.True(t, approved.ExpiresAt.Equal(start.Add(90*24*time.Hour)))

	h.attend(t, f.reg.ID, f.session(6), true)

	completed, err := h.svc.Makeups.Act(h.ctx, resp.ID, &models.MakeupActionRequest{Action: models.ActionComplete}, &reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.MakeupCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	reg = h.registration(t, f.reg.ID)
	assert.True(t, reg.MakeupUsed)
	assert.Equal(t, 2, reg.SessionsCompleted)
	assert.Equal(t, 8, reg.SessionsRemaining)
	assert.Equal(t, f.seminar.TotalSessions, reg.SessionsCompleted+reg.SessionsRemaining)

	_, err = h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{
		RegistrationID:  f.reg.ID,
		MissedSessionID: f.session(2).ID,
	})
	require.ErrorIs(t, err, apperrors.ErrMakeupAlreadyUsed)
	assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)

	assert.Equal(t, 1, h.pub.count(models.EventMakeupSubmitted))
	assert.Equal(t, 2, h.pub.count(models.EventMakeupTransitioned))
}

func TestSubmitMakeup_OneOutstandingPerRegistration(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)

	first, err := h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{
		RegistrationID:  f.reg.ID,
		MissedSessionID: f.session(1).ID,
	})
	require.NoError(t, err)

	_, err = h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{
		RegistrationID:  f.reg.ID,
		MissedSessionID: f.session(2).ID,
	})
	require.ErrorIs(t, err, apperrors.ErrDuplicateRequest)
	domainErr, _ := apperrors.As(err)
	require.NotNil(t, domainErr.ExistingID)
	assert.Equal(t, first.ID, *domainErr.ExistingID)

	// Still blocked once approved, free again after cancellation.
	_, err = h.svc.Makeups.Act(h.ctx, first.ID, &models.MakeupActionRequest{Action: models.ActionApprove}, nil)
	require.NoError(t, err)
	_, err = h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: f.session(2).ID})
	require.ErrorIs(t, err, apperrors.ErrDuplicateRequest)

	_, err = h.svc.Makeups.Act(h.ctx, first.ID, &models.MakeupActionRequest{Action: models.ActionCancel}, nil)
	require.NoError(t, err)
	second, err := h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: f.session(2).ID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSubmitMakeup_Guards(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	_, otherSessions := h.seminar(t, 2, 1)
	h.attend(t, f.reg.ID, f.session(2), false)

	tests := []struct {
		name string
		req  models.SubmitMakeupRequest
		code string
		want error
	}{
		{
			name: "missed session of another seminar",
			req:  models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: otherSessions[0].ID},
			code: apperrors.CodeSessionMismatch,
			want: apperrors.ErrPreconditionFailed,
		},
		{
			name: "missed session was attended",
			req:  models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: f.session(2).ID},
			code: apperrors.CodeSessionAlreadyAttended,
			want: apperrors.ErrPreconditionFailed,
		},
		{
			name: "requested session in the past",
			req:  models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: f.session(1).ID, RequestedSessionID: int64Ptr(f.session(4).ID)},
			code: apperrors.CodeSessionNotInFuture,
			want: apperrors.ErrPreconditionFailed,
		},
		{
			name: "unknown missed session",
			req:  models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: 9999},
			want: apperrors.ErrNotFound,
		},
		{
			name: "unknown registration",
			req:  models.SubmitMakeupRequest{RegistrationID: 9999, MissedSessionID: f.session(1).ID},
			want: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Makeups.Submit(h.ctx, &tt.req)
			require.ErrorIs(t, err, tt.want)
			if tt.code != "" {
				domainErr, _ := apperrors.As(err)
				assert.Equal(t, tt.code, domainErr.Code)
			}
		})
	}

	_, err := h.svc.Registrations.Cancel(h.ctx, f.reg.ID)
	require.NoError(t, err)
	_, err = h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: f.session(1).ID})
	domainErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeRegistrationNotActive, domainErr.Code)
}

// moveTo drives a fresh request into status and returns its id.
func moveTo(t *testing.T, h *harness, f *fixture, status models.MakeupStatus) int64 {
	t.Helper()

	resp, err := h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{RegistrationID: f.reg.ID, MissedSessionID: f.session(1).ID})
	require.NoError(t, err)

	steps := map[models.MakeupStatus][]models.MakeupActionRequest{
		models.MakeupPending:   nil,
		models.MakeupApproved:  {{Action: models.ActionApprove}},
		models.MakeupDenied:    {{Action: models.ActionDeny, DenialReason: strPtr("no capacity")}},
		models.MakeupCancelled: {{Action: models.ActionCancel}},
		models.MakeupExpired:   {{Action: models.ActionApprove}, {Action: models.ActionExpire}},
	}
	for _, step := range steps[status] {
		step := step
		_, err := h.svc.Makeups.Act(h.ctx, resp.ID, &step, nil)
		require.NoError(t, err)
	}
	return resp.ID
}

func TestAct_CompleteOnlyFromApproved(t *testing.T) {
	for _, status := range []models.MakeupStatus{models.MakeupPending, models.MakeupDenied, models.MakeupCancelled, models.MakeupExpired} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			f := h.enrolled(t)
			id := moveTo(t, h, f, status)

			_, err := h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{Action: models.ActionComplete}, nil)
			require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

			domainErr, _ := apperrors.As(err)
			assert.Equal(t, "complete", domainErr.Action)
			assert.Equal(t, string(status), domainErr.State)
			assert.False(t, h.registration(t, f.reg.ID).MakeupUsed)
		})
	}
}

func TestAct_DenyRequiresReason(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	id := moveTo(t, h, f, models.MakeupPending)

	_, err := h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{Action: models.ActionDeny, DenialReason: strPtr("   ")}, nil)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	domainErr, _ := apperrors.As(err)
	assert.Equal(t, "denial_reason", domainErr.Field)

	denied, err := h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{Action: models.ActionDeny, DenialReason: strPtr("schedule full")}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MakeupDenied, denied.Status)
	assert.Equal(t, "schedule full", *denied.DenialReason)
}

func TestAct_UpdateKeepsStatus(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	id := moveTo(t, h, f, models.MakeupApproved)

	updated, err := h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{
		Action:             models.ActionUpdate,
		Notes:              strPtr("moved to the evening group"),
		RequestedSessionID: int64Ptr(f.session(7).ID),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MakeupApproved, updated.Status)
	assert.Equal(t, f.session(7).ID, *updated.RequestedSessionID)
	assert.True(t, updated.ExpiresAt.Equal(time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)))

	_, err = h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{Action: models.ActionUpdate}, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRequestedSession_MustShareSeminar(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	_, otherSessions := h.seminar(t, 10, 1)
	foreign := otherSessions[6].ID

	_, err := h.svc.Makeups.Submit(h.ctx, &models.SubmitMakeupRequest{
		RegistrationID:     f.reg.ID,
		MissedSessionID:    f.session(1).ID,
		RequestedSessionID: int64Ptr(foreign),
	})
	require.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
	domainErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.CodeSessionMismatch, domainErr.Code)

	id := moveTo(t, h, f, models.MakeupPending)
	reviewer := int64(77)
	_, err = h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{Action: models.ActionApprove, RequestedSessionID: int64Ptr(foreign)}, &reviewer)
	require.ErrorIs(t, err, apperrors.ErrPreconditionFailed)

	_, err = h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{Action: models.ActionApprove}, &reviewer)
	require.NoError(t, err)
	_, err = h.svc.Makeups.Act(h.ctx, id, &models.MakeupActionRequest{Action: models.ActionUpdate, RequestedSessionID: int64Ptr(foreign)}, &reviewer)
	require.ErrorIs(t, err, apperrors.ErrPreconditionFailed)

	request, err := h.svc.Makeups.Get(h.ctx, id)
	require.NoError(t, err)
	assert.Nil(t, request.RequestedSessionID)
}

func TestAct_ConcurrentReviewersOneWins(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	id := moveTo(t, h, f, models.MakeupPending)

	actions := []models.MakeupActionRequest{
		{Action: models.ActionApprove},
		{Action: models.ActionDeny, DenialReason: strPtr("duplicate")},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(actions))
	for i := range actions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Makeups.Act(h.ctx, id, &actions[i], nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
	}
	assert.Equal(t, 1, succeeded)

	final, err := h.svc.Makeups.Get(h.ctx, id)
	require.NoError(t, err)
	assert.Contains(t, []models.MakeupStatus{models.MakeupApproved, models.MakeupDenied}, final.Status)
}

func TestExpireDue_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	id := moveTo(t, h, f, models.MakeupApproved)

	n, err := h.svc.Makeups.ExpireDue(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	h.clock.Advance(91 * 24 * time.Hour)

	n, err = h.svc.Makeups.ExpireDue(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.svc.Makeups.ExpireDue(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	request, err := h.svc.Makeups.Get(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.MakeupExpired, request.Status)

	expired := 0
	for _, e := range h.pub.events {
		if ev, ok := e.data.(models.MakeupTransitionedEvent); ok && ev.To == models.MakeupExpired {
			expired++
			assert.Equal(t, f.user.UserID, ev.UserID)
		}
	}
	assert.Equal(t, 1, expired)
}

func TestMakeupListings(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	id := moveTo(t, h, f, models.MakeupPending)

	byReg, err := h.svc.Makeups.ListByRegistration(h.ctx, f.reg.ID)
	require.NoError(t, err)
	require.Len(t, byReg, 1)
	assert.Equal(t, id, byReg[0].ID)

	pending, err := h.svc.Makeups.ListByStatus(h.ctx, models.MakeupPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = h.svc.Makeups.ListByStatus(h.ctx, "lost")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.svc.Makeups.Get(h.ctx, 31337)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
