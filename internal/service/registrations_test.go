package service_test

import (
	"testing"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)

	assert.Equal(t, models.RegistrationActive, f.reg.Status)
	assert.Equal(t, 0, f.reg.SessionsCompleted)
	assert.Equal(t, 10, f.reg.SessionsRemaining)
	require.NotNil(t, f.reg.StartSessionDate)
	assert.True(t, f.reg.StartSessionDate.Equal(time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, h.pub.count(models.EventRegistrationCreated))

	_, err := h.svc.Registrations.Register(h.ctx, f.user.UserID, f.seminar.ID, nil)
	require.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	domainErr, _ := apperrors.As(err)
	require.NotNil(t, domainErr.ExistingID)
	assert.Equal(t, f.reg.ID, *domainErr.ExistingID)

	_, err = h.svc.Registrations.Register(h.ctx, f.user.UserID, 9999, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegister_ClosedSeminar(t *testing.T) {
	h := newHarness(t)
	seminar, _ := h.seminar(t, 4, 1)
	user := h.user(t, "ann@example.com")

	_, err := h.svc.Catalog.UpdateSeminarStatus(h.ctx, seminar.ID, models.SeminarCompleted)
	require.NoError(t, err)

	_, err = h.svc.Registrations.Register(h.ctx, user.UserID, seminar.ID, nil)
	require.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
	domainErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.CodeSeminarNotOpen, domainErr.Code)
}

func TestRegister_DraftSeminarWithoutSessions(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "ann@example.com")
	draft, err := h.svc.Catalog.CreateSeminar(h.ctx, &models.CreateSeminarRequest{Title: "Next Year", Year: 2027, TotalSessions: 6})
	require.NoError(t, err)

	reg, err := h.svc.Registrations.Register(h.ctx, user.UserID, draft.ID, strPtr("order-1"))
	require.NoError(t, err)
	assert.Nil(t, reg.StartSessionDate)
	assert.Equal(t, "order-1", *reg.OrderID)
	assert.Equal(t, 6, reg.SessionsRemaining)
}

func TestCancelRegistration(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)
	h.attend(t, f.reg.ID, f.session(1), false)

	cancelled, err := h.svc.Registrations.Cancel(h.ctx, f.reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationCancelled, cancelled.Status)
	assert.Equal(t, 1, cancelled.SessionsCompleted)
	assert.Equal(t, 9, cancelled.SessionsRemaining)

	_, err = h.svc.Registrations.Cancel(h.ctx, f.reg.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
	domainErr, _ := apperrors.As(err)
	assert.Equal(t, "cancelled", domainErr.State)

	again, err := h.svc.Registrations.Register(h.ctx, f.user.UserID, f.seminar.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, f.reg.ID, again.ID)

	mine, err := h.svc.Registrations.ListByUser(h.ctx, f.user.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	active := models.RegistrationActive
	open, err := h.svc.Registrations.ListBySeminar(h.ctx, f.seminar.ID, &active)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, again.ID, open[0].ID)

	_, err = h.svc.Registrations.Cancel(h.ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHoldAndResume(t *testing.T) {
	h := newHarness(t)
	f := h.enrolled(t)

	held, err := h.svc.Registrations.Hold(h.ctx, f.reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationOnHold, held.Status)

	_, err = h.svc.Registrations.Hold(h.ctx, f.reg.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	// An on-hold registration still blocks a second enrollment.
	_, err = h.svc.Registrations.Register(h.ctx, f.user.UserID, f.seminar.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)

	resumed, err := h.svc.Registrations.Resume(h.ctx, f.reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationActive, resumed.Status)

	_, err = h.svc.Registrations.Resume(h.ctx, f.reg.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}
