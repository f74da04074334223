package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/logger"
	"ceseminars/internal/models"
)

// OrderService turns paid orders into seminar registrations.
type OrderService struct {
	users         UserStore
	registrations *RegistrationService
}

func NewOrderService(users UserStore, registrations *RegistrationService) *OrderService {
	return &OrderService{users: users, registrations: registrations}
}

// HandleOrderPaid registers the buyer, creating the user record on first
// purchase. Redelivered orders return the existing registration with
// created == false.
func (s *OrderService) HandleOrderPaid(ctx context.Context, order *models.OrderPaidPayload) (*models.Registration, bool, error) {
	email := strings.ToLower(strings.TrimSpace(order.Email))
	if email == "" {
		return nil, false, apperrors.Validation("email", "email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		user = &models.User{
			Email:     email,
			FirstName: strings.TrimSpace(order.FirstName),
			Surname:   strings.TrimSpace(order.Surname),
			IsActive:  true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("failed to create user: %w", err)
		}
		logger.WithContext(ctx).Info("User created from order", "user_id", user.UserID, "order_id", order.OrderID)
	}

	orderID := order.OrderID
	reg, err := s.registrations.Register(ctx, user.UserID, order.SeminarID, &orderID)
	if errors.Is(err, apperrors.ErrAlreadyRegistered) {
		existing, findErr := s.registrations.registrations.FindOpen(ctx, user.UserID, order.SeminarID)
		if findErr != nil {
			return nil, false, fmt.Errorf("failed to get registration: %w", findErr)
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return reg, true, nil
}
