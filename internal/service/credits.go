package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"

	"github.com/shopspring/decimal"
)

// CreditService is the only place a user's CE total is computed. Everything
// else asks it rather than summing entries on its own.
type CreditService struct {
	ledger LedgerStore
	cache  CreditCache
	now    func() time.Time
}

func NewCreditService(ledger LedgerStore, cache CreditCache, now func() time.Time) *CreditService {
	return &CreditService{ledger: ledger, cache: cache, now: now}
}

// Total returns the signed sum of the user's ledger entries.
func (s *CreditService) Total(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if s.cache != nil {
		if total, ok := s.cache.GetCreditTotal(ctx, userID); ok {
			return total, nil
		}
	}

	total, err := s.ledger.SumForUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum credits: %w", err)
	}

	if s.cache != nil {
		s.cache.SetCreditTotal(ctx, userID, total)
	}
	return total, nil
}

func (s *CreditService) Entries(ctx context.Context, userID int64) ([]models.LedgerEntry, error) {
	entries, err := s.ledger.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// Summary bundles the canonical total with the entries that produced it.
func (s *CreditService) Summary(ctx context.Context, userID int64) (*models.CreditSummaryResponse, error) {
	entries, err := s.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.Total(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return &models.CreditSummaryResponse{UserID: userID, Total: total, Entries: entries}, nil
}

// Adjust appends a manual entry. Negative amounts are stored as revoked
// entries so the ledger never holds a negative amount.
func (s *CreditService) Adjust(ctx context.Context, userID int64, amount decimal.Decimal, reason string, seminarID *int64) (*models.LedgerEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("reason", "reason is required")
	}
	if amount.IsZero() {
		return nil, apperrors.Validation("amount", "amount must not be zero")
	}

	entry := &models.LedgerEntry{
		UserID:    userID,
		EntryType: models.LedgerAdjustment,
		Amount:    amount,
		SeminarID: seminarID,
		Reason:    &reason,
		AwardedAt: s.now().UTC(),
	}
	if amount.IsNegative() {
		entry.EntryType = models.LedgerRevoked
		entry.Amount = amount.Neg()
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append adjustment: %w", err)
	}
	s.Invalidate(ctx, userID)
	return entry, nil
}

// Invalidate drops the cached total after any ledger append.
func (s *CreditService) Invalidate(ctx context.Context, userID int64) {
	if s.cache != nil {
		s.cache.InvalidateCredits(ctx, userID)
	}
}
