package repository

import (
	"context"

	"ceseminars/internal/database"
)

// NotificationRepository records which notifications were already sent so
// that sweeps and consumers stay idempotent across reruns and redeliveries.
type NotificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Claim reports true only for the first caller with the given key.
func (r *NotificationRepository) Claim(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO notification_log (dedupe_key) VALUES ($1) ON CONFLICT DO NOTHING`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Release drops a claim so a failed send can be retried.
func (r *NotificationRepository) Release(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notification_log WHERE dedupe_key = $1`, key)
	return err
}
