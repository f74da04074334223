package repository

import (
	"context"
	"database/sql"

	"ceseminars/internal/database"
	"ceseminars/internal/models"
)

// EventRepository stores single-session CE course listings
type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, starts_at, ce_credits, status, created_at`

func scanEvent(row scanner) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(&e.ID, &e.Title, &e.StartsAt, &e.CECredits, &e.Status, &e.CreatedAt)
	return e, err
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (title, starts_at, ce_credits, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query, e.Title, e.StartsAt, e.CECredits, e.Status).Scan(&e.ID, &e.CreatedAt)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
