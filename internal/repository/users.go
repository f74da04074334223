package repository

import (
	"context"
	"database/sql"
	"strings"

	"ceseminars/internal/database"
	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, email, password_hash, first_name, surname, is_admin, is_active, registered_at`

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.Surname,
		&user.IsAdmin,
		&user.IsActive,
		&user.RegisteredAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, surname, is_admin, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING user_id, registered_at`

	user.Email = strings.ToLower(user.Email)
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.Surname, user.IsAdmin, user.IsActive,
	).Scan(&user.UserID, &user.RegisteredAt)
	if _, ok := violation(err, pqUniqueViolation); ok {
		return apperrors.Duplicate(apperrors.CodeEmailTaken, "email is already registered")
	}
	return err
}
