package repository

import (
	"context"
	"database/sql"
	"fmt"

	models "github.com/aaravmahajanofficial/sellit-backend/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		INSERT INTO users (username, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := db.QueryRowContext(dbCtx, query, user.Username, user.Email, user.Password).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}

	return nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	user := &models.User{}
	query := `
		SELECT id, username, email, password, created_at, updated_at
		FROM users
		WHERE email = $1`

	err := db.QueryRowContext(dbCtx, query, email).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	user := &models.User{}
	query := `
		SELECT id, username, email, password, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := db.QueryRowContext(dbCtx, query, id).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `
		UPDATE users SET username = $1, email = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	err := db.QueryRowContext(dbCtx, query, user.Username, user.Email, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}

	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	query := `UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`

	result, err := db.ExecContext(dbCtx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectAffected(result)
}

// Products and the cart go with the user through ON DELETE CASCADE.
func (r *userRepository) DeleteUser(ctx context.Context, id int64) error {

	db, dbCtx, cancel := conn(ctx, r.DB)
	defer cancel()

	result, err := db.ExecContext(dbCtx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectAffected(result)
}

func expectAffected(result sql.Result) error {

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
