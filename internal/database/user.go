// internal/database/user.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/classcast/lobbyd/internal/auth"
	"github.com/classcast/lobbyd/internal/models"
)

// CreateUser inserts a teacher/student account, hashing the password first.
func CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Password != "" {
		hashed, err := auth.CreateHash(u.Password, auth.Params)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		u.Password = hashed
	}
	q := `
	INSERT INTO users (id, email, password, name, is_teacher)
	VALUES ($1, $2, $3, $4, $5)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, u.ID, u.Email, u.Password, u.Name, u.IsTeacher)
		return err
	})
}

// GetUserByEmail fetches an account for login.
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	q := `SELECT id, email, password, name, is_teacher FROM users WHERE email = $1`
	err := DB.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.IsTeacher)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthenticateUser verifies credentials and mints a JWT for the cookie.
func AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	u, err := GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user lookup failed: %w", err)
	}
	ok, err := auth.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("invalid credentials")
	}
	return auth.CreateJWT(u.ID.String())
}

// GetUserByID fetches an account by id.
func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	q := `SELECT id, email, name, is_teacher FROM users WHERE id = $1`
	err := DB.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Name, &u.IsTeacher)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
