/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
	uniqueViolation   = "23505"
)

// RegisterInput is the data collected by the registration form and API.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Profile  HealthProfileInput
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks required registration fields.
func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}

	if NormalizeEmail(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return ErrEmailRequired
	}

	if len(in.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	return nil
}

// RegisterUser creates a user and their health profile in one transaction.
func RegisterUser(ctx context.Context, input RegisterInput) (*User, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("Failed to roll back registration", "error", err)
		}
	}()

	var user User
	err = tx.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, password_hash, created_at, updated_at
	`, strings.TrimSpace(input.Name), NormalizeEmail(input.Email), string(hash)).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailAlreadyRegistered
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := upsertHealthProfile(ctx, tx, user.ID.String(), input.Profile); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	logger.Info("Registered user", "user_id", user.ID)

	return &user, nil
}

// AuthenticateUser checks an email and password pair. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func AuthenticateUser(ctx context.Context, email, password string) (*User, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	user, err := getUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID returns a user by ID.
func GetUserByID(ctx context.Context, id string) (*User, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var user User
	err := pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func getUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE lower(email) = $1
	`, NormalizeEmail(email)).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}
