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
	"time"

	"github.com/jackc/pgx/v5"
)

// HealthProfileInput is the editable part of a health profile.
type HealthProfileInput struct {
	DateOfBirth *time.Time
	Gender      *Gender
	HeightCM    *float64
	WeightKG    *float64
	BloodType   *string
	Allergies   []string
	Medications []string
}

// SplitList turns a comma or newline separated field into trimmed items.
func SplitList(value string) []string {
	items := make([]string, 0)

	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '\n' }) {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}

	return items
}

func nonNilList(items []string) []string {
	if items == nil {
		return []string{}
	}

	return items
}

func upsertHealthProfile(ctx context.Context, tx pgx.Tx, userID string, input HealthProfileInput) error {
	_, err := tx.Exec(ctx, healthProfileUpsert, userID,
		input.DateOfBirth, input.Gender, input.HeightCM, input.WeightKG, input.BloodType,
		nonNilList(input.Allergies), nonNilList(input.Medications),
	)
	if err != nil {
		return fmt.Errorf("failed to save health profile: %w", err)
	}

	return nil
}

const healthProfileUpsert = `
	INSERT INTO health_profiles (user_id, date_of_birth, gender, height_cm, weight_kg, blood_type, allergies, medications)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (user_id) DO UPDATE SET
		date_of_birth = EXCLUDED.date_of_birth,
		gender = EXCLUDED.gender,
		height_cm = EXCLUDED.height_cm,
		weight_kg = EXCLUDED.weight_kg,
		blood_type = EXCLUDED.blood_type,
		allergies = EXCLUDED.allergies,
		medications = EXCLUDED.medications,
		updated_at = now()
`

// GetHealthProfile returns the profile of a user, or nil if they have none.
func GetHealthProfile(ctx context.Context, userID string) (*HealthProfile, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var profile HealthProfile
	query := `
		SELECT user_id, date_of_birth, gender, height_cm, weight_kg, blood_type, allergies, medications, updated_at
		FROM health_profiles
		WHERE user_id = $1
	`

	err := pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &profile.DateOfBirth, &profile.Gender,
		&profile.HeightCM, &profile.WeightKG, &profile.BloodType,
		&profile.Allergies, &profile.Medications, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // a user without a profile is valid
		}

		return nil, fmt.Errorf("failed to get health profile: %w", err)
	}

	return &profile, nil
}

// UpdateHealthProfile creates or replaces a user's profile.
func UpdateHealthProfile(ctx context.Context, userID string, input HealthProfileInput) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("Failed to roll back profile update", "error", err)
		}
	}()

	if err := upsertHealthProfile(ctx, tx, userID, input); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit health profile: %w", err)
	}

	return nil
}
