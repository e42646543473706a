/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"fmt"

	"github.com/humaidq/labvault/labparse"
)

// labTestRow flattens a registry definition for the catalog table.
func labTestRow(position int, def labparse.TestDefinition) LabTest {
	male, female := def.Range.Male(), def.Range.Female()

	return LabTest{
		Name:      def.Name,
		Position:  position,
		Pattern:   def.Pattern,
		Unit:      def.Unit,
		Specialty: def.Specialty,
		MaleMin:   male.Min,
		MaleMax:   male.Max,
		FemaleMin: female.Min,
		FemaleMax: female.Max,
		BySex:     def.Range.IsSexSpecific(),
	}
}

// SyncLabTests upserts the extractor's test definitions into lab_tests.
func SyncLabTests(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	definitions := labparse.Definitions()
	logger.Infof("Syncing %d lab test definitions to database...", len(definitions))

	query := `
		INSERT INTO lab_tests (name, position, pattern, unit, specialty, male_min, male_max, female_min, female_max, by_sex)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name)
		DO UPDATE SET
			position = EXCLUDED.position,
			pattern = EXCLUDED.pattern,
			unit = EXCLUDED.unit,
			specialty = EXCLUDED.specialty,
			male_min = EXCLUDED.male_min,
			male_max = EXCLUDED.male_max,
			female_min = EXCLUDED.female_min,
			female_max = EXCLUDED.female_max,
			by_sex = EXCLUDED.by_sex,
			updated_at = now()
	`

	for i, def := range definitions {
		row := labTestRow(i, def)

		_, err := pool.Exec(ctx, query,
			row.Name, row.Position, row.Pattern, row.Unit, row.Specialty,
			row.MaleMin, row.MaleMax, row.FemaleMin, row.FemaleMax, row.BySex,
		)
		if err != nil {
			return fmt.Errorf("failed to sync lab test %s: %w", def.Name, err)
		}
	}

	logger.Infof("Successfully synced %d lab tests", len(definitions))

	return nil
}

// ListLabTests returns the catalog in registry order.
func ListLabTests(ctx context.Context) ([]LabTest, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `
		SELECT name, position, pattern, unit, specialty, male_min, male_max, female_min, female_max, by_sex
		FROM lab_tests
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lab tests: %w", err)
	}
	defer rows.Close()

	tests := make([]LabTest, 0)

	for rows.Next() {
		var t LabTest
		if err := rows.Scan(
			&t.Name, &t.Position, &t.Pattern, &t.Unit, &t.Specialty,
			&t.MaleMin, &t.MaleMax, &t.FemaleMin, &t.FemaleMax, &t.BySex,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lab test: %w", err)
		}

		tests = append(tests, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lab tests: %w", err)
	}

	return tests, nil
}
