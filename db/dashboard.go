/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"fmt"
)

// GetDashboardStats counts a user's reports and readings.
func GetDashboardStats(ctx context.Context, userID string) (*DashboardStats, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var stats DashboardStats
	err := pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM reports WHERE user_id = $1),
			COUNT(t.id),
			COUNT(t.id) FILTER (WHERE t.is_abnormal),
			(SELECT MAX(uploaded_at) FROM reports WHERE user_id = $1)
		FROM reports r
		LEFT JOIN report_test_results t ON t.report_id = r.id
		WHERE r.user_id = $1
	`, userID).Scan(&stats.TotalReports, &stats.TotalTests, &stats.AbnormalTests, &stats.LastUpload)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}

	return &stats, nil
}

// ListTestNames returns the tests found in a user's reports in catalog order.
func ListTestNames(ctx context.Context, userID string) ([]TestNameCount, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT t.test_name, MAX(t.unit), COUNT(*)
		FROM report_test_results t
		INNER JOIN reports r ON r.id = t.report_id
		LEFT JOIN lab_tests lt ON lt.name = t.test_name
		WHERE r.user_id = $1
		GROUP BY t.test_name, lt.position
		ORDER BY lt.position NULLS LAST, t.test_name
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list test names: %w", err)
	}
	defer rows.Close()

	counts := make([]TestNameCount, 0)

	for rows.Next() {
		var c TestNameCount
		if err := rows.Scan(&c.TestName, &c.Unit, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan test name: %w", err)
		}

		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test names: %w", err)
	}

	return counts, nil
}

// GetTestHistory returns every reading of a test for a user, oldest first.
// The collection date is used when known, otherwise the upload time.
func GetTestHistory(ctx context.Context, userID, testName string) ([]TestHistoryPoint, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT r.id, COALESCE(r.collection_date::timestamptz, r.uploaded_at) AS date,
		       t.value, t.range_min, t.range_max, t.is_abnormal
		FROM report_test_results t
		INNER JOIN reports r ON r.id = t.report_id
		WHERE r.user_id = $1 AND t.test_name = $2
		ORDER BY date ASC
	`

	rows, err := pool.Query(ctx, query, userID, testName)
	if err != nil {
		return nil, fmt.Errorf("failed to get test history: %w", err)
	}
	defer rows.Close()

	points := make([]TestHistoryPoint, 0)

	for rows.Next() {
		var p TestHistoryPoint
		if err := rows.Scan(&p.ReportID, &p.Date, &p.Value, &p.RangeMin, &p.RangeMax, &p.IsAbnormal); err != nil {
			return nil, fmt.Errorf("failed to scan test history: %w", err)
		}

		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test history: %w", err)
	}

	return points, nil
}

// AbnormalBySpecialty counts a user's abnormal readings per specialty.
func AbnormalBySpecialty(ctx context.Context, userID string) ([]SpecialtyCount, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT COALESCE(lt.specialty, NULLIF(t.specialty, ''), 'Other') AS specialty, COUNT(*)
		FROM report_test_results t
		INNER JOIN reports r ON r.id = t.report_id
		LEFT JOIN lab_tests lt ON lt.name = t.test_name
		WHERE r.user_id = $1 AND t.is_abnormal
		GROUP BY 1
		ORDER BY 2 DESC, 1
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count abnormal results: %w", err)
	}
	defer rows.Close()

	counts := make([]SpecialtyCount, 0)

	for rows.Next() {
		var c SpecialtyCount
		if err := rows.Scan(&c.Specialty, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan specialty count: %w", err)
		}

		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating specialty counts: %w", err)
	}

	return counts, nil
}
