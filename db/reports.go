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

	"github.com/humaidq/labvault/labparse"
)

// collectionDateLayouts are tried in order; day-first wins over month-first
// for ambiguous slash dates.
var collectionDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02.01.2006",
}

// ParseCollectionDate parses a date captured from a report, or returns nil.
func ParseCollectionDate(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	for _, layout := range collectionDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}

	// Captures may run past the date, e.g. "2024-01-15 Time: 08:30".
	if fields := strings.Fields(value); len(fields) > 1 {
		for n := len(fields) - 1; n >= 1; n-- {
			candidate := strings.Join(fields[:n], " ")
			for _, layout := range collectionDateLayouts {
				if t, err := time.Parse(layout, candidate); err == nil {
					return &t
				}
			}
		}
	}

	return nil
}

// SaveReportInput is an extraction result ready to be stored.
type SaveReportInput struct {
	UserID     string
	FileName   string
	StoredName string
	FileSize   int64
	Sex        labparse.Sex
	Result     *labparse.ExtractionResult
}

// resultRows keeps valid readings in extraction order and counts the rest.
func resultRows(results []labparse.TestResult) ([]ReportTestResult, int) {
	rows := make([]ReportTestResult, 0, len(results))
	skipped := 0

	for _, r := range results {
		if !r.Valid() {
			skipped++
			continue
		}

		row := ReportTestResult{
			Position:   len(rows),
			TestName:   r.Name,
			Value:      r.Value,
			Unit:       r.Unit,
			IsAbnormal: r.Abnormal,
			Status:     string(r.Status),
			Specialty:  r.Specialty,
		}

		if r.Range != nil {
			lo, hi := r.Range.Min, r.Range.Max
			row.RangeMin = &lo
			row.RangeMax = &hi
		}

		rows = append(rows, row)
	}

	return rows, skipped
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}

// SaveReport stores a report with its results and recommendations in one
// transaction. Readings whose value could not be parsed are not stored; the
// number dropped is recorded on the report.
func SaveReport(ctx context.Context, input SaveReportInput) (string, error) {
	if pool == nil {
		return "", ErrDatabaseConnectionNotInitialized
	}

	result := input.Result
	if result == nil {
		result = &labparse.ExtractionResult{}
	}

	rows, skipped := resultRows(result.TestResults)
	if skipped > 0 {
		logger.Warn("Dropping unparseable readings", "stored_name", input.StoredName, "count", skipped)
	}

	var (
		patientName, patientGender, rawDate *string
		patientAge                          *int
		collectionDate                      *time.Time
		labName, labReportID                *string
	)

	if p := result.PatientInfo; p != nil {
		patientName = optionalString(p.Name)
		patientGender = optionalString(p.Gender)
		patientAge = p.Age
		rawDate = optionalString(p.CollectionDate)
		collectionDate = ParseCollectionDate(p.CollectionDate)
	}

	if l := result.LabInfo; l != nil {
		labName = optionalString(l.Name)
		labReportID = optionalString(l.ReportID)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("Failed to roll back report save", "error", err)
		}
	}()

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO reports (
			user_id, file_name, stored_name, file_size,
			patient_name, patient_age, patient_gender,
			collection_date, collection_date_raw, lab_name, lab_report_id,
			sex_used, skipped_readings, processed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, true)
		RETURNING id
	`, input.UserID, input.FileName, input.StoredName, input.FileSize,
		patientName, patientAge, patientGender,
		collectionDate, rawDate, labName, labReportID,
		string(input.Sex), skipped,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}

	batch := &pgx.Batch{}

	for _, row := range rows {
		batch.Queue(`
			INSERT INTO report_test_results (
				report_id, position, test_name, value, unit, range_min, range_max, is_abnormal, status, specialty
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, id, row.Position, row.TestName, row.Value, row.Unit, row.RangeMin, row.RangeMax,
			row.IsAbnormal, row.Status, row.Specialty)
	}

	for i, rec := range labparse.Recommend(result.RecommendedSpecialists) {
		batch.Queue(`
			INSERT INTO report_recommendations (report_id, position, specialist, reason)
			VALUES ($1, $2, $3, $4)
		`, id, i, rec.Specialist, rec.Reason)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return "", fmt.Errorf("failed to insert report results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit report: %w", err)
	}

	return id, nil
}

// ListReports returns a user's reports, newest first.
func ListReports(ctx context.Context, userID string) ([]ReportSummary, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT r.id, r.file_name, COALESCE(NULLIF(r.patient_name, ''), 'Unknown'), r.lab_name,
		       r.uploaded_at, r.processed,
		       COUNT(t.id) FILTER (WHERE t.is_abnormal), COUNT(t.id)
		FROM reports r
		LEFT JOIN report_test_results t ON t.report_id = r.id
		WHERE r.user_id = $1
		GROUP BY r.id
		ORDER BY r.uploaded_at DESC
	`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]ReportSummary, 0)

	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(
			&s.ID, &s.FileName, &s.PatientName, &s.LabName,
			&s.UploadedAt, &s.Processed,
			&s.AbnormalCount, &s.TotalTests,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		reports = append(reports, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

const reportColumns = `
	id, user_id, file_name, stored_name, file_size,
	patient_name, patient_age, patient_gender,
	collection_date, collection_date_raw, lab_name, lab_report_id,
	sex_used, skipped_readings, processed, uploaded_at
`

func scanReport(row pgx.Row, r *Report) error {
	return row.Scan(
		&r.ID, &r.UserID, &r.FileName, &r.StoredName, &r.FileSize,
		&r.PatientName, &r.PatientAge, &r.PatientGender,
		&r.CollectionDate, &r.CollectionDateRaw, &r.LabName, &r.LabReportID,
		&r.SexUsed, &r.SkippedReadings, &r.Processed, &r.UploadedAt,
	)
}

// GetReport returns a report with its results and recommendations.
func GetReport(ctx context.Context, id string) (*ReportDetail, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var detail ReportDetail
	if err := scanReport(pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id), &detail.Report); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}

		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	results, err := listReportResults(ctx, id)
	if err != nil {
		return nil, err
	}

	recs, err := listReportRecommendations(ctx, id)
	if err != nil {
		return nil, err
	}

	detail.Results = results
	detail.Recommendations = recs

	return &detail, nil
}

// GetReportForUser is GetReport with an ownership check.
func GetReportForUser(ctx context.Context, userID, id string) (*ReportDetail, error) {
	detail, err := GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if detail.UserID.String() != userID {
		return nil, ErrReportForbidden
	}

	return detail, nil
}

func listReportResults(ctx context.Context, reportID string) ([]ReportTestResult, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, report_id, position, test_name, value, unit, range_min, range_max, is_abnormal, status, specialty
		FROM report_test_results
		WHERE report_id = $1
		ORDER BY position
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report results: %w", err)
	}
	defer rows.Close()

	results := make([]ReportTestResult, 0)

	for rows.Next() {
		var r ReportTestResult
		if err := rows.Scan(
			&r.ID, &r.ReportID, &r.Position, &r.TestName, &r.Value, &r.Unit,
			&r.RangeMin, &r.RangeMax, &r.IsAbnormal, &r.Status, &r.Specialty,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report result: %w", err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report results: %w", err)
	}

	return results, nil
}

func listReportRecommendations(ctx context.Context, reportID string) ([]ReportRecommendation, error) {
	rows, err := pool.Query(ctx, `
		SELECT specialist, reason
		FROM report_recommendations
		WHERE report_id = $1
		ORDER BY position
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]ReportRecommendation, 0)

	for rows.Next() {
		var r ReportRecommendation
		if err := rows.Scan(&r.Specialist, &r.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}

		recs = append(recs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}

	return recs, nil
}

// DeleteReport removes a user's report and returns its stored file name so
// the caller can delete the file.
func DeleteReport(ctx context.Context, userID, id string) (string, error) {
	if pool == nil {
		return "", ErrDatabaseConnectionNotInitialized
	}

	var owner, storedName string
	err := pool.QueryRow(ctx, `SELECT user_id::text, stored_name FROM reports WHERE id = $1`, id).Scan(&owner, &storedName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrReportNotFound
		}

		return "", fmt.Errorf("failed to get report: %w", err)
	}

	if owner != userID {
		return "", ErrReportForbidden
	}

	if _, err := pool.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return "", fmt.Errorf("failed to delete report: %w", err)
	}

	return storedName, nil
}
