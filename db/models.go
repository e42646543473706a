/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/humaidq/labvault/labparse"
)

// Gender is the biological sex recorded on a health profile.
type Gender string

// Gender values accepted by the health_profiles table.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender normalises form input. The empty string yields nil.
func ParseGender(value string) (*Gender, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return nil, nil //nolint:nilnil // an unset gender is valid
	}

	switch Gender(v) {
	case GenderMale, GenderFemale, GenderOther:
		g := Gender(v)
		return &g, nil
	}

	if sex := labparse.ParseSex(v); sex != labparse.SexUnknown {
		g := Gender(sex)
		return &g, nil
	}

	return nil, ErrInvalidGender
}

// User is an account that owns reports.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// HealthProfile holds the per-user details collected at registration.
type HealthProfile struct {
	UserID      uuid.UUID  `db:"user_id" json:"userId"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	Gender      *Gender    `db:"gender" json:"gender,omitempty"`
	HeightCM    *float64   `db:"height_cm" json:"height,omitempty"`
	WeightKG    *float64   `db:"weight_kg" json:"weight,omitempty"`
	BloodType   *string    `db:"blood_type" json:"bloodType,omitempty"`
	Allergies   []string   `db:"allergies" json:"allergies"`
	Medications []string   `db:"medications" json:"medications"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// GetAge calculates the age in years at a given date
func (h *HealthProfile) GetAge(atDate time.Time) *int {
	if h.DateOfBirth == nil {
		return nil
	}

	years := atDate.Year() - h.DateOfBirth.Year()
	// Adjust if birthday hasn't occurred yet this year
	if atDate.Month() < h.DateOfBirth.Month() ||
		(atDate.Month() == h.DateOfBirth.Month() && atDate.Day() < h.DateOfBirth.Day()) {
		years--
	}

	return &years
}

// Sex maps the profile gender to the extractor's range selector.
func (h *HealthProfile) Sex() labparse.Sex {
	if h == nil || h.Gender == nil {
		return labparse.SexUnknown
	}

	return labparse.ParseSex(string(*h.Gender))
}

// BMI returns weight / height² or nil when either is missing.
func (h *HealthProfile) BMI() *float64 {
	if h.HeightCM == nil || h.WeightKG == nil || *h.HeightCM <= 0 {
		return nil
	}

	m := *h.HeightCM / 100
	bmi := *h.WeightKG / (m * m)

	return &bmi
}

// Report is one uploaded lab report and its extracted metadata.
type Report struct {
	ID                uuid.UUID  `db:"id"`
	UserID            uuid.UUID  `db:"user_id"`
	FileName          string     `db:"file_name"`
	StoredName        string     `db:"stored_name"`
	FileSize          int64      `db:"file_size"`
	PatientName       *string    `db:"patient_name"`
	PatientAge        *int       `db:"patient_age"`
	PatientGender     *string    `db:"patient_gender"`
	CollectionDate    *time.Time `db:"collection_date"`
	CollectionDateRaw *string    `db:"collection_date_raw"`
	LabName           *string    `db:"lab_name"`
	LabReportID       *string    `db:"lab_report_id"`
	SexUsed           string     `db:"sex_used"`
	SkippedReadings   int        `db:"skipped_readings"`
	Processed         bool       `db:"processed"`
	UploadedAt        time.Time  `db:"uploaded_at"`
}

// DisplayPatientName returns the extracted patient name or "Unknown".
func (r *Report) DisplayPatientName() string {
	if r.PatientName == nil || *r.PatientName == "" {
		return "Unknown"
	}

	return *r.PatientName
}

// ReportTestResult is a stored, valid test reading.
type ReportTestResult struct {
	ID         uuid.UUID `db:"id"`
	ReportID   uuid.UUID `db:"report_id"`
	Position   int       `db:"position"`
	TestName   string    `db:"test_name"`
	Value      float64   `db:"value"`
	Unit       string    `db:"unit"`
	RangeMin   *float64  `db:"range_min"`
	RangeMax   *float64  `db:"range_max"`
	IsAbnormal bool      `db:"is_abnormal"`
	Status     string    `db:"status"`
	Specialty  string    `db:"specialty"`
}

// ReportRecommendation is a stored specialist recommendation.
type ReportRecommendation struct {
	Specialist string `db:"specialist"`
	Reason     string `db:"reason"`
}

// ReportDetail is a report with its results and recommendations.
type ReportDetail struct {
	Report
	Results         []ReportTestResult
	Recommendations []ReportRecommendation
}

// AbnormalCount counts abnormal results.
func (d *ReportDetail) AbnormalCount() int {
	n := 0
	for _, r := range d.Results {
		if r.IsAbnormal {
			n++
		}
	}

	return n
}

// ReportSummary is a row of the reports list.
type ReportSummary struct {
	ID            uuid.UUID `db:"id"`
	FileName      string    `db:"file_name"`
	PatientName   string    `db:"patient_name"`
	LabName       *string   `db:"lab_name"`
	UploadedAt    time.Time `db:"uploaded_at"`
	Processed     bool      `db:"processed"`
	AbnormalCount int       `db:"abnormal_count"`
	TotalTests    int       `db:"total_tests"`
}

// LabTest is a row of the synced test catalog.
type LabTest struct {
	Name      string  `db:"name"`
	Position  int     `db:"position"`
	Pattern   string  `db:"pattern"`
	Unit      string  `db:"unit"`
	Specialty string  `db:"specialty"`
	MaleMin   float64 `db:"male_min"`
	MaleMax   float64 `db:"male_max"`
	FemaleMin float64 `db:"female_min"`
	FemaleMax float64 `db:"female_max"`
	BySex     bool    `db:"by_sex"`
}

// TestNameCount is a test that appears in a user's reports.
type TestNameCount struct {
	TestName string `db:"test_name"`
	Unit     string `db:"unit"`
	Count    int    `db:"count"`
}

// TestHistoryPoint is one reading of a test over time.
type TestHistoryPoint struct {
	ReportID   uuid.UUID `db:"report_id"`
	Date       time.Time `db:"date"`
	Value      float64   `db:"value"`
	RangeMin   *float64  `db:"range_min"`
	RangeMax   *float64  `db:"range_max"`
	IsAbnormal bool      `db:"is_abnormal"`
}

// SpecialtyCount counts abnormal readings per specialty.
type SpecialtyCount struct {
	Specialty string `db:"specialty"`
	Count     int    `db:"count"`
}

// DashboardStats summarises a user's reports.
type DashboardStats struct {
	TotalReports  int
	TotalTests    int
	AbnormalTests int
	LastUpload    *time.Time
}
