/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/humaidq/labvault/db"
)

const dateInputLayout = "2006-01-02"

func optionalDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil //nolint:nilnil // empty input leaves the field unset
	}

	t, err := time.Parse(dateInputLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidDate, value)
	}

	if t.After(time.Now()) {
		return nil, fmt.Errorf("%w: %q is in the future", errInvalidDate, value)
	}

	return &t, nil
}

func optionalPositiveFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil //nolint:nilnil // empty input leaves the field unset
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return nil, fmt.Errorf("%w: %q", errInvalidNumber, value)
	}

	return &f, nil
}

func optionalText(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	return &value
}

// profileFields is the health profile as submitted, either from an HTML form
// or a JSON body.
type profileFields struct {
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Height      string `json:"height"`
	Weight      string `json:"weight"`
	BloodType   string `json:"bloodType"`
	Allergies   string `json:"allergies"`
	Medications string `json:"medications"`
}

func (p profileFields) input() (db.HealthProfileInput, error) {
	var (
		in  db.HealthProfileInput
		err error
	)

	if in.DateOfBirth, err = optionalDate(p.DateOfBirth); err != nil {
		return in, fmt.Errorf("date of birth: %w", err)
	}

	if in.Gender, err = db.ParseGender(p.Gender); err != nil {
		return in, err
	}

	if in.HeightCM, err = optionalPositiveFloat(p.Height); err != nil {
		return in, fmt.Errorf("height: %w", err)
	}

	if in.WeightKG, err = optionalPositiveFloat(p.Weight); err != nil {
		return in, fmt.Errorf("weight: %w", err)
	}

	in.BloodType = optionalText(p.BloodType)
	in.Allergies = db.SplitList(p.Allergies)
	in.Medications = db.SplitList(p.Medications)

	return in, nil
}

type formValuer interface {
	FormValue(key string) string
}

func profileFieldsFromForm(r formValuer) profileFields {
	return profileFields{
		DateOfBirth: r.FormValue("date_of_birth"),
		Gender:      r.FormValue("gender"),
		Height:      r.FormValue("height"),
		Weight:      r.FormValue("weight"),
		BloodType:   r.FormValue("blood_type"),
		Allergies:   r.FormValue("allergies"),
		Medications: r.FormValue("medications"),
	}
}
