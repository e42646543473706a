/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package labparse

import (
	"fmt"
	"math"
	"strings"
)

// Sex selects sex-specific normal ranges.
type Sex string

// Sex values accepted by the extractor.
const (
	SexUnknown Sex = ""
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
)

// ParseSex maps free text such as "Female", "M" or " male " to a Sex.
// Anything unrecognised is SexUnknown.
func ParseSex(value string) Sex {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "male", "m", "man":
		return SexMale
	case "female", "f", "woman":
		return SexFemale
	default:
		return SexUnknown
	}
}

// UnknownSexPolicy decides which range applies to a sex-specific test when
// the caller does not know the patient's sex.
type UnknownSexPolicy string

// UnknownSexPolicy values.
const (
	// PolicyIndeterminate applies no range; the result is reported as
	// Indeterminate and never flagged abnormal.
	PolicyIndeterminate UnknownSexPolicy = "indeterminate"
	// PolicyMale applies the male range.
	PolicyMale UnknownSexPolicy = "male"
	// PolicyWidest applies the union of the male and female ranges.
	PolicyWidest UnknownSexPolicy = "widest"
)

// ParseUnknownSexPolicy parses a policy name. The empty string selects
// PolicyIndeterminate.
func ParseUnknownSexPolicy(value string) (UnknownSexPolicy, error) {
	switch UnknownSexPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyIndeterminate:
		return PolicyIndeterminate, nil
	case PolicyMale:
		return PolicyMale, nil
	case PolicyWidest:
		return PolicyWidest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, value)
	}
}

// Range is a closed [Min, Max] interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Classify compares a value against the range.
func (r Range) Classify(value float64) Status {
	switch {
	case math.IsNaN(value):
		return StatusInvalid
	case value < r.Min:
		return StatusLow
	case value > r.Max:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// NormalRange is either a single default range or a male/female pair.
type NormalRange struct {
	bySex  bool
	all    Range
	male   Range
	female Range
}

// Default returns a range that applies regardless of sex.
func Default(lo, hi float64) NormalRange {
	return NormalRange{all: Range{Min: lo, Max: hi}}
}

// BySex returns a range that differs between male and female patients.
func BySex(male, female Range) NormalRange {
	return NormalRange{bySex: true, male: male, female: female}
}

// IsSexSpecific reports whether the range has separate male and female bounds.
func (n NormalRange) IsSexSpecific() bool {
	return n.bySex
}

// Male returns the male range of a sex-specific range, or the default range.
func (n NormalRange) Male() Range {
	if n.bySex {
		return n.male
	}

	return n.all
}

// Female returns the female range of a sex-specific range, or the default range.
func (n NormalRange) Female() Range {
	if n.bySex {
		return n.female
	}

	return n.all
}

// For selects the range to apply. The boolean is false when the policy
// leaves the range indeterminate.
func (n NormalRange) For(sex Sex, policy UnknownSexPolicy) (Range, bool) {
	if !n.bySex {
		return n.all, true
	}

	switch sex {
	case SexMale:
		return n.male, true
	case SexFemale:
		return n.female, true
	}

	switch policy {
	case PolicyMale:
		return n.male, true
	case PolicyWidest:
		return Range{
			Min: math.Min(n.male.Min, n.female.Min),
			Max: math.Max(n.male.Max, n.female.Max),
		}, true
	default:
		return Range{}, false
	}
}

func (n NormalRange) valid() bool {
	if n.bySex {
		return n.male.Min <= n.male.Max && n.female.Min <= n.female.Max
	}

	return n.all.Min <= n.all.Max && (n.all != Range{})
}
