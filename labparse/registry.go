/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package labparse

import (
	"fmt"
	"regexp"
)

// Specialty values name the specialist recommended for an abnormal test.
const (
	SpecialtyHematologist    = "Hematologist"
	SpecialtyCardiologist    = "Cardiologist"
	SpecialtyEndocrinologist = "Endocrinologist"
	SpecialtyNephrologist    = "Nephrologist"
)

// TestDefinition describes one recognised lab test.
type TestDefinition struct {
	// Name is the canonical test name reported regardless of document wording.
	Name string
	// Pattern is a case-insensitive regular expression fragment listing the
	// test's synonyms. It is anchored on word boundaries when compiled.
	Pattern string
	// Exclude lists words that make a synonym part of another test's name
	// when they come right before it, e.g. "glycated" before "hemoglobin".
	// Such matches are skipped and the search moves on.
	Exclude   string
	Unit      string
	Range     NormalRange
	Specialty string
}

// Validate reports whether the definition can be compiled into a matcher.
func (d TestDefinition) Validate() error {
	if d.Name == "" {
		return errMissingTestName
	}

	if d.Pattern == "" {
		return fmt.Errorf("%s: %w", d.Name, errMissingPattern)
	}

	if !d.Range.valid() {
		return fmt.Errorf("%s: %w", d.Name, errMissingRange)
	}

	if _, err := regexp.Compile(d.Pattern); err != nil {
		return fmt.Errorf("%s: invalid pattern: %w", d.Name, err)
	}

	if d.Exclude != "" {
		if _, err := regexp.Compile(d.Exclude); err != nil {
			return fmt.Errorf("%s: invalid exclude pattern: %w", d.Name, err)
		}
	}

	return nil
}

// registry is iterated in declaration order; results follow this order.
var registry = []TestDefinition{
	// Complete blood count
	{
		Name: "Hemoglobin", Pattern: `hemoglobin|hgb|hb`, Exclude: `glycated|glycosylated`, Unit: "g/dL",
		Range:     BySex(Range{Min: 13.5, Max: 17.5}, Range{Min: 12.0, Max: 15.5}),
		Specialty: SpecialtyHematologist,
	},
	{
		Name: "White Blood Cells", Pattern: `white\s*blood\s*cells|wbc|leukocytes`, Unit: "×10^9/L",
		Range:     Default(4.5, 11.0),
		Specialty: SpecialtyHematologist,
	},
	{
		Name: "Red Blood Cells", Pattern: `red\s*blood\s*cells|rbc|erythrocytes`, Unit: "×10^12/L",
		Range:     BySex(Range{Min: 4.5, Max: 5.9}, Range{Min: 4.1, Max: 5.1}),
		Specialty: SpecialtyHematologist,
	},
	{
		Name: "Platelets", Pattern: `platelets|plt`, Unit: "×10^9/L",
		Range:     Default(150, 450),
		Specialty: SpecialtyHematologist,
	},

	// Lipid panel
	{
		Name: "Cholesterol", Pattern: `total\s*cholesterol|cholesterol`, Exclude: `hdl|ldl|lipoprotein`, Unit: "mg/dL",
		Range:     Default(0, 200), // <200 desirable
		Specialty: SpecialtyCardiologist,
	},
	{
		Name: "LDL", Pattern: `ldl(?:[ \t\-]*(?:cholesterol|c))?|low\s*density\s*lipoprotein(?:[ \t]*cholesterol)?`, Unit: "mg/dL",
		Range:     Default(0, 100), // <100 optimal
		Specialty: SpecialtyCardiologist,
	},
	{
		Name: "HDL", Pattern: `hdl(?:[ \t\-]*(?:cholesterol|c))?|high\s*density\s*lipoprotein(?:[ \t]*cholesterol)?`, Unit: "mg/dL",
		Range:     BySex(Range{Min: 40, Max: 999}, Range{Min: 50, Max: 999}),
		Specialty: SpecialtyCardiologist,
	},
	{
		Name: "Triglycerides", Pattern: `triglycerides|tg`, Unit: "mg/dL",
		Range:     Default(0, 150),
		Specialty: SpecialtyCardiologist,
	},

	// Metabolic panel
	{
		Name: "Glucose", Pattern: `glucose|glu|fasting\s*blood\s*sugar|fbs`, Unit: "mg/dL",
		Range:     Default(70, 99), // fasting
		Specialty: SpecialtyEndocrinologist,
	},
	{
		Name: "HbA1c", Pattern: `hba1c|glycated\s*hemoglobin|glycosylated\s*hemoglobin|a1c`, Unit: "%",
		Range:     Default(4.0, 5.6),
		Specialty: SpecialtyEndocrinologist,
	},
	{
		Name: "Creatinine", Pattern: `creatinine|cre`, Unit: "mg/dL",
		Range:     BySex(Range{Min: 0.74, Max: 1.35}, Range{Min: 0.59, Max: 1.04}),
		Specialty: SpecialtyNephrologist,
	},
	{
		Name: "BUN", Pattern: `blood\s*urea\s*nitrogen|bun`, Unit: "mg/dL",
		Range:     Default(7, 20),
		Specialty: SpecialtyNephrologist,
	},
}

// Definitions returns a copy of the built-in registry in iteration order.
func Definitions() []TestDefinition {
	defs := make([]TestDefinition, len(registry))
	copy(defs, registry)

	return defs
}

// LookupDefinition returns the built-in definition with the given canonical name.
func LookupDefinition(name string) (TestDefinition, bool) {
	for _, def := range registry {
		if def.Name == name {
			return def, true
		}
	}

	return TestDefinition{}, false
}
