/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package labparse extracts blood-test values and report metadata from the
// plain text of a lab report.
//
// Matching is rule based: every registered test has a list of synonyms that
// must appear as whole words, directly followed by an optional ":" or "-"
// separator and a number. Only the first occurrence of each test is used, so
// a report that repeats a value in a summary section keeps the first one.
// Everything in this package is a pure function of its input and is safe for
// concurrent use.
package labparse

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Status is the interpretation of a test value against its normal range.
type Status string

// Status values.
const (
	StatusLow    Status = "Low"
	StatusNormal Status = "Normal"
	StatusHigh   Status = "High"
	// StatusIndeterminate marks a reading with no applicable range.
	StatusIndeterminate Status = "Indeterminate"
	// StatusInvalid marks a match whose number could not be parsed.
	StatusInvalid Status = "Invalid"
)

// TestResult is one matched lab test.
type TestResult struct {
	Name  string
	Value float64 // NaN when the capture has no leading number
	Unit  string
	// Range is the normal range applied, nil when indeterminate.
	Range     *Range
	Abnormal  bool
	Status    Status
	Specialty string
}

// Valid reports whether Value holds a parsed number.
func (r TestResult) Valid() bool {
	return !math.IsNaN(r.Value)
}

// MarshalJSON encodes an invalid value as null.
func (r TestResult) MarshalJSON() ([]byte, error) {
	var value *float64
	if r.Valid() {
		value = &r.Value
	}

	return json.Marshal(struct {
		Name        string   `json:"name"`
		Value       *float64 `json:"value"`
		Unit        string   `json:"unit"`
		NormalRange *Range   `json:"normalRange,omitempty"`
		IsAbnormal  bool     `json:"isAbnormal"`
		Status      Status   `json:"status"`
		Specialty   string   `json:"specialty"`
	}{r.Name, value, r.Unit, r.Range, r.Abnormal, r.Status, r.Specialty})
}

// ExtractionResult is the structured output for one document.
type ExtractionResult struct {
	TestResults            []TestResult `json:"testResults"`
	RecommendedSpecialists []string     `json:"recommendedSpecialists"`
	PatientInfo            *PatientInfo `json:"patientInfo,omitempty"`
	LabInfo                *LabInfo     `json:"labInfo,omitempty"`
}

// Abnormal returns the abnormal results in registry order.
func (e *ExtractionResult) Abnormal() []TestResult {
	abnormal := make([]TestResult, 0)
	for _, r := range e.TestResults {
		if r.Abnormal {
			abnormal = append(abnormal, r)
		}
	}

	return abnormal
}

// Invalid returns the results whose value could not be parsed.
func (e *ExtractionResult) Invalid() []TestResult {
	invalid := make([]TestResult, 0)
	for _, r := range e.TestResults {
		if !r.Valid() {
			invalid = append(invalid, r)
		}
	}

	return invalid
}

// Options configures an Extractor.
type Options struct {
	// UnknownSex picks the range for sex-specific tests when the sex is
	// unknown. The zero value is PolicyIndeterminate.
	UnknownSex UnknownSexPolicy
}

type matcher struct {
	def    TestDefinition
	re     *regexp.Regexp
	reject *regexp.Regexp // nil when the definition has no Exclude
}

// excludeWindow bounds how far back an Exclude word is looked for.
const excludeWindow = 64

// find returns the captured number of the first match not preceded by an
// excluded word.
func (m matcher) find(text string) (string, bool) {
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		if m.reject != nil {
			start := loc[0] - excludeWindow
			if start < 0 {
				start = 0
			}

			if m.reject.MatchString(text[start:loc[0]]) {
				continue
			}
		}

		return text[loc[2]:loc[3]], true
	}

	return "", false
}

// leadingNumber is the numeric prefix of a capture; "14.1." reads as 14.1.
var leadingNumber = regexp.MustCompile(`^\d*\.?\d+`)

// parseReading returns the leading number of raw, or NaN when raw does not
// start with one.
func parseReading(raw string) float64 {
	prefix := leadingNumber.FindString(raw)
	if prefix == "" {
		return math.NaN()
	}

	value, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return math.NaN()
	}

	return value
}

// Extractor matches text against a fixed set of test definitions.
type Extractor struct {
	matchers []matcher
	opts     Options
}

var defaultExtractor = MustNew(registry, Options{})

// New compiles the definitions into an Extractor.
func New(defs []TestDefinition, opts Options) (*Extractor, error) {
	if opts.UnknownSex == "" {
		opts.UnknownSex = PolicyIndeterminate
	}

	seen := make(map[string]bool, len(defs))
	matchers := make([]matcher, 0, len(defs))

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}

		if seen[def.Name] {
			return nil, fmt.Errorf("%s: %w", def.Name, errDuplicateTest)
		}
		seen[def.Name] = true

		re, err := compileTestPattern(def)
		if err != nil {
			return nil, err
		}

		m := matcher{def: def, re: re}

		if def.Exclude != "" {
			m.reject, err = regexp.Compile(`(?i)\b(?:` + def.Exclude + `)[ \t\-]*$`)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid exclude pattern: %w", def.Name, err)
			}
		}

		matchers = append(matchers, m)
	}

	return &Extractor{matchers: matchers, opts: opts}, nil
}

// MustNew is like New but panics on an invalid definition.
func MustNew(defs []TestDefinition, opts Options) *Extractor {
	e, err := New(defs, opts)
	if err != nil {
		panic(err)
	}

	return e
}

// NewDefault returns an Extractor over the built-in registry.
func NewDefault(opts Options) *Extractor {
	return MustNew(registry, opts)
}

// Extract runs the built-in registry over text with the default options.
func Extract(text string, sex Sex) *ExtractionResult {
	return defaultExtractor.Extract(text, sex)
}

// Extract parses text into test results, recommendations and metadata.
// Missing data is never an error; empty text yields an empty result.
func (e *Extractor) Extract(text string, sex Sex) *ExtractionResult {
	result := &ExtractionResult{
		TestResults:            []TestResult{},
		RecommendedSpecialists: []string{},
	}

	if strings.TrimSpace(text) == "" {
		return result
	}

	result.TestResults, result.RecommendedSpecialists = e.ExtractTestResults(text, sex)
	result.PatientInfo = ExtractPatientInfo(text)
	result.LabInfo = ExtractLabInfo(text)

	return result
}

// ExtractTestResults returns one result per matched definition and the
// de-duplicated specialists of abnormal results, in first-seen order.
func (e *Extractor) ExtractTestResults(text string, sex Sex) ([]TestResult, []string) {
	results := make([]TestResult, 0)
	specialists := make([]string, 0)
	seen := make(map[string]bool)

	for _, m := range e.matchers {
		raw, ok := m.find(text)
		if !ok {
			continue
		}

		r := e.interpret(m.def, raw, sex)
		results = append(results, r)

		if r.Abnormal && !seen[m.def.Specialty] {
			seen[m.def.Specialty] = true
			specialists = append(specialists, m.def.Specialty)
		}
	}

	return results, specialists
}

func (e *Extractor) interpret(def TestDefinition, raw string, sex Sex) TestResult {
	value := parseReading(raw)

	r := TestResult{
		Name:      def.Name,
		Value:     value,
		Unit:      def.Unit,
		Specialty: def.Specialty,
	}

	applied, ok := def.Range.For(sex, e.opts.UnknownSex)
	if ok {
		r.Range = &applied
	}

	switch {
	case !r.Valid():
		r.Status = StatusInvalid
	case !ok:
		r.Status = StatusIndeterminate
	default:
		r.Status = applied.Classify(value)
		r.Abnormal = r.Status != StatusNormal
	}

	return r
}

// compileTestPattern builds "<synonym>[:-]<number>[unit]" anchored on word
// boundaries around the synonym.
func compileTestPattern(def TestDefinition) (*regexp.Regexp, error) {
	expr := `(?i)\b(?:` + def.Pattern + `)\b\s*[:\-]?\s*([\d.]+)`
	if def.Unit != "" {
		expr += `\s*(?:` + regexp.QuoteMeta(def.Unit) + `)?`
	}

	return regexp.Compile(expr)
}
