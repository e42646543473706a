/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package labparse

import (
	"regexp"
	"strconv"
	"strings"
)

// PatientInfo is the patient metadata found in a report header.
type PatientInfo struct {
	Name           string `json:"name,omitempty"`
	Age            *int   `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	CollectionDate string `json:"collectionDate,omitempty"`
}

// LabInfo identifies the issuing laboratory.
type LabInfo struct {
	Name     string `json:"name,omitempty"`
	ReportID string `json:"reportId,omitempty"`
}

// Label and value are separated by spaces or tabs only, so a capture never
// runs into the next line.
const sep = `\b[ \t]*[:\-]?[ \t]*`

var (
	patientNameRe = regexp.MustCompile(`(?i)\b(?:patient\s*name|patient|name)` + sep + `([A-Za-z][A-Za-z .\t]*)`)
	patientAgeRe  = regexp.MustCompile(`(?i)\b(?:age|years|yrs)` + sep + `(\d+)`)
	genderRe      = regexp.MustCompile(`(?i)\b(?:gender|sex)` + sep + `([A-Za-z]+)`)
	collectedRe   = regexp.MustCompile(`(?i)\b(?:sample\s*date|collection\s*date|collected|date)` + sep + `([A-Za-z0-9][A-Za-z0-9 ,./\-]*)`)
	labNameRe     = regexp.MustCompile(`(?i)\b(?:lab(?:oratory)?[ \t]*name|laboratory|lab|report\s*from)` + sep + `([A-Za-z][A-Za-z .]*)`)
	reportIDRe    = regexp.MustCompile(`(?i)\b(?:report\s*id|sample\s*id|specimen\s*id)` + sep + `([A-Za-z0-9\-]+)`)

	// "Lab Name:" labels the laboratory, not the patient.
	labPrefixRe = regexp.MustCompile(`(?i)\blab(?:oratory)?[ \t]*$`)
)

func firstCapture(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m[1])
}

// firstCaptureNotAfter is firstCapture skipping matches whose preceding
// text on the line ends with prefix.
func firstCaptureNotAfter(re, prefix *regexp.Regexp, text string) string {
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		lineStart := strings.LastIndexByte(text[:loc[0]], '\n') + 1
		if prefix.MatchString(text[lineStart:loc[0]]) {
			continue
		}

		return strings.TrimSpace(text[loc[2]:loc[3]])
	}

	return ""
}

// ExtractPatientInfo returns the first name, age, gender and collection date
// found in text, or nil when none of them is present.
func ExtractPatientInfo(text string) *PatientInfo {
	info := PatientInfo{
		Name:           firstCaptureNotAfter(patientNameRe, labPrefixRe, text),
		Gender:         strings.ToLower(firstCapture(genderRe, text)),
		CollectionDate: firstCapture(collectedRe, text),
	}

	if raw := firstCapture(patientAgeRe, text); raw != "" {
		if age, err := strconv.Atoi(raw); err == nil {
			info.Age = &age
		}
	}

	if info == (PatientInfo{}) {
		return nil
	}

	return &info
}

// ExtractLabInfo returns the laboratory name and report identifier found in
// text, or nil when neither is present.
func ExtractLabInfo(text string) *LabInfo {
	info := LabInfo{
		Name:     firstCapture(labNameRe, text),
		ReportID: firstCapture(reportIDRe, text),
	}

	if info == (LabInfo{}) {
		return nil
	}

	return &info
}
