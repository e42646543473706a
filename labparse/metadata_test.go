// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package labparse

import "testing"

func TestExtractPatientAndLabInfo(t *testing.T) {
	t.Parallel()

	text := "Patient Name: John Smith\nSex: M\nAge - 32\nDate: 2024-01-15\nLaboratory: City Lab\nReport ID: R-123\nGlucose: 85"

	patient := ExtractPatientInfo(text)
	if patient == nil {
		t.Fatalf("expected patient info")
	}
	if patient.Name != "John Smith" {
		t.Fatalf("expected name John Smith, got %q", patient.Name)
	}
	if patient.Gender != "m" {
		t.Fatalf("expected gender m, got %q", patient.Gender)
	}
	if patient.Age == nil || *patient.Age != 32 {
		t.Fatalf("expected age 32, got %v", patient.Age)
	}
	if patient.CollectionDate != "2024-01-15" {
		t.Fatalf("expected date 2024-01-15, got %q", patient.CollectionDate)
	}

	lab := ExtractLabInfo(text)
	if lab == nil {
		t.Fatalf("expected lab info")
	}
	if lab.Name != "City Lab" || lab.ReportID != "R-123" {
		t.Fatalf("unexpected lab info %+v", lab)
	}
}

func TestExtractMetadataAbsent(t *testing.T) {
	t.Parallel()

	if info := ExtractPatientInfo("Glucose: 85 mg/dL"); info != nil {
		t.Fatalf("expected nil patient info, got %+v", info)
	}
	if info := ExtractLabInfo("Glucose: 85 mg/dL"); info != nil {
		t.Fatalf("expected nil lab info, got %+v", info)
	}
}

func TestExtractPatientNameStaysOnLine(t *testing.T) {
	t.Parallel()

	info := ExtractPatientInfo("Name:\nGlucose: 85\nAge: 50")
	if info == nil {
		t.Fatalf("expected patient info")
	}
	if info.Name != "" {
		t.Fatalf("expected empty name, got %q", info.Name)
	}
	if info.Age == nil || *info.Age != 50 {
		t.Fatalf("expected age 50, got %v", info.Age)
	}
}

func TestExtractLabNameIsNotPatientName(t *testing.T) {
	t.Parallel()

	text := "Lab Name: City Lab\nPatient: Jane Doe\nGlucose: 85"

	patient := ExtractPatientInfo(text)
	if patient == nil || patient.Name != "Jane Doe" {
		t.Fatalf("expected patient Jane Doe, got %+v", patient)
	}

	lab := ExtractLabInfo(text)
	if lab == nil || lab.Name != "City Lab" {
		t.Fatalf("expected lab City Lab, got %+v", lab)
	}

	if info := ExtractPatientInfo("Laboratory Name: North Clinic"); info != nil {
		t.Fatalf("expected no patient info, got %+v", info)
	}
}
