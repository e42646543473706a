// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package labparse

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func resultNames(results []TestResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}

	return names
}

func findResult(t *testing.T, results []TestResult, name string) TestResult {
	t.Helper()

	for _, r := range results {
		if r.Name == name {
			return r
		}
	}

	t.Fatalf("expected result %q in %v", name, resultNames(results))

	return TestResult{}
}

func TestExtractReportScenario(t *testing.T) {
	t.Parallel()

	text := "Patient: Jane Doe\nAge: 45\nGender: Female\nHemoglobin: 11.0 g/dL\nGlucose: 110 mg/dL\nLDL: 95 mg/dL"
	result := Extract(text, SexFemale)

	wantNames := []string{"Hemoglobin", "LDL", "Glucose"}
	if got := resultNames(result.TestResults); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("expected results %v, got %v", wantNames, got)
	}

	hb := findResult(t, result.TestResults, "Hemoglobin")
	if hb.Status != StatusLow || !hb.Abnormal || hb.Value != 11.0 || hb.Unit != "g/dL" {
		t.Fatalf("unexpected hemoglobin result %+v", hb)
	}
	if hb.Range == nil || *hb.Range != (Range{Min: 12.0, Max: 15.5}) {
		t.Fatalf("expected female hemoglobin range, got %+v", hb.Range)
	}

	glucose := findResult(t, result.TestResults, "Glucose")
	if glucose.Status != StatusHigh || !glucose.Abnormal {
		t.Fatalf("unexpected glucose result %+v", glucose)
	}

	ldl := findResult(t, result.TestResults, "LDL")
	if ldl.Status != StatusNormal || ldl.Abnormal {
		t.Fatalf("unexpected LDL result %+v", ldl)
	}

	wantSpecialists := []string{SpecialtyHematologist, SpecialtyEndocrinologist}
	if !reflect.DeepEqual(result.RecommendedSpecialists, wantSpecialists) {
		t.Fatalf("expected specialists %v, got %v", wantSpecialists, result.RecommendedSpecialists)
	}

	if result.PatientInfo == nil {
		t.Fatalf("expected patient info")
	}
	if result.PatientInfo.Name != "Jane Doe" {
		t.Fatalf("expected name Jane Doe, got %q", result.PatientInfo.Name)
	}
	if result.PatientInfo.Age == nil || *result.PatientInfo.Age != 45 {
		t.Fatalf("expected age 45, got %v", result.PatientInfo.Age)
	}
	if result.PatientInfo.Gender != "female" {
		t.Fatalf("expected gender female, got %q", result.PatientInfo.Gender)
	}
	if result.LabInfo != nil {
		t.Fatalf("expected no lab info, got %+v", result.LabInfo)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   \n\t"} {
		result := Extract(text, SexUnknown)
		if result == nil {
			t.Fatalf("expected non-nil result")
		}
		if result.TestResults == nil || len(result.TestResults) != 0 {
			t.Fatalf("expected empty test results, got %v", result.TestResults)
		}
		if result.RecommendedSpecialists == nil || len(result.RecommendedSpecialists) != 0 {
			t.Fatalf("expected empty specialists, got %v", result.RecommendedSpecialists)
		}
		if result.PatientInfo != nil || result.LabInfo != nil {
			t.Fatalf("expected no metadata for %q", text)
		}
	}
}

func TestExtractSynonyms(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text  string
		name  string
		value float64
	}{
		{text: "HGB: 14.2 g/dL", name: "Hemoglobin", value: 14.2},
		{text: "hb 14.2", name: "Hemoglobin", value: 14.2},
		{text: "WBC - 6.0", name: "White Blood Cells", value: 6.0},
		{text: "Leukocytes: 6.5 ×10^9/L", name: "White Blood Cells", value: 6.5},
		{text: "White Blood Cells 7", name: "White Blood Cells", value: 7},
		{text: "RBC: 5.0", name: "Red Blood Cells", value: 5.0},
		{text: "Erythrocytes 4.8", name: "Red Blood Cells", value: 4.8},
		{text: "PLT 200", name: "Platelets", value: 200},
		{text: "Total Cholesterol: 180 mg/dL", name: "Cholesterol", value: 180},
		{text: "Low Density Lipoprotein: 90", name: "LDL", value: 90},
		{text: "HDL: 55", name: "HDL", value: 55},
		{text: "TG: 120", name: "Triglycerides", value: 120},
		{text: "FBS: 85", name: "Glucose", value: 85},
		{text: "Fasting Blood Sugar 85", name: "Glucose", value: 85},
		{text: "GLU:85", name: "Glucose", value: 85},
		{text: "A1C: 5.0 %", name: "HbA1c", value: 5.0},
		{text: "HbA1c 5.2", name: "HbA1c", value: 5.2},
		{text: "CRE: 1.0", name: "Creatinine", value: 1.0},
		{text: "Blood Urea Nitrogen: 12", name: "BUN", value: 12},
	}

	for _, tc := range cases {
		results, _ := NewDefault(Options{}).ExtractTestResults(tc.text, SexMale)
		if len(results) != 1 {
			t.Fatalf("%q: expected one result, got %v", tc.text, resultNames(results))
		}
		if results[0].Name != tc.name || results[0].Value != tc.value {
			t.Fatalf("%q: expected %s=%v, got %s=%v", tc.text, tc.name, tc.value, results[0].Name, results[0].Value)
		}
	}
}

func TestExtractRequiresWholeWords(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"Acre: 5.0", "Gluten: 85", "Thb 12", "rbcx 4"} {
		result := Extract(text, SexMale)
		if len(result.TestResults) != 0 {
			t.Fatalf("%q: expected no results, got %v", text, resultNames(result.TestResults))
		}
	}
}

func TestExtractRangeBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want Status
	}{
		{text: "Glucose: 70", want: StatusNormal},
		{text: "Glucose: 99", want: StatusNormal},
		{text: "Glucose: 69.99", want: StatusLow},
		{text: "Glucose: 99.01", want: StatusHigh},
	}

	for _, tc := range cases {
		result := Extract(tc.text, SexUnknown)
		r := findResult(t, result.TestResults, "Glucose")
		if r.Status != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.text, tc.want, r.Status)
		}
		if r.Abnormal != (tc.want != StatusNormal) {
			t.Fatalf("%q: abnormal flag %v does not match status %s", tc.text, r.Abnormal, r.Status)
		}
	}
}

func TestExtractUsesFirstOccurrence(t *testing.T) {
	t.Parallel()

	text := "Glucose: 85 mg/dL\n\nSummary\nGlucose: 140 mg/dL"
	result := Extract(text, SexUnknown)

	if len(result.TestResults) != 1 {
		t.Fatalf("expected one result, got %v", resultNames(result.TestResults))
	}
	if r := result.TestResults[0]; r.Value != 85 || r.Status != StatusNormal {
		t.Fatalf("expected first glucose value 85, got %+v", r)
	}
	if len(result.RecommendedSpecialists) != 0 {
		t.Fatalf("expected no specialists, got %v", result.RecommendedSpecialists)
	}
}

func TestExtractDeduplicatesSpecialists(t *testing.T) {
	t.Parallel()

	text := "Hemoglobin: 10\nWBC: 20\nPlatelets: 500\nLDL: 190"
	result := Extract(text, SexMale)

	want := []string{SpecialtyHematologist, SpecialtyCardiologist}
	if !reflect.DeepEqual(result.RecommendedSpecialists, want) {
		t.Fatalf("expected %v, got %v", want, result.RecommendedSpecialists)
	}
	if got := len(result.Abnormal()); got != 4 {
		t.Fatalf("expected 4 abnormal results, got %d", got)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	t.Parallel()

	text := "Name: John Smith\nHb: 12.0\nCholesterol: 210\nCreatinine 1.5\nLab: Central Lab"
	first := Extract(text, SexMale)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if again := Extract(text, SexMale); !reflect.DeepEqual(first, again) {
				t.Errorf("expected identical results, got %+v and %+v", first, again)
			}
		}()
	}
	wg.Wait()
}

func TestExtractMalformedNumber(t *testing.T) {
	t.Parallel()

	result := Extract("Hb: . g/dL\nLDL: .", SexMale)

	if len(result.TestResults) != 2 {
		t.Fatalf("expected two results, got %v", resultNames(result.TestResults))
	}

	for _, r := range result.TestResults {
		if r.Valid() {
			t.Fatalf("expected %s to be invalid, got %v", r.Name, r.Value)
		}
		if r.Status != StatusInvalid || r.Abnormal {
			t.Fatalf("expected %s invalid and not abnormal, got %+v", r.Name, r)
		}
	}

	if len(result.Invalid()) != 2 {
		t.Fatalf("expected two invalid results")
	}
	if len(result.RecommendedSpecialists) != 0 {
		t.Fatalf("expected no specialists for invalid values, got %v", result.RecommendedSpecialists)
	}

	encoded, err := json.Marshal(result.TestResults[0])
	if err != nil {
		t.Fatalf("marshal invalid result: %v", err)
	}
	if !strings.Contains(string(encoded), `"value":null`) {
		t.Fatalf("expected null value, got %s", encoded)
	}
}

func TestExtractReadsLeadingNumber(t *testing.T) {
	t.Parallel()

	result := Extract("Glucose: 85.\nHemoglobin: 14.1.\nCreatinine: 1.2.3 mg/dL", SexMale)

	want := map[string]float64{"Hemoglobin": 14.1, "Glucose": 85, "Creatinine": 1.2}
	if len(result.TestResults) != len(want) {
		t.Fatalf("expected %d results, got %v", len(want), resultNames(result.TestResults))
	}

	for name, value := range want {
		r := findResult(t, result.TestResults, name)
		if !r.Valid() || r.Value != value {
			t.Fatalf("expected %s = %v, got %+v", name, value, r)
		}
		if r.Status == StatusInvalid {
			t.Fatalf("expected %s to be classified, got %s", name, r.Status)
		}
	}
}

func TestExtractSkipsSynonymsInsideOtherTestNames(t *testing.T) {
	t.Parallel()

	result := Extract("Glycated Hemoglobin: 5.6 %", SexFemale)

	if got := resultNames(result.TestResults); !reflect.DeepEqual(got, []string{"HbA1c"}) {
		t.Fatalf("expected only HbA1c, got %v", got)
	}
	if r := result.TestResults[0]; r.Value != 5.6 || r.Abnormal {
		t.Fatalf("expected normal HbA1c 5.6, got %+v", r)
	}
	if len(result.RecommendedSpecialists) != 0 {
		t.Fatalf("expected no specialists, got %v", result.RecommendedSpecialists)
	}

	lipids := Extract("HDL Cholesterol: 55 mg/dL\nTotal Cholesterol: 180 mg/dL", SexFemale)

	if got := resultNames(lipids.TestResults); !reflect.DeepEqual(got, []string{"Cholesterol", "HDL"}) {
		t.Fatalf("expected Cholesterol and HDL, got %v", got)
	}
	if r := findResult(t, lipids.TestResults, "Cholesterol"); r.Value != 180 {
		t.Fatalf("expected total cholesterol 180, got %v", r.Value)
	}
	if r := findResult(t, lipids.TestResults, "HDL"); r.Value != 55 {
		t.Fatalf("expected HDL 55, got %v", r.Value)
	}
}

func TestExtractUnknownSexPolicies(t *testing.T) {
	t.Parallel()

	text := "Hemoglobin: 13.0 g/dL\nWBC: 6.0"

	cases := []struct {
		policy   UnknownSexPolicy
		status   Status
		abnormal bool
		hasRange bool
	}{
		{policy: PolicyIndeterminate, status: StatusIndeterminate, abnormal: false, hasRange: false},
		{policy: PolicyMale, status: StatusLow, abnormal: true, hasRange: true},
		{policy: PolicyWidest, status: StatusNormal, abnormal: false, hasRange: true},
	}

	for _, tc := range cases {
		result := NewDefault(Options{UnknownSex: tc.policy}).Extract(text, SexUnknown)

		hb := findResult(t, result.TestResults, "Hemoglobin")
		if hb.Status != tc.status || hb.Abnormal != tc.abnormal || (hb.Range != nil) != tc.hasRange {
			t.Fatalf("policy %s: unexpected hemoglobin result %+v", tc.policy, hb)
		}

		wbc := findResult(t, result.TestResults, "White Blood Cells")
		if wbc.Status != StatusNormal || wbc.Range == nil {
			t.Fatalf("policy %s: default range should always apply, got %+v", tc.policy, wbc)
		}
	}
}
