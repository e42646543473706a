// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
)

const extractSample = "Patient: Jane Doe\nAge: 45\nGender: Female\nCollection Date: 2024-01-15\n" +
	"Laboratory: City Lab\nReport ID: R-100\n" +
	"Hemoglobin: 11.0 g/dL\nGlucose: 110 mg/dL\nLDL: 95 mg/dL\n"

func writeSample(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}

	return path
}

func runExtract(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := &cli.Command{
		Name:     "labvault",
		Writer:   &out,
		Commands: []*cli.Command{newExtractCommand()},
	}

	err := root.Run(context.Background(), append([]string{"labvault", "extract"}, args...))

	return out.String(), err
}

func TestExtractJSONUsesPrintedSex(t *testing.T) {
	t.Parallel()

	out, err := runExtract(t, "--format", "json", writeSample(t, extractSample))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var result struct {
		TestResults []struct {
			Name       string   `json:"name"`
			Value      *float64 `json:"value"`
			Status     string   `json:"status"`
			IsAbnormal bool     `json:"isAbnormal"`
		} `json:"testResults"`
		RecommendedSpecialists []string `json:"recommendedSpecialists"`
		PatientInfo            struct {
			Name string `json:"name"`
		} `json:"patientInfo"`
	}

	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to decode output %q: %v", out, err)
	}

	if len(result.TestResults) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.TestResults))
	}

	// 11.0 is only low against the female range.
	if hb := result.TestResults[0]; hb.Name != "Hemoglobin" || hb.Status != "Low" || !hb.IsAbnormal {
		t.Fatalf("expected low hemoglobin, got %+v", hb)
	}

	want := []string{"Hematologist", "Endocrinologist"}
	if strings.Join(result.RecommendedSpecialists, ",") != strings.Join(want, ",") {
		t.Fatalf("expected specialists %v, got %v", want, result.RecommendedSpecialists)
	}

	if result.PatientInfo.Name != "Jane Doe" {
		t.Fatalf("expected patient Jane Doe, got %q", result.PatientInfo.Name)
	}
}

func TestExtractSexFlagOverridesReport(t *testing.T) {
	t.Parallel()

	out, err := runExtract(t, "--format", "json", "--sex", "male", writeSample(t, extractSample))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if !strings.Contains(out, `"status": "Low"`) {
		t.Fatalf("expected hemoglobin to stay low for male range, got %s", out)
	}
}

func TestExtractTextOutput(t *testing.T) {
	t.Parallel()

	out, err := runExtract(t, writeSample(t, extractSample))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	for _, want := range []string{"Patient: Jane Doe", "Laboratory: City Lab (report R-100)", "Hemoglobin", "Glucose", "Recommended specialists:", "Endocrinologist"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestExtractTextNoResults(t *testing.T) {
	t.Parallel()

	out, err := runExtract(t, writeSample(t, "nothing to see here"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if !strings.Contains(out, "No known blood tests found.") {
		t.Fatalf("expected empty notice, got %q", out)
	}
}

func TestExtractRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := runExtract(t); !errors.Is(err, errInputFileRequired) {
		t.Fatalf("expected errInputFileRequired, got %v", err)
	}

	path := writeSample(t, extractSample)

	if _, err := runExtract(t, "--format", "xml", path); !errors.Is(err, errInvalidFormat) {
		t.Fatalf("expected errInvalidFormat, got %v", err)
	}

	if _, err := runExtract(t, "--unknown-sex-policy", "coinflip", path); err == nil {
		t.Fatalf("expected invalid policy error")
	}

	if _, err := runExtract(t, filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
