/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/labvault/labparse"
	"github.com/humaidq/labvault/pdftext"
)

var CmdExtract = newExtractCommand()

func newExtractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract blood test results from a lab report PDF or text file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sex",
				Usage: "patient sex used for sex-specific ranges: male, female or empty to use the report",
			},
			&cli.StringFlag{
				Name:    "unknown-sex-policy",
				Value:   string(labparse.PolicyIndeterminate),
				Sources: cli.EnvVars("UNKNOWN_SEX_POLICY"),
				Usage:   "range used for sex-specific tests when the sex is unknown: indeterminate, male or widest",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "output format: json or text",
			},
		},
		Action: extract,
	}
}

// readReportText returns the text of a PDF, or the file contents verbatim
// for anything else.
func readReportText(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !pdftext.IsPDF(data) {
		return string(data), nil
	}

	doc, err := pdftext.Extract(data)
	if err != nil {
		return "", err
	}

	if len(doc.SkippedPages) > 0 {
		appLogger.Warn("Some pages had no readable text", "file", filepath.Base(path), "pages", doc.SkippedPages)
	}

	return doc.Text, nil
}

func extract(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errInputFileRequired
	}

	format := strings.ToLower(cmd.String("format"))
	if format != "json" && format != "text" {
		return errInvalidFormat
	}

	policy, err := labparse.ParseUnknownSexPolicy(cmd.String("unknown-sex-policy"))
	if err != nil {
		return err
	}

	text, err := readReportText(path)
	if err != nil {
		return err
	}

	extractor := labparse.NewDefault(labparse.Options{UnknownSex: policy})

	sex := labparse.ParseSex(cmd.String("sex"))
	result := extractor.Extract(text, sex)

	// Fall back to the sex printed on the report.
	if sex == labparse.SexUnknown && result.PatientInfo != nil {
		if printed := labparse.ParseSex(result.PatientInfo.Gender); printed != labparse.SexUnknown {
			result = extractor.Extract(text, printed)
		}
	}

	out := commandWriter(cmd)

	if format == "json" {
		return writeExtractionJSON(out, result)
	}

	return writeExtractionText(out, result)
}

func writeExtractionJSON(w io.Writer, result *labparse.ExtractionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	abnormalStyle = cellStyle.Foreground(lipgloss.Color("9"))
)

func rangeText(r *labparse.Range) string {
	if r == nil {
		return "n/a"
	}

	return formatRange(&r.Min, &r.Max)
}

func writeExtractionText(w io.Writer, result *labparse.ExtractionResult) error {
	var b strings.Builder

	if p := result.PatientInfo; p != nil {
		fmt.Fprintf(&b, "Patient: %s\n", valueOr(p.Name, "Unknown"))

		if p.Age != nil {
			fmt.Fprintf(&b, "Age: %d\n", *p.Age)
		}

		if p.Gender != "" {
			fmt.Fprintf(&b, "Gender: %s\n", p.Gender)
		}

		if p.CollectionDate != "" {
			fmt.Fprintf(&b, "Collected: %s\n", p.CollectionDate)
		}
	}

	if l := result.LabInfo; l != nil && (l.Name != "" || l.ReportID != "") {
		fmt.Fprintf(&b, "Laboratory: %s", valueOr(l.Name, "Unknown"))

		if l.ReportID != "" {
			fmt.Fprintf(&b, " (report %s)", l.ReportID)
		}

		b.WriteString("\n")
	}

	if len(result.TestResults) == 0 {
		b.WriteString("No known blood tests found.\n")

		_, err := io.WriteString(w, b.String())

		return err
	}

	abnormalRows := make(map[int]bool)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Test", "Value", "Unit", "Normal range", "Status", "Specialty")

	for i, r := range result.TestResults {
		t.Row(r.Name, formatValue(r.Value), r.Unit, rangeText(r.Range), string(r.Status), r.Specialty)

		if r.Abnormal {
			abnormalRows[i] = true
		}
	}

	t.StyleFunc(func(row, _ int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case abnormalRows[row]:
			return abnormalStyle
		default:
			return cellStyle
		}
	})

	b.WriteString(t.String())
	b.WriteString("\n")

	if recs := labparse.Recommend(result.RecommendedSpecialists); len(recs) > 0 {
		b.WriteString("\nRecommended specialists:\n")

		for _, rec := range recs {
			fmt.Fprintf(&b, "  - %s: %s\n", rec.Specialist, rec.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
