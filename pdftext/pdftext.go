/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package pdftext turns uploaded PDF documents into plain text for the
// lab report extractor.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/humaidq/labvault/logging"
)

var logger = logging.Logger(logging.SourcePDF)

var (
	// ErrNotPDF is returned when the data does not start with a PDF header.
	ErrNotPDF = errors.New("not a PDF document")
	// ErrNoText is returned when no page yielded any text, which usually
	// means the document is a scan without a text layer.
	ErrNoText = errors.New("no extractable text in PDF")
)

var pdfMagic = []byte("%PDF-")

// Document is the text of a PDF with pages joined by newlines.
type Document struct {
	Text      string
	PageCount int
	// SkippedPages lists 1-based pages that had no readable text.
	SkippedPages []int
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Extract reads every page of a PDF and joins their text with "\n".
func Extract(data []byte) (doc *Document, err error) {
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	doc = &Document{PageCount: reader.NumPage()}
	pages := make([]string, 0, doc.PageCount)

	for i := 1; i <= doc.PageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			doc.SkippedPages = append(doc.SkippedPages, i)
			continue
		}

		text, textErr := page.GetPlainText(nil)
		if textErr != nil {
			logger.Warn("Failed to read PDF page text", "page", i, "error", textErr)
			doc.SkippedPages = append(doc.SkippedPages, i)

			continue
		}

		pages = append(pages, text)
	}

	doc.Text = strings.Join(pages, "\n")

	if strings.TrimSpace(doc.Text) == "" {
		return doc, ErrNoText
	}

	return doc, nil
}

// ExtractFile reads and extracts the PDF at path.
func ExtractFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Extract(data)
}
