/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package storage keeps uploaded report files, either on local disk or on a
// WebDAV share.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/humaidq/labvault/logging"
)

var logger = logging.Logger(logging.SourceStorage)

var (
	// ErrFileExists is returned when a stored name is already taken.
	ErrFileExists = errors.New("file already exists")
	// ErrFileNotFound is returned when a stored name does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidName is returned for names that are empty or escape the store.
	ErrInvalidName = errors.New("invalid file name")
	// ErrWebDAVURLRequired is returned when a WebDAV store has no base URL.
	ErrWebDAVURLRequired = errors.New("webdav url is required")
)

// Store persists uploaded files under flat names.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// StoredName builds the on-store name of an upload:
// "<owner>_<unix millis>_<original name with whitespace runs replaced by _>".
func StoredName(owner string, at time.Time, original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" {
		base = "upload"
	}

	base = whitespaceRe.ReplaceAllString(base, "_")

	return fmt.Sprintf("%s_%d_%s", owner, at.UnixMilli(), base)
}

// validateName rejects anything that is not a single path element.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}

	if strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}
