/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps files in a single local directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed and returns a store rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes data to a temporary file and links it into place, so a
// reader never sees a partial file and an existing name is never replaced.
func (s *DiskStore) Save(_ context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload_*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to remove temp upload", "path", tmpPath, "error", err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write upload: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close upload: %w", err)
	}

	if err := os.Link(tmpPath, filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrFileExists
		}

		return fmt.Errorf("failed to finalize upload: %w", err)
	}

	return nil
}

// Open returns the stored file for reading.
func (s *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}

		return nil, fmt.Errorf("failed to open upload: %w", err)
	}

	return f, nil
}

// Remove deletes the stored file.
func (s *DiskStore) Remove(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}

		return fmt.Errorf("failed to remove upload: %w", err)
	}

	return nil
}
