/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
)

// WebDAVConfig points a WebDAVStore at a collection.
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// WebDAVStore keeps files in a WebDAV collection.
type WebDAVStore struct {
	baseURL    *url.URL
	httpClient *http.Client
	client     *webdav.Client
}

// basicAuthTransport adds HTTP Basic Authentication to all requests
type basicAuthTransport struct {
	Username string
	Password string
	Base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	return t.Base.RoundTrip(req)
}

// NewWebDAVStore returns a store writing into the collection at cfg.URL.
func NewWebDAVStore(cfg WebDAVConfig) (*WebDAVStore, error) {
	endpoint := strings.TrimRight(cfg.URL, "/")
	if endpoint == "" {
		return nil, ErrWebDAVURLRequired
	}

	endpoint += "/"

	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid webdav url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.Username != "" && cfg.Password != "" {
		transport = &basicAuthTransport{
			Username: cfg.Username,
			Password: cfg.Password,
			Base:     http.DefaultTransport,
		}
	}

	httpClient := &http.Client{Timeout: timeout, Transport: transport}

	client, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebDAV client: %w", err)
	}

	return &WebDAVStore{baseURL: baseURL, httpClient: httpClient, client: client}, nil
}

// Save uploads to a temporary name, checks the size and moves it into place
// without overwriting.
func (s *WebDAVStore) Save(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	exists, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return ErrFileExists
	}

	tempName := fmt.Sprintf(".lv_upload_%d_%s", time.Now().UnixNano(), name)

	if err := s.put(ctx, tempName, data); err != nil {
		s.cleanup(ctx, tempName)
		return err
	}

	info, err := s.client.Stat(ctx, tempName)
	if err != nil {
		s.cleanup(ctx, tempName)
		return fmt.Errorf("failed to verify uploaded file: %w", err)
	}
	if info.Size != int64(len(data)) {
		s.cleanup(ctx, tempName)
		return fmt.Errorf("uploaded size mismatch: expected %d bytes, got %d", len(data), info.Size)
	}

	if err := s.client.Move(ctx, tempName, name, &webdav.MoveOptions{NoOverwrite: true}); err != nil {
		s.cleanup(ctx, tempName)
		if exists, existsErr := s.exists(ctx, name); existsErr == nil && exists {
			return ErrFileExists
		}

		return fmt.Errorf("failed to finalize upload: %w", err)
	}

	return nil
}

// Open streams a stored file.
func (s *WebDAVStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	rc, err := s.client.Open(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrFileNotFound
		}

		return nil, fmt.Errorf("failed to open WebDAV file: %w", err)
	}

	return rc, nil
}

// Remove deletes a stored file.
func (s *WebDAVStore) Remove(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	exists, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return ErrFileNotFound
	}

	if err := s.client.RemoveAll(ctx, name); err != nil {
		return fmt.Errorf("failed to delete WebDAV file: %w", err)
	}

	return nil
}

func (s *WebDAVStore) put(ctx context.Context, name string, data []byte) error {
	entryURL := *s.baseURL
	entryURL.Path = path.Join(strings.TrimSuffix(entryURL.Path, "/"), name)
	if !strings.HasPrefix(entryURL.Path, "/") {
		entryURL.Path = "/" + entryURL.Path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, entryURL.String(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}

	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close WebDAV upload response body", "error", err)
		}
	}()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("failed to upload file: HTTP %d", resp.StatusCode)
	}

	return nil
}

func (s *WebDAVStore) exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.Stat(ctx, name)
	if err == nil {
		return true, nil
	}

	if isNotFound(err) {
		return false, nil
	}

	return false, fmt.Errorf("failed to stat WebDAV entry: %w", err)
}

func (s *WebDAVStore) cleanup(ctx context.Context, name string) {
	if err := s.client.RemoveAll(ctx, name); err != nil && !isNotFound(err) {
		logger.Warn("Failed to clean up WebDAV temp entry", "path", name, "error", err)
	}
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())

	return strings.Contains(message, "404") || strings.Contains(message, "not found")
}
