/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "errors"

var (
	errDatabaseURLRequired   = errors.New("database-url is required (set via --database-url or DATABASE_URL env var)")
	errMigrationNameRequired = errors.New("migration name is required")
	errCSRFSecretRequired    = errors.New("CSRF_SECRET is required")
	errInvalidRuntimeEnv     = errors.New(runtimeEnvVar + " must be one of: development, dev, production, prod")
	errInputFileRequired     = errors.New("input file is required")
	errInvalidFormat         = errors.New("format must be json or text")
	errInvalidUploadLimit    = errors.New("max-upload-mb must be positive")
)
