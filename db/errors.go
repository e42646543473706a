/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "errors"

var (
	ErrDatabaseConnectionNotInitialized = errors.New("database connection not initialized")
	ErrDatabaseURLRequired              = errors.New("database url is required")
	ErrDatabaseNameNotSpecified         = errors.New("database name not specified in connection string")

	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserNotFound           = errors.New("user not found")
	ErrNameRequired           = errors.New("name is required")
	ErrEmailRequired          = errors.New("email is required")
	ErrPasswordTooShort       = errors.New("password must be at least 8 characters")
	ErrInvalidGender          = errors.New("gender must be male, female or other")

	ErrReportNotFound  = errors.New("report not found")
	ErrReportForbidden = errors.New("report belongs to another user")
)
