/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errSessionUserMissing = errors.New("session user missing")
	errMissingFile        = errors.New("no PDF file was uploaded")
	errNotPDFUpload       = errors.New("file must be a PDF")
	errFileTooLarge       = errors.New("file exceeds the upload limit")
	errInvalidDate        = errors.New("invalid date")
	errInvalidNumber      = errors.New("invalid number")
	errStoreNotConfigured = errors.New("report storage is not configured")
)
