/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package labparse

import "errors"

// ErrUnknownPolicy is returned when an unknown-sex policy name is not recognised.
var ErrUnknownPolicy = errors.New("unknown sex policy")

var (
	errMissingTestName = errors.New("test definition has no name")
	errMissingPattern  = errors.New("test definition has no pattern")
	errMissingRange    = errors.New("test definition has no usable normal range")
	errDuplicateTest   = errors.New("duplicate test definition")
)
