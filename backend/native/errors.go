// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Package errors for the HAL device.
var (
	// ErrNilDevice is returned when a nil hal.Device or hal.Queue is supplied.
	ErrNilDevice = errors.New("native: nil hal device or queue")

	// ErrNoHAL is returned when a device provider does not expose HAL types.
	ErrNoHAL = errors.New("native: provider does not expose HAL types")

	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("native: unknown resource")

	// ErrZeroSize is returned for zero-sized buffers and textures.
	ErrZeroSize = errors.New("native: zero-sized resource")

	// ErrUnsupportedFormat is returned when texel data cannot be uploaded
	// for a texture format.
	ErrUnsupportedFormat = errors.New("native: unsupported texture format")
)
