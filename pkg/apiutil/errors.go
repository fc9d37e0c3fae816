// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package apiutil

import "github.com/rascaraficci/iotagent/pkg/errors"

// Errors defined in this file are used by the LoggingErrorEncoder decorator
// to distinguish and log API request validation errors and avoid that service
// errors are logged twice.
var (
	// ErrBearerToken indicates missing or invalid bearer user token.
	ErrBearerToken = errors.New("missing or invalid bearer user token")

	// ErrMissingDeviceID indicates missing device ID.
	ErrMissingDeviceID = errors.New("missing device id")

	// ErrMissingTenantID indicates missing tenant ID.
	ErrMissingTenantID = errors.New("missing tenant id")

	// ErrInvalidStatus indicates an invalid device status value.
	ErrInvalidStatus = errors.New("invalid device status")

	// ErrInvalidQueryParams indicates invalid query parameters.
	ErrInvalidQueryParams = errors.New("invalid query parameters")

	// ErrUnsupportedContentType indicates an unacceptable or missing content-type.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrMalformedEntity indicates a malformed entity specification.
	ErrMalformedEntity = errors.New("malformed entity specification")
)
