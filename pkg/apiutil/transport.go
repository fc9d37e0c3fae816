// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package apiutil

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/go-zoo/bone"
	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

// ContentTypeJSON represents the JSON content type.
const ContentTypeJSON = "application/json"

// LoggingErrorEncoder is a go-kit error encoder logging decorator.
func LoggingErrorEncoder(logger logger.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		switch {
		case errors.Contains(err, ErrBearerToken),
			errors.Contains(err, ErrMissingDeviceID),
			errors.Contains(err, ErrMissingTenantID),
			errors.Contains(err, ErrInvalidStatus),
			errors.Contains(err, ErrInvalidQueryParams),
			errors.Contains(err, ErrUnsupportedContentType),
			errors.Contains(err, ErrMalformedEntity):
			logger.Error(err.Error())
		}

		enc(ctx, err, w)
	}
}

// EncodeError writes the HTTP status code matching the given error to w.
func EncodeError(err error, w http.ResponseWriter) {
	switch {
	case errors.Contains(err, ErrBearerToken):
		w.WriteHeader(http.StatusUnauthorized)
	case errors.Contains(err, ErrMissingDeviceID),
		errors.Contains(err, ErrMissingTenantID),
		errors.Contains(err, ErrInvalidStatus),
		errors.Contains(err, ErrInvalidQueryParams),
		errors.Contains(err, ErrMalformedEntity):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Contains(err, errors.ErrUnknownDevice),
		errors.Contains(err, errors.ErrUnknownTenant):
		w.WriteHeader(http.StatusNotFound)
	case errors.Contains(err, ErrUnsupportedContentType):
		w.WriteHeader(http.StatusUnsupportedMediaType)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// WriteErrorResponse writes the error message body, keeping wrapped causes
// out of the response.
func WriteErrorResponse(err error, w http.ResponseWriter) {
	var errorMessage string

	switch e := err.(type) {
	case errors.Error:
		errorMessage = e.Msg()
	default:
		errorMessage = err.Error()
	}

	if errorMessage != "" {
		w.Header().Set("Content-Type", ContentTypeJSON)
		if err := json.NewEncoder(w).Encode(ErrorRes{Err: errorMessage}); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

// ReadStringQuery reads the value of string http query parameters for a given key
func ReadStringQuery(r *http.Request, key string, def string) (string, error) {
	vals := bone.GetQuery(r, key)
	if len(vals) > 1 {
		return "", ErrInvalidQueryParams
	}

	if len(vals) == 0 {
		return def, nil
	}

	return vals[0], nil
}

// ReadBoolQuery reads boolean query parameters in a given http request
func ReadBoolQuery(r *http.Request, key string, def bool) (bool, error) {
	vals := bone.GetQuery(r, key)
	if len(vals) > 1 {
		return false, ErrInvalidQueryParams
	}

	if len(vals) == 0 {
		return def, nil
	}

	b, err := strconv.ParseBool(vals[0])
	if err != nil {
		return false, ErrInvalidQueryParams
	}

	return b, nil
}
