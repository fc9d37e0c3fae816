// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/go-zoo/bone"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rascaraficci/iotagent"
	"github.com/rascaraficci/iotagent/agent"
	log "github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/apiutil"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

const (
	tenantHeader = "X-Tenant-Id"
	deviceHeader = "X-Device-Id"
)

// MakeHandler returns a HTTP handler for API endpoints.
func MakeHandler(svc agent.Service, logger log.Logger) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, encodeError)),
	}

	r := bone.New()

	r.Post("/messages", kithttp.NewServer(
		publishEndpoint(svc),
		decodePublish,
		encodeResponse,
		opts...,
	))
	r.Put("/messages", kithttp.NewServer(
		publishEndpoint(svc),
		decodePublish,
		encodeResponse,
		opts...,
	))
	r.Put("/status", kithttp.NewServer(
		statusEndpoint(svc),
		decodeStatus,
		encodeResponse,
		opts...,
	))
	r.Get("/devices/:id", kithttp.NewServer(
		viewDeviceEndpoint(svc),
		decodeViewDevice,
		encodeResponse,
		opts...,
	))
	r.Get("/devices", kithttp.NewServer(
		listDevicesEndpoint(svc),
		decodeListDevices,
		encodeResponse,
		opts...,
	))
	r.Get("/tenants", kithttp.NewServer(
		listTenantsEndpoint(svc),
		decodeListTenants,
		encodeResponse,
		opts...,
	))

	r.GetFunc("/health", iotagent.Health("iotagent"))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func decodePublish(_ context.Context, r *http.Request) (interface{}, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), apiutil.ContentTypeJSON) {
		return nil, apiutil.ErrUnsupportedContentType
	}

	req := publishReq{
		tenant:   r.Header.Get(tenantHeader),
		deviceID: r.Header.Get(deviceHeader),
	}
	if err := json.NewDecoder(r.Body).Decode(&req.Attrs); err != nil {
		return nil, errors.Wrap(apiutil.ErrMalformedEntity, err)
	}

	return req, nil
}

func decodeStatus(_ context.Context, r *http.Request) (interface{}, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), apiutil.ContentTypeJSON) {
		return nil, apiutil.ErrUnsupportedContentType
	}

	req := statusReq{
		tenant:   r.Header.Get(tenantHeader),
		deviceID: r.Header.Get(deviceHeader),
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Wrap(apiutil.ErrMalformedEntity, err)
	}

	return req, nil
}

func decodeViewDevice(_ context.Context, r *http.Request) (interface{}, error) {
	req := viewDeviceReq{
		tenant:   r.Header.Get(tenantHeader),
		deviceID: bone.GetValue(r, "id"),
	}

	return req, nil
}

func decodeListDevices(_ context.Context, r *http.Request) (interface{}, error) {
	req := listDevicesReq{
		tenant: r.Header.Get(tenantHeader),
	}

	return req, nil
}

func decodeListTenants(_ context.Context, r *http.Request) (interface{}, error) {
	return listTenantsReq{}, nil
}

func encodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", apiutil.ContentTypeJSON)

	if ar, ok := response.(apiutil.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}

		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	switch {
	case errors.Contains(err, apiutil.ErrUnsupportedContentType):
		w.WriteHeader(http.StatusUnsupportedMediaType)
	case errors.Contains(err, apiutil.ErrMalformedEntity),
		err == apiutil.ErrMissingDeviceID,
		err == apiutil.ErrMissingTenantID,
		err == apiutil.ErrInvalidStatus:
		w.WriteHeader(http.StatusBadRequest)
	default:
		apiutil.EncodeError(err, w)
	}

	apiutil.WriteErrorResponse(err, w)
}
