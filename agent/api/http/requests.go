// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"github.com/rascaraficci/iotagent/pkg/apiutil"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

type publishReq struct {
	tenant   string
	deviceID string
	Attrs    map[string]any
}

func (req publishReq) validate() error {
	if req.tenant == "" {
		return apiutil.ErrMissingTenantID
	}

	if req.deviceID == "" {
		return apiutil.ErrMissingDeviceID
	}

	return nil
}

type statusReq struct {
	tenant   string
	deviceID string
	Status   string `json:"status"`
	Expires  int64  `json:"expires,omitempty"`
}

func (req statusReq) validate() error {
	if req.tenant == "" {
		return apiutil.ErrMissingTenantID
	}

	if req.deviceID == "" {
		return apiutil.ErrMissingDeviceID
	}

	if req.Status != statusOnline && req.Status != statusOffline {
		return apiutil.ErrInvalidStatus
	}

	return nil
}

type viewDeviceReq struct {
	tenant   string
	deviceID string
}

func (req viewDeviceReq) validate() error {
	if req.tenant == "" {
		return apiutil.ErrMissingTenantID
	}

	if req.deviceID == "" {
		return apiutil.ErrMissingDeviceID
	}

	return nil
}

type listDevicesReq struct {
	tenant string
}

func (req listDevicesReq) validate() error {
	if req.tenant == "" {
		return apiutil.ErrMissingTenantID
	}

	return nil
}

type listTenantsReq struct{}

func (req listTenantsReq) validate() error {
	return nil
}
