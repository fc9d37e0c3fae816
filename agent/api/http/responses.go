// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"

	"github.com/rascaraficci/iotagent/pkg/apiutil"
	"github.com/rascaraficci/iotagent/pkg/directory"
)

var (
	_ apiutil.Response = (*publishRes)(nil)
	_ apiutil.Response = (*deviceRes)(nil)
	_ apiutil.Response = (*devicesRes)(nil)
	_ apiutil.Response = (*tenantsRes)(nil)
)

type publishRes struct{}

func (res publishRes) Code() int {
	return http.StatusAccepted
}

func (res publishRes) Headers() map[string]string {
	return map[string]string{}
}

func (res publishRes) Empty() bool {
	return true
}

type deviceRes struct {
	directory.Device
}

func (res deviceRes) Code() int {
	return http.StatusOK
}

func (res deviceRes) Headers() map[string]string {
	return map[string]string{}
}

func (res deviceRes) Empty() bool {
	return false
}

type devicesRes struct {
	Devices []string `json:"devices"`
}

func (res devicesRes) Code() int {
	return http.StatusOK
}

func (res devicesRes) Headers() map[string]string {
	return map[string]string{}
}

func (res devicesRes) Empty() bool {
	return false
}

type tenantsRes struct {
	Tenants []string `json:"tenants"`
}

func (res tenantsRes) Code() int {
	return http.StatusOK
}

func (res tenantsRes) Headers() map[string]string {
	return map[string]string{}
}

func (res tenantsRes) Empty() bool {
	return false
}
