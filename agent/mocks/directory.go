// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync"

	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

var _ directory.Client = (*Directory)(nil)

// Directory is an in-memory directory service client counting upstream
// calls, so tests can assert which lookups were served from the cache.
type Directory struct {
	mu             sync.Mutex
	tenants        []string
	devices        map[string]map[string]directory.Device
	deviceErr      error
	tenantFailures int
	deviceCalls    int
	tenantCalls    int
}

// NewDirectory returns a directory client mock holding the given tenants and
// devices keyed by tenant and device id.
func NewDirectory(tenants []string, devices map[string]map[string]directory.Device) *Directory {
	if devices == nil {
		devices = make(map[string]map[string]directory.Device)
	}

	return &Directory{
		tenants: tenants,
		devices: devices,
	}
}

func (d *Directory) ListTenants(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tenantCalls++
	if d.tenantFailures > 0 {
		d.tenantFailures--
		return nil, errors.ErrFetchTenants
	}

	tenants := make([]string, len(d.tenants))
	copy(tenants, d.tenants)

	return tenants, nil
}

func (d *Directory) ListDevices(ctx context.Context, tenant string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	devs, ok := d.devices[tenant]
	if !ok {
		return []string{}, nil
	}

	ids := make([]string, 0, len(devs))
	for id := range devs {
		ids = append(ids, id)
	}

	return ids, nil
}

func (d *Directory) Device(ctx context.Context, deviceID, tenant string) (directory.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deviceCalls++
	if d.deviceErr != nil {
		return directory.Device{}, d.deviceErr
	}

	dev, ok := d.devices[tenant][deviceID]
	if !ok {
		return directory.Device{}, errors.ErrUnknownDevice
	}

	return dev, nil
}

// FailTenants makes the next n ListTenants calls fail.
func (d *Directory) FailTenants(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tenantFailures = n
}

// FailDevices makes Device calls return the given error. Passing nil
// restores normal operation.
func (d *Directory) FailDevices(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deviceErr = err
}

// DeviceCalls returns the number of Device calls that reached the mock.
func (d *Directory) DeviceCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.deviceCalls
}

// TenantCalls returns the number of ListTenants calls that reached the mock.
func (d *Directory) TenantCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.tenantCalls
}
