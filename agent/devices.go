// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"time"

	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

// ErrNotCached indicates that the cache holds no live entry for a device.
// It is distinct from errors.ErrUnknownDevice, which a lookup returns when
// an unexpired negative entry records the device as known-absent.
var ErrNotCached = errors.New("device not in cache")

// DeviceCache is a TTL store of device descriptors keyed by (tenant, device
// id). Implementations must be safe for concurrent use by all inbound
// sessions and application goroutines.
type DeviceCache interface {
	// Save stores a descriptor with the given TTL, replacing any existing
	// entry for the device.
	Save(tenant string, device directory.Device, ttl time.Duration)

	// SaveInvalid stores a negative entry recording the device as absent
	// upstream for the duration of the given TTL.
	SaveInvalid(tenant, deviceID string, ttl time.Duration)

	// Device returns the cached descriptor and extends its expiry to the
	// full TTL. It returns errors.ErrUnknownDevice on an unexpired
	// negative entry and ErrNotCached when no live entry exists.
	Device(tenant, deviceID string) (directory.Device, error)

	// Remove deletes the entry for the device, if any.
	Remove(tenant, deviceID string)

	// Prune deletes all expired entries. Pruning reclaims memory only:
	// expiry is also enforced on every read.
	Prune()
}
