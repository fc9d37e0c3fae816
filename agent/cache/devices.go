// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the in-memory device descriptor cache backing the
// agent service.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/rascaraficci/iotagent/agent"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

var _ agent.DeviceCache = (*DeviceCache)(nil)

type entry struct {
	device  directory.Device
	invalid bool
	expires time.Time
	ttl     time.Duration
}

// DeviceCache is an in-memory TTL store of device descriptors. Reads refresh
// the entry expiry to the full TTL. A background sweep removes expired
// entries periodically; expiry is also enforced on every read, so the sweep
// only reclaims memory.
type DeviceCache struct {
	mu      sync.Mutex
	entries map[string]entry
	done    chan struct{}
	once    sync.Once
}

// New returns a device cache sweeping expired entries every sweep interval.
// Close stops the sweeper.
func New(sweep time.Duration) *DeviceCache {
	dc := &DeviceCache{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}

	go dc.sweeper(sweep)

	return dc
}

func (dc *DeviceCache) Save(tenant string, device directory.Device, ttl time.Duration) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.entries[key(tenant, device.ID)] = entry{
		device:  device,
		expires: time.Now().Add(ttl),
		ttl:     ttl,
	}
}

func (dc *DeviceCache) SaveInvalid(tenant, deviceID string, ttl time.Duration) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.entries[key(tenant, deviceID)] = entry{
		invalid: true,
		expires: time.Now().Add(ttl),
		ttl:     ttl,
	}
}

func (dc *DeviceCache) Device(tenant, deviceID string) (directory.Device, error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	k := key(tenant, deviceID)
	e, ok := dc.entries[k]
	if !ok {
		return directory.Device{}, agent.ErrNotCached
	}

	if !time.Now().Before(e.expires) {
		delete(dc.entries, k)
		return directory.Device{}, agent.ErrNotCached
	}

	if e.invalid {
		return directory.Device{}, errors.ErrUnknownDevice
	}

	e.expires = time.Now().Add(e.ttl)
	dc.entries[k] = e

	return e.device, nil
}

func (dc *DeviceCache) Remove(tenant, deviceID string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	delete(dc.entries, key(tenant, deviceID))
}

func (dc *DeviceCache) Prune() {
	now := time.Now()

	dc.mu.Lock()
	defer dc.mu.Unlock()

	for k, e := range dc.entries {
		if !now.Before(e.expires) {
			delete(dc.entries, k)
		}
	}
}

// Close stops the background sweeper. Entries remain readable.
func (dc *DeviceCache) Close() {
	dc.once.Do(func() {
		close(dc.done)
	})
}

func (dc *DeviceCache) sweeper(sweep time.Duration) {
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			dc.Prune()
		case <-dc.done:
			return
		}
	}
}

func key(tenant, deviceID string) string {
	return fmt.Sprintf("%s:%s", tenant, deviceID)
}
