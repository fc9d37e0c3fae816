// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"
	"sync"
	"time"
)

// Reserved subjects. Device lifecycle and device data are tenant-scoped;
// tenancy control is a single global stream shared by all tenants.
const (
	SubjectDeviceLifecycle = "device-lifecycle"
	SubjectDeviceData      = "device-data"
	SubjectTenancy         = "tenancy-control"
)

// Device lifecycle event names as they appear on the wire.
const (
	EventCreate         = "create"
	EventUpdate         = "update"
	EventRemove         = "remove"
	EventTemplateUpdate = "template.update"
)

// devicePrefix scopes lifecycle event names in the callback registry, so
// applications subscribe to e.g. "device.create".
const devicePrefix = "device."

// Event is the inbound event envelope. Data is kept raw so that callbacks
// decide how much of the payload to decode.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Callback is an application handler invoked synchronously in the goroutine
// of the session that received the triggering message. Callbacks must be
// fast: a slow callback delays further message processing for its tenant.
type Callback func(tenant string, event Event)

// Status describes device connectivity inside an outbound status event.
// Expires is a unix timestamp in milliseconds after which the reported
// status is no longer valid.
type Status struct {
	Value   string `json:"value"`
	Expires int64  `json:"expires,omitempty"`
}

// Metadata travels with every outbound event.
type Metadata struct {
	DeviceID  string  `json:"deviceid,omitempty"`
	Tenant    string  `json:"tenant,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
	Status    *Status `json:"status,omitempty"`
}

// complete fills in the fields a caller left at their zero value. The
// timestamp is a unix timestamp in milliseconds.
func (m Metadata) complete(deviceID, tenant string, now time.Time) Metadata {
	if m.DeviceID == "" {
		m.DeviceID = deviceID
	}
	if m.Tenant == "" {
		m.Tenant = tenant
	}
	if m.Timestamp == 0 {
		m.Timestamp = now.UnixMilli()
	}
	return m
}

// updateEvent is the outbound envelope published on the device-data subject.
type updateEvent struct {
	Metadata Metadata       `json:"metadata"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

// dispatcher holds the registered application callbacks keyed by event type.
// Insertion order is dispatch order and duplicates are kept.
type dispatcher struct {
	mu        sync.RWMutex
	callbacks map[string][]Callback
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		callbacks: make(map[string][]Callback),
	}
}

func (d *dispatcher) register(event string, cb Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callbacks[event] = append(d.callbacks[event], cb)
}

func (d *dispatcher) dispatch(event, tenant string, e Event) {
	d.mu.RLock()
	cbs := d.callbacks[event]
	d.mu.RUnlock()

	for _, cb := range cbs {
		cb(tenant, e)
	}
}
