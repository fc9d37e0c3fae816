// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

//go:build !test
// +build !test

package api

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/rascaraficci/iotagent/agent"
	"github.com/rascaraficci/iotagent/pkg/directory"
)

var _ agent.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     agent.Service
}

// MetricsMiddleware instruments core service by tracking request count and
// latency.
func MetricsMiddleware(svc agent.Service, counter metrics.Counter, latency metrics.Histogram) agent.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (ms *metricsMiddleware) Start(ctx context.Context) error {
	defer func(begin time.Time) {
		ms.counter.With("method", "start").Add(1)
		ms.latency.With("method", "start").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.Start(ctx)
}

func (ms *metricsMiddleware) GetDevice(ctx context.Context, deviceID, tenant string) (directory.Device, error) {
	defer func(begin time.Time) {
		ms.counter.With("method", "get_device").Add(1)
		ms.latency.With("method", "get_device").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.GetDevice(ctx, deviceID, tenant)
}

func (ms *metricsMiddleware) ListDevices(ctx context.Context, tenant string) ([]string, error) {
	defer func(begin time.Time) {
		ms.counter.With("method", "list_devices").Add(1)
		ms.latency.With("method", "list_devices").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.ListDevices(ctx, tenant)
}

func (ms *metricsMiddleware) ListTenants(ctx context.Context) ([]string, error) {
	defer func(begin time.Time) {
		ms.counter.With("method", "list_tenants").Add(1)
		ms.latency.With("method", "list_tenants").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.ListTenants(ctx)
}

func (ms *metricsMiddleware) UpdateAttrs(ctx context.Context, deviceID, tenant string, attrs map[string]any) error {
	defer func(begin time.Time) {
		ms.counter.With("method", "update_attrs").Add(1)
		ms.latency.With("method", "update_attrs").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.UpdateAttrs(ctx, deviceID, tenant, attrs)
}

func (ms *metricsMiddleware) SetOnline(ctx context.Context, deviceID, tenant string, expires time.Duration) error {
	defer func(begin time.Time) {
		ms.counter.With("method", "set_online").Add(1)
		ms.latency.With("method", "set_online").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.SetOnline(ctx, deviceID, tenant, expires)
}

func (ms *metricsMiddleware) SetOffline(ctx context.Context, deviceID, tenant string) error {
	defer func(begin time.Time) {
		ms.counter.With("method", "set_offline").Add(1)
		ms.latency.With("method", "set_offline").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.SetOffline(ctx, deviceID, tenant)
}

func (ms *metricsMiddleware) Subscribe(event string, cb agent.Callback) {
	ms.svc.Subscribe(event, cb)
}

func (ms *metricsMiddleware) RegisterSubject(ctx context.Context, tenant, subject string) error {
	defer func(begin time.Time) {
		ms.counter.With("method", "register_subject").Add(1)
		ms.latency.With("method", "register_subject").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return ms.svc.RegisterSubject(ctx, tenant, subject)
}

func (ms *metricsMiddleware) Stop() {
	ms.svc.Stop()
}
