// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

//go:build !test
// +build !test

package api

import (
	"context"
	"fmt"
	"time"

	"github.com/rascaraficci/iotagent/agent"
	log "github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/directory"
)

var _ agent.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger log.Logger
	svc    agent.Service
}

// LoggingMiddleware adds logging facilities to the core service.
func LoggingMiddleware(svc agent.Service, logger log.Logger) agent.Service {
	return &loggingMiddleware{logger, svc}
}

func (lm *loggingMiddleware) Start(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method start took %s to complete", time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.Start(ctx)
}

func (lm *loggingMiddleware) GetDevice(ctx context.Context, deviceID, tenant string) (device directory.Device, err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method get_device for device %s and tenant %s took %s to complete", deviceID, tenant, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.GetDevice(ctx, deviceID, tenant)
}

func (lm *loggingMiddleware) ListDevices(ctx context.Context, tenant string) (ids []string, err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method list_devices for tenant %s took %s to complete", tenant, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.ListDevices(ctx, tenant)
}

func (lm *loggingMiddleware) ListTenants(ctx context.Context) (tenants []string, err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method list_tenants took %s to complete", time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.ListTenants(ctx)
}

func (lm *loggingMiddleware) UpdateAttrs(ctx context.Context, deviceID, tenant string, attrs map[string]any) (err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method update_attrs for device %s and tenant %s took %s to complete", deviceID, tenant, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.UpdateAttrs(ctx, deviceID, tenant, attrs)
}

func (lm *loggingMiddleware) SetOnline(ctx context.Context, deviceID, tenant string, expires time.Duration) (err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method set_online for device %s and tenant %s took %s to complete", deviceID, tenant, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.SetOnline(ctx, deviceID, tenant, expires)
}

func (lm *loggingMiddleware) SetOffline(ctx context.Context, deviceID, tenant string) (err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method set_offline for device %s and tenant %s took %s to complete", deviceID, tenant, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.SetOffline(ctx, deviceID, tenant)
}

func (lm *loggingMiddleware) Subscribe(event string, cb agent.Callback) {
	lm.svc.Subscribe(event, cb)
}

func (lm *loggingMiddleware) RegisterSubject(ctx context.Context, tenant, subject string) (err error) {
	defer func(begin time.Time) {
		message := fmt.Sprintf("Method register_subject for tenant %s and subject %s took %s to complete", tenant, subject, time.Since(begin))
		if err != nil {
			lm.logger.Warn(fmt.Sprintf("%s with error: %s.", message, err))
			return
		}
		lm.logger.Info(fmt.Sprintf("%s without errors.", message))
	}(time.Now())

	return lm.svc.RegisterSubject(ctx, tenant, subject)
}

func (lm *loggingMiddleware) Stop() {
	lm.svc.Stop()
}
