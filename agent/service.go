// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the client runtime that keeps application code in
// sync with the multi-tenant IoT platform: per-tenant inbound device
// lifecycle subscriptions, a buffering outbound publisher and a TTL device
// cache in front of the directory service.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
	"github.com/rascaraficci/iotagent/pkg/messaging"
	"github.com/rascaraficci/iotagent/pkg/topics"
	"github.com/rascaraficci/iotagent/pkg/uuid"
)

const (
	defDeviceTTL  = time.Minute
	defInvalidTTL = 5 * time.Minute
	defRetryDelay = 2500 * time.Millisecond
	defReconnect  = 20 * time.Second

	statusOnline = "online"
)

// Config contains the runtime tuning knobs. Zero values fall back to the
// defaults above.
type Config struct {
	// DeviceTTL is the lifetime of a cached device descriptor. Reads
	// refresh it.
	DeviceTTL time.Duration

	// InvalidTTL is the lifetime of a negative cache entry recording a
	// device as absent upstream.
	InvalidTTL time.Duration

	// RetryDelay is the fixed delay between tenant-list fetch attempts
	// during bootstrap.
	RetryDelay time.Duration

	// Retry keeps the bootstrap fetch retrying until the directory
	// service answers. When false a single attempt is made.
	Retry bool

	// Reconnect is the fixed interval before the publisher retries its
	// broker connection after a failure.
	Reconnect time.Duration
}

// Service specifies an API that must be fullfiled by the agent service
// implementation, and all of its decorators (e.g. logging & metrics).
type Service interface {
	// Start opens the outbound broker connection, subscribes to the
	// tenancy-control stream and bootstraps a device lifecycle
	// subscription for every known tenant.
	Start(ctx context.Context) error

	// GetDevice returns the descriptor of the given device, served from
	// the cache when possible. A device recorded as absent, in the cache
	// or upstream, yields errors.ErrUnknownDevice.
	GetDevice(ctx context.Context, deviceID, tenant string) (directory.Device, error)

	// ListDevices returns the ids of all devices of the given tenant.
	ListDevices(ctx context.Context, tenant string) ([]string, error)

	// ListTenants returns all tenants known to the platform.
	ListTenants(ctx context.Context) ([]string, error)

	// UpdateAttrs publishes an attribute update for the given device on
	// its tenant's device-data stream. Delivery is fire-and-forget:
	// while the broker connection is down the event is queued.
	UpdateAttrs(ctx context.Context, deviceID, tenant string, attrs map[string]any) error

	// SetOnline reports the device as online for the given duration.
	SetOnline(ctx context.Context, deviceID, tenant string, expires time.Duration) error

	// SetOffline reports the device as no longer online.
	SetOffline(ctx context.Context, deviceID, tenant string) error

	// Subscribe registers a callback for the given event type, e.g.
	// "device.create". Callbacks fire in registration order.
	Subscribe(event string, cb Callback)

	// RegisterSubject resolves the topic for the pair ahead of the first
	// publish.
	RegisterSubject(ctx context.Context, tenant, subject string) error

	// Stop closes the broker subscriptions and the publisher connection.
	Stop()
}

var _ Service = (*agentService)(nil)

type agentService struct {
	conf       Config
	directory  directory.Client
	cache      DeviceCache
	dispatcher *dispatcher
	supervisor *supervisor
	producer   *producer
	logger     logger.Logger
}

// New instantiates the agent service implementation.
func New(conf Config, dir directory.Client, resolver topics.Resolver, pubsub messaging.Subscriber, connect PublisherFactory, cache DeviceCache, idp uuid.IDProvider, logger logger.Logger) Service {
	if conf.DeviceTTL == 0 {
		conf.DeviceTTL = defDeviceTTL
	}
	if conf.InvalidTTL == 0 {
		conf.InvalidTTL = defInvalidTTL
	}
	if conf.RetryDelay == 0 {
		conf.RetryDelay = defRetryDelay
	}
	if conf.Reconnect == 0 {
		conf.Reconnect = defReconnect
	}

	dispatcher := newDispatcher()

	return &agentService{
		conf:       conf,
		directory:  dir,
		cache:      cache,
		dispatcher: dispatcher,
		supervisor: newSupervisor(dir, resolver, pubsub, dispatcher, cache, idp, conf.DeviceTTL, conf.RetryDelay, conf.Retry, logger),
		producer:   newProducer(connect, resolver, conf.Reconnect, logger),
		logger:     logger,
	}
}

func (svc *agentService) Start(ctx context.Context) error {
	svc.producer.start()
	return svc.supervisor.start(ctx)
}

func (svc *agentService) GetDevice(ctx context.Context, deviceID, tenant string) (directory.Device, error) {
	dev, err := svc.cache.Device(tenant, deviceID)
	switch {
	case err == nil:
		return dev, nil
	case errors.Contains(err, errors.ErrUnknownDevice):
		return directory.Device{}, errors.ErrUnknownDevice
	}

	dev, err = svc.directory.Device(ctx, deviceID, tenant)
	if err != nil {
		if errors.Contains(err, errors.ErrUnknownDevice) {
			svc.cache.SaveInvalid(tenant, deviceID, svc.conf.InvalidTTL)
			return directory.Device{}, errors.ErrUnknownDevice
		}
		return directory.Device{}, err
	}

	svc.cache.Save(tenant, dev, svc.conf.DeviceTTL)

	return dev, nil
}

func (svc *agentService) ListDevices(ctx context.Context, tenant string) ([]string, error) {
	return svc.directory.ListDevices(ctx, tenant)
}

func (svc *agentService) ListTenants(ctx context.Context) ([]string, error) {
	return svc.directory.ListTenants(ctx)
}

func (svc *agentService) UpdateAttrs(ctx context.Context, deviceID, tenant string, attrs map[string]any) error {
	ev := updateEvent{
		Metadata: Metadata{}.complete(deviceID, tenant, time.Now()),
		Attrs:    attrs,
	}

	return svc.send(ctx, tenant, ev)
}

func (svc *agentService) SetOnline(ctx context.Context, deviceID, tenant string, expires time.Duration) error {
	return svc.sendStatus(ctx, deviceID, tenant, time.Now().Add(expires))
}

func (svc *agentService) SetOffline(ctx context.Context, deviceID, tenant string) error {
	return svc.sendStatus(ctx, deviceID, tenant, time.Now())
}

// sendStatus publishes a connectivity status event. Going offline is an
// online status that expires immediately.
func (svc *agentService) sendStatus(ctx context.Context, deviceID, tenant string, expires time.Time) error {
	ev := updateEvent{
		Metadata: Metadata{
			Status: &Status{
				Value:   statusOnline,
				Expires: expires.UnixMilli(),
			},
		}.complete(deviceID, tenant, time.Now()),
	}

	return svc.send(ctx, tenant, ev)
}

func (svc *agentService) send(ctx context.Context, tenant string, ev updateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(errors.ErrMalformedMessage, err)
	}

	svc.producer.sendEvent(ctx, tenant, SubjectDeviceData, payload)

	return nil
}

func (svc *agentService) Subscribe(event string, cb Callback) {
	svc.dispatcher.register(event, cb)
}

func (svc *agentService) RegisterSubject(ctx context.Context, tenant, subject string) error {
	return svc.producer.registerSubject(ctx, tenant, subject)
}

func (svc *agentService) Stop() {
	svc.supervisor.stop()
	svc.producer.close()
}
