// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/messaging"
	"github.com/rascaraficci/iotagent/pkg/topics"
	"github.com/rascaraficci/iotagent/pkg/uuid"
)

// tenancyKey is the registry sentinel reserved for the global
// tenancy-control session. No tenant may use it as an identifier.
const tenancyKey = "tenancy"

// consumerRegistry records which inbound sessions have been bootstrapped.
// Broker-client rebalances can replay connect notifications for the same
// logical group, so every bootstrap path is gated on the registry.
type consumerRegistry struct {
	mu      sync.Mutex
	members map[string]struct{}
}

func newConsumerRegistry() *consumerRegistry {
	return &consumerRegistry{
		members: make(map[string]struct{}),
	}
}

// add marks the given key as bootstrapped. It returns false when the key was
// already present.
func (r *consumerRegistry) add(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[key]; ok {
		return false
	}
	r.members[key] = struct{}{}

	return true
}

// supervisor owns the global tenancy-control session and keeps one device
// lifecycle session running per known tenant.
type supervisor struct {
	registry   *consumerRegistry
	directory  directory.Client
	resolver   topics.Resolver
	pubsub     messaging.Subscriber
	dispatcher *dispatcher
	cache      DeviceCache
	idp        uuid.IDProvider
	logger     logger.Logger

	deviceTTL  time.Duration
	retryDelay time.Duration
	retry      bool

	mu       sync.Mutex
	sessions map[string]*inboundSession
}

func newSupervisor(dir directory.Client, resolver topics.Resolver, pubsub messaging.Subscriber, dispatcher *dispatcher, cache DeviceCache, idp uuid.IDProvider, deviceTTL, retryDelay time.Duration, retry bool, logger logger.Logger) *supervisor {
	return &supervisor{
		registry:   newConsumerRegistry(),
		directory:  dir,
		resolver:   resolver,
		pubsub:     pubsub,
		dispatcher: dispatcher,
		cache:      cache,
		idp:        idp,
		deviceTTL:  deviceTTL,
		retryDelay: retryDelay,
		retry:      retry,
		logger:     logger,
		sessions:   make(map[string]*inboundSession),
	}
}

// start opens the tenancy-control session and, once it is ready, bootstraps
// a device lifecycle session for every tenant known to the platform. Calling
// start again is a no-op.
func (s *supervisor) start(ctx context.Context) error {
	if !s.registry.add(tenancyKey) {
		return nil
	}

	id, err := s.idp.ID()
	if err != nil {
		return err
	}

	session := newInboundSession(id, tenancyKey, SubjectTenancy, true, s.resolver, s.pubsub, &tenancyHandler{sup: s, logger: s.logger}, s.logger)
	if err := session.start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[tenancyKey] = session
	s.mu.Unlock()

	return s.bootstrap(ctx)
}

// bootstrap fetches the tenant list, retrying on a fixed delay until the
// directory service answers, then starts the per-tenant sessions.
func (s *supervisor) bootstrap(ctx context.Context) error {
	var tenants []string

	fetch := func() error {
		var err error
		tenants, err = s.directory.ListTenants(ctx)
		return err
	}

	var policy backoff.BackOff = backoff.NewConstantBackOff(s.retryDelay)
	if !s.retry {
		policy = &backoff.StopBackOff{}
	}

	notify := func(err error, d time.Duration) {
		s.logger.Warn(fmt.Sprintf("Tenant list fetch failed, retrying in %s: %s", d, err))
	}

	if err := backoff.RetryNotify(fetch, backoff.WithContext(policy, ctx), notify); err != nil {
		return err
	}

	for _, tenant := range tenants {
		s.startTenant(ctx, tenant)
	}

	return nil
}

// startTenant opens a device lifecycle session for the tenant unless one was
// bootstrapped before. Session failures are logged; the broker client's own
// reconnect policy covers transient outages.
func (s *supervisor) startTenant(ctx context.Context, tenant string) {
	if tenant == "" || !s.registry.add(tenant) {
		return
	}

	id, err := s.idp.ID()
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to create session id for tenant %s: %s", tenant, err))
		return
	}

	handler := &lifecycleHandler{
		tenant:     tenant,
		cache:      s.cache,
		dispatcher: s.dispatcher,
		deviceTTL:  s.deviceTTL,
		logger:     s.logger,
	}

	session := newInboundSession(id, tenant, SubjectDeviceLifecycle, false, s.resolver, s.pubsub, handler, s.logger)
	if err := session.start(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to start session for tenant %s: %s", tenant, err))
		return
	}

	s.mu.Lock()
	s.sessions[tenant] = session
	s.mu.Unlock()
}

// stop closes all open subscriptions.
func (s *supervisor) stop() {
	s.mu.Lock()
	sessions := make([]*inboundSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		if err := session.stop(); err != nil {
			s.logger.Warn(fmt.Sprintf("Failed to stop session for tenant %s: %s", session.tenant, err))
		}
	}
}

var _ messaging.MessageHandler = (*tenancyHandler)(nil)

// tenancyHandler reacts to tenancy-control messages announcing newly
// provisioned tenants.
type tenancyHandler struct {
	sup    *supervisor
	logger logger.Logger
}

func (h *tenancyHandler) Handle(payload []byte) error {
	var msg struct {
		Tenant string `json:"tenant"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Tenant == "" {
		h.logger.Warn(fmt.Sprintf("Dropped tenancy message: %s", payload))
		return nil
	}

	h.sup.startTenant(context.Background(), msg.Tenant)

	return nil
}

func (h *tenancyHandler) Cancel() error {
	return nil
}
