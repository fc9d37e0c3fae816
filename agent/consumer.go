// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
	"github.com/rascaraficci/iotagent/pkg/messaging"
	"github.com/rascaraficci/iotagent/pkg/topics"
)

type sessionState int

const (
	sessionCreated sessionState = iota
	sessionResolving
	sessionSubscribing
	sessionReady
	sessionErrored
)

func (s sessionState) String() string {
	switch s {
	case sessionCreated:
		return "created"
	case sessionResolving:
		return "resolving"
	case sessionSubscribing:
		return "subscribing"
	case sessionReady:
		return "ready"
	case sessionErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// inboundSession owns one broker subscription for a (tenant, subject) pair.
// Recovery after a broker outage is left to the transport's own reconnect
// policy; an errored session is not retried at this layer.
type inboundSession struct {
	id      string
	tenant  string
	subject string
	global  bool

	resolver topics.Resolver
	pubsub   messaging.Subscriber
	handler  messaging.MessageHandler
	logger   logger.Logger

	mu    sync.Mutex
	state sessionState
	topic string
}

func newInboundSession(id, tenant, subject string, global bool, resolver topics.Resolver, pubsub messaging.Subscriber, handler messaging.MessageHandler, logger logger.Logger) *inboundSession {
	return &inboundSession{
		id:       id,
		tenant:   tenant,
		subject:  subject,
		global:   global,
		resolver: resolver,
		pubsub:   pubsub,
		handler:  handler,
		logger:   logger,
		state:    sessionCreated,
	}
}

// start resolves the session topic and opens the subscription. A session
// already past Created is left untouched, which absorbs repeated connect
// notifications from the broker client.
func (s *inboundSession) start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != sessionCreated {
		s.mu.Unlock()
		return nil
	}
	s.state = sessionResolving
	s.mu.Unlock()

	topic, err := s.resolver.Resolve(ctx, s.tenant, s.subject, s.global)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.topic = topic
	s.state = sessionSubscribing
	s.mu.Unlock()

	if err := s.pubsub.Subscribe(s.id, topic, s.handler); err != nil {
		err = errors.Wrap(errors.ErrSubscribeTopic, err)
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.state = sessionReady
	s.mu.Unlock()

	s.logger.Info(fmt.Sprintf("Subscribed to topic %s for tenant %s", topic, s.tenant))

	return nil
}

func (s *inboundSession) stop() error {
	s.mu.Lock()
	state := s.state
	topic := s.topic
	s.mu.Unlock()

	if state != sessionReady {
		return nil
	}

	return s.pubsub.Unsubscribe(s.id, topic)
}

func (s *inboundSession) fail(err error) {
	s.mu.Lock()
	s.state = sessionErrored
	s.mu.Unlock()

	s.logger.Error(fmt.Sprintf("Session for tenant %s subject %s failed: %s", s.tenant, s.subject, err))
}

var _ messaging.MessageHandler = (*lifecycleHandler)(nil)

// lifecycleHandler decodes device lifecycle events for one tenant, maintains
// the device cache and fans the envelope out to registered callbacks.
type lifecycleHandler struct {
	tenant     string
	cache      DeviceCache
	dispatcher *dispatcher
	deviceTTL  time.Duration
	logger     logger.Logger
}

func (h *lifecycleHandler) Handle(payload []byte) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.logger.Warn(fmt.Sprintf("Dropped message for tenant %s: %s: %s", h.tenant, errors.ErrMalformedMessage, err))
		return nil
	}

	switch ev.Event {
	case EventCreate, EventUpdate:
		var dev directory.Device
		if err := json.Unmarshal(ev.Data, &dev); err != nil || dev.ID == "" {
			h.logger.Warn(fmt.Sprintf("Dropped %s event for tenant %s: %s", ev.Event, h.tenant, errors.ErrMalformedMessage))
			return nil
		}
		h.cache.Save(h.tenant, dev, h.deviceTTL)
		h.dispatcher.dispatch(devicePrefix+ev.Event, h.tenant, ev)
	case EventRemove:
		var dev directory.Device
		if err := json.Unmarshal(ev.Data, &dev); err != nil || dev.ID == "" {
			h.logger.Warn(fmt.Sprintf("Dropped remove event for tenant %s: %s", h.tenant, errors.ErrMalformedMessage))
			return nil
		}
		h.cache.Remove(h.tenant, dev.ID)
		h.dispatcher.dispatch(devicePrefix+EventRemove, h.tenant, ev)
	case EventTemplateUpdate:
		var data struct {
			Affected []string `json:"affected"`
		}
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			h.logger.Warn(fmt.Sprintf("Dropped template update for tenant %s: %s", h.tenant, errors.ErrMalformedMessage))
			return nil
		}
		for _, id := range data.Affected {
			h.cache.Remove(h.tenant, id)
		}
		h.dispatcher.dispatch(EventTemplateUpdate, h.tenant, ev)
	default:
		h.dispatcher.dispatch(devicePrefix+ev.Event, h.tenant, ev)
	}

	return nil
}

func (h *lifecycleHandler) Cancel() error {
	return nil
}
