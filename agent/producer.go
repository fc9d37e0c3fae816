// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/messaging"
	"github.com/rascaraficci/iotagent/pkg/topics"
)

// PublisherFactory opens a fresh broker connection for publishing. The
// producer calls it on start and on every reconnect attempt.
type PublisherFactory func() (messaging.Publisher, error)

type producerState int

const (
	producerDisconnected producerState = iota
	producerConnecting
	producerReady
)

type pendingEvent struct {
	tenant  string
	subject string
	payload []byte
}

// producer is the shared outbound session. Sends are fire-and-forget: while
// the connection is down events queue in order and are drained exactly once
// when it comes back. A publish failure drops the connection, puts the
// failing event back at the head of the queue and schedules one reconnect
// attempt after a fixed interval.
type producer struct {
	connect   PublisherFactory
	resolver  topics.Resolver
	reconnect time.Duration
	logger    logger.Logger

	mu        sync.Mutex
	state     producerState
	pub       messaging.Publisher
	buffer    []pendingEvent
	scheduled bool
	closed    bool
}

func newProducer(connect PublisherFactory, resolver topics.Resolver, reconnect time.Duration, logger logger.Logger) *producer {
	return &producer{
		connect:   connect,
		resolver:  resolver,
		reconnect: reconnect,
		logger:    logger,
		state:     producerDisconnected,
	}
}

// start opens the broker connection and drains anything queued before it.
// On failure a reconnect is scheduled; queued events wait for it.
func (p *producer) start() {
	p.mu.Lock()
	if p.state != producerDisconnected || p.closed {
		p.mu.Unlock()
		return
	}
	p.state = producerConnecting
	p.mu.Unlock()

	pub, err := p.connect()
	if err != nil {
		p.logger.Warn(fmt.Sprintf("Failed to connect publisher: %s", err))
		p.mu.Lock()
		p.state = producerDisconnected
		p.mu.Unlock()
		p.scheduleReconnect()
		return
	}

	p.mu.Lock()
	p.pub = pub
	p.mu.Unlock()

	p.drain()
}

// sendEvent publishes the payload on the topic the (tenant, subject) pair
// resolves to, queueing it instead while the connection is down.
func (p *producer) sendEvent(ctx context.Context, tenant, subject string, payload []byte) {
	ev := pendingEvent{tenant: tenant, subject: subject, payload: payload}

	p.mu.Lock()
	if p.state != producerReady {
		p.buffer = append(p.buffer, ev)
		p.mu.Unlock()
		return
	}
	pub := p.pub
	p.mu.Unlock()

	if err := p.publish(ctx, pub, ev); err != nil {
		p.handlePublishError(pub, ev, err)
	}
}

// drain flushes the queue in order. The session stays in Connecting until
// the queue is empty so that concurrent sends line up behind it.
func (p *producer) drain() {
	for {
		p.mu.Lock()
		if len(p.buffer) == 0 {
			p.state = producerReady
			p.mu.Unlock()
			return
		}
		ev := p.buffer[0]
		p.buffer = p.buffer[1:]
		pub := p.pub
		p.mu.Unlock()

		if err := p.publish(context.Background(), pub, ev); err != nil {
			p.handlePublishError(pub, ev, err)
			return
		}
	}
}

func (p *producer) publish(ctx context.Context, pub messaging.Publisher, ev pendingEvent) error {
	topic, err := p.resolver.Resolve(ctx, ev.tenant, ev.subject, false)
	if err != nil {
		// Resolution failures are not transport failures: the event
		// cannot ever be routed, so it is logged and discarded instead
		// of wedging the queue.
		p.logger.Error(fmt.Sprintf("Dropped event for tenant %s subject %s: %s", ev.tenant, ev.subject, err))
		return nil
	}

	return pub.Publish(topic, ev.payload)
}

// handlePublishError requeues the failing event at the head of the queue,
// drops the connection and schedules a single reconnect.
func (p *producer) handlePublishError(pub messaging.Publisher, ev pendingEvent, err error) {
	p.logger.Warn(fmt.Sprintf("Failed to publish event for tenant %s subject %s: %s", ev.tenant, ev.subject, err))

	p.mu.Lock()
	p.buffer = append([]pendingEvent{ev}, p.buffer...)
	p.state = producerDisconnected
	p.pub = nil
	p.mu.Unlock()

	if err := pub.Close(); err != nil {
		p.logger.Warn(fmt.Sprintf("Failed to close publisher: %s", err))
	}

	p.scheduleReconnect()
}

// scheduleReconnect arms the reconnect timer unless one is already pending.
func (p *producer) scheduleReconnect() {
	p.mu.Lock()
	if p.scheduled || p.closed {
		p.mu.Unlock()
		return
	}
	p.scheduled = true
	p.mu.Unlock()

	time.AfterFunc(p.reconnect, func() {
		p.mu.Lock()
		p.scheduled = false
		p.mu.Unlock()
		p.start()
	})
}

// registerSubject pre-warms the topic cache for the pair so that the first
// publish does not pay the resolution round-trip.
func (p *producer) registerSubject(ctx context.Context, tenant, subject string) error {
	_, err := p.resolver.Resolve(ctx, tenant, subject, false)
	return err
}

// close stops reconnecting and releases the connection. Queued events are
// dropped; flushing on shutdown is best-effort only.
func (p *producer) close() {
	p.mu.Lock()
	p.closed = true
	pub := p.pub
	p.pub = nil
	p.state = producerDisconnected
	p.mu.Unlock()

	if pub != nil {
		if err := pub.Close(); err != nil {
			p.logger.Warn(fmt.Sprintf("Failed to close publisher: %s", err))
		}
	}
}
