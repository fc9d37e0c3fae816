// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"sync"

	"github.com/rascaraficci/iotagent/pkg/messaging"
)

var _ messaging.PubSub = (*MockBroker)(nil)

// MockBroker is an in-memory message broker delivering published payloads
// synchronously to all topic subscribers.
type MockBroker struct {
	mu            sync.Mutex
	subscriptions map[string]map[string]messaging.MessageHandler
}

// NewBroker returns an in-memory broker implementing messaging.PubSub.
func NewBroker() *MockBroker {
	return &MockBroker{
		subscriptions: make(map[string]map[string]messaging.MessageHandler),
	}
}

func (b *MockBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	var handlers []messaging.MessageHandler
	for _, h := range b.subscriptions[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h.Handle(payload)
	}
	return nil
}

func (b *MockBroker) Subscribe(id, topic string, handler messaging.MessageHandler) error {
	if id == "" {
		return messaging.ErrEmptyID
	}
	if topic == "" {
		return messaging.ErrEmptyTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.subscriptions[topic]
	if !ok {
		s = make(map[string]messaging.MessageHandler)
		b.subscriptions[topic] = s
	}
	s[id] = handler

	return nil
}

func (b *MockBroker) Unsubscribe(id, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.subscriptions[topic]
	if !ok {
		return messaging.ErrNotSubscribed
	}
	if _, ok := s[id]; !ok {
		return messaging.ErrNotSubscribed
	}

	delete(s, id)
	if len(s) == 0 {
		delete(b.subscriptions, topic)
	}
	return nil
}

// Subscribers returns the number of handlers subscribed to the given topic.
func (b *MockBroker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscriptions[topic])
}

func (b *MockBroker) Close() error {
	return nil
}
