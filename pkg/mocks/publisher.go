// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"sync"

	"github.com/rascaraficci/iotagent/pkg/messaging"
)

var _ messaging.Publisher = (*MockPublisher)(nil)

// Message holds a single published message.
type Message struct {
	Topic   string
	Payload []byte
}

// MockPublisher is a message publisher recording published messages. A
// failure can be injected to exercise the producer reconnect path.
type MockPublisher struct {
	mu       sync.Mutex
	messages []Message
	err      error
	closed   bool
}

// NewPublisher returns mock message publisher.
func NewPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (pub *MockPublisher) Publish(topic string, payload []byte) error {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	if pub.err != nil {
		return pub.err
	}

	pub.messages = append(pub.messages, Message{Topic: topic, Payload: payload})
	return nil
}

func (pub *MockPublisher) Close() error {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	pub.closed = true
	return nil
}

// Fail makes subsequent Publish calls return the given error. Passing nil
// restores normal operation.
func (pub *MockPublisher) Fail(err error) {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	pub.err = err
}

// Messages returns a copy of all successfully published messages.
func (pub *MockPublisher) Messages() []Message {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	msgs := make([]Message, len(pub.messages))
	copy(msgs, pub.messages)
	return msgs
}

// Closed reports whether the publisher connection has been closed.
func (pub *MockPublisher) Closed() bool {
	pub.mu.Lock()
	defer pub.mu.Unlock()

	return pub.closed
}
