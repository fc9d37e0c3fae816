// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package messaging

import "errors"

var (
	// ErrNotSubscribed indicates that the topic is not subscribed to.
	ErrNotSubscribed = errors.New("not subscribed")

	// ErrEmptyTopic indicates the absence of topic.
	ErrEmptyTopic = errors.New("empty topic")

	// ErrEmptyID indicates the absence of ID.
	ErrEmptyID = errors.New("empty ID")
)

// Publisher specifies message publishing API.
type Publisher interface {
	// Publish publishes an opaque payload to the given topic on the
	// message broker.
	Publish(topic string, payload []byte) error

	// Close gracefully closes message publisher's connection.
	Close() error
}

// MessageHandler represents payload handler for Subscriber.
type MessageHandler interface {
	// Handle handles payloads passed by underlying implementation.
	Handle(payload []byte) error

	// Cancel is used for cleanup during unsubscribing and it's optional.
	Cancel() error
}

// Subscriber specifies message subscription API.
type Subscriber interface {
	// Subscribe subscribes to the topic and consumes messages. The id is
	// used to distinguish subscribers of the same topic.
	Subscribe(id, topic string, handler MessageHandler) error

	// Unsubscribe unsubscribes from the topic and stops consuming
	// messages.
	Unsubscribe(id, topic string) error

	// Close gracefully closes message subscriber's connection.
	Close() error
}

// PubSub represents aggregation interface for publisher and subscriber.
type PubSub interface {
	Publisher
	Subscriber
}
