// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package nats

import (
	"github.com/rascaraficci/iotagent/pkg/messaging"
	broker "github.com/nats-io/nats.go"
)

// A maximum number of reconnect attempts before NATS connection closes
// permanently. Value -1 represents an unlimited number of reconnect retries,
// i.e. the client will never give up on retrying to re-establish connection
// to NATS server.
const maxReconnects = -1

var _ messaging.Publisher = (*publisher)(nil)

type publisher struct {
	conn *broker.Conn
}

// NewPublisher returns NATS message Publisher.
func NewPublisher(url string) (messaging.Publisher, error) {
	conn, err := broker.Connect(url, broker.MaxReconnects(maxReconnects))
	if err != nil {
		return nil, err
	}
	ret := &publisher{
		conn: conn,
	}
	return ret, nil
}

func (pub *publisher) Publish(topic string, payload []byte) error {
	return pub.conn.Publish(topic, payload)
}

func (pub *publisher) Close() error {
	pub.conn.Close()
	return nil
}
