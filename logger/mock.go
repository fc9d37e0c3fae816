// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package logger

var _ Logger = (*mockLogger)(nil)

type mockLogger struct{}

// NewMock returns a mock logger to be used by tests.
func NewMock() Logger {
	return mockLogger{}
}

func (l mockLogger) Debug(msg string) {}

func (l mockLogger) Info(msg string) {}

func (l mockLogger) Warn(msg string) {}

func (l mockLogger) Error(msg string) {}
