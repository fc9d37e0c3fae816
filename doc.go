// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

// Package iotagent acts as an umbrella package containing multiple root
// concerns of the IoT agent client library.
package iotagent
