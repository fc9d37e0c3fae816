// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package iotagent

import "os"

// Env reads specified environment variable. If no value has been found,
// fallback is returned.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
