// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/rascaraficci/iotagent/pkg/topics"
)

var _ topics.Resolver = (*Resolver)(nil)

// Resolver maps subjects to predictable topic names without a broker
// service: tenant-scoped subjects resolve to "tenant.subject", global ones
// to the bare subject name.
type Resolver struct {
	mu      sync.Mutex
	lookups int
	err     error
}

// NewResolver returns a topic resolver mock.
func NewResolver() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Resolve(ctx context.Context, tenant, subject string, global bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups++
	if r.err != nil {
		return "", r.err
	}

	if global {
		return subject, nil
	}

	return fmt.Sprintf("%s.%s", tenant, subject), nil
}

// Fail makes subsequent Resolve calls return the given error. Passing nil
// restores normal operation.
func (r *Resolver) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

// Lookups returns the number of Resolve calls that reached the mock.
func (r *Resolver) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lookups
}
