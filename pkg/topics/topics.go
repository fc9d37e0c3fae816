// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

// Package topics resolves (tenant, subject) pairs to physical broker topics
// through the data-broker service, memoizing results for the process
// lifetime.
package topics

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rascaraficci/iotagent/pkg/apiutil"
	"github.com/rascaraficci/iotagent/pkg/auth"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

// Resolver specifies the topic resolution API.
type Resolver interface {
	// Resolve maps the given (tenant, subject) pair to a physical topic
	// name. Results are cached for the process lifetime; concurrent
	// lookups for the same pair collapse into a single outstanding
	// request. Global subjects are not tenant-scoped on the broker side,
	// though the bearer credential is still minted per tenant.
	Resolve(ctx context.Context, tenant, subject string, global bool) (string, error)
}

// Config contains resolver configuration parameters.
type Config struct {
	BrokerURL       string
	TLSVerification bool
}

var _ Resolver = (*resolver)(nil)

type resolver struct {
	brokerURL  string
	tokens     auth.Provider
	httpClient *http.Client

	mu     sync.Mutex
	topics map[string]string
	flight map[string]*lookup
}

type lookup struct {
	done  chan struct{}
	topic string
	err   error
}

// NewResolver returns a data-broker backed topic resolver.
func NewResolver(conf Config, tokens auth.Provider) Resolver {
	return &resolver{
		brokerURL: conf.BrokerURL,
		tokens:    tokens,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !conf.TLSVerification,
				},
			},
		},
		topics: make(map[string]string),
		flight: make(map[string]*lookup),
	}
}

func (r *resolver) Resolve(ctx context.Context, tenant, subject string, global bool) (string, error) {
	key := fmt.Sprintf("%s:%s", tenant, subject)

	r.mu.Lock()
	if topic, ok := r.topics[key]; ok {
		r.mu.Unlock()
		return topic, nil
	}
	if l, ok := r.flight[key]; ok {
		r.mu.Unlock()
		<-l.done
		return l.topic, l.err
	}
	l := &lookup{done: make(chan struct{})}
	r.flight[key] = l
	r.mu.Unlock()

	topic, err := r.fetch(ctx, tenant, subject, global)

	r.mu.Lock()
	if err == nil {
		r.topics[key] = topic
	}
	delete(r.flight, key)
	r.mu.Unlock()

	l.topic = topic
	l.err = err
	close(l.done)

	return topic, err
}

func (r *resolver) fetch(ctx context.Context, tenant, subject string, global bool) (string, error) {
	url := fmt.Sprintf("%s/topic/%s", r.brokerURL, subject)
	if global {
		url = fmt.Sprintf("%s?global=true", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrResolution, err)
	}

	token, err := r.tokens.Token(tenant)
	if err != nil {
		return "", errors.Wrap(errors.ErrResolution, err)
	}
	req.Header.Set("Authorization", apiutil.BearerPrefix+token)

	res, err := r.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.ErrResolution, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Wrap(errors.ErrResolution, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var tr topicRes
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return "", errors.Wrap(errors.ErrResolution, err)
	}

	return tr.Topic, nil
}

type topicRes struct {
	Topic string `json:"topic"`
}
