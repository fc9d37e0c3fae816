// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package http_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rascaraficci/iotagent/agent"
	httpapi "github.com/rascaraficci/iotagent/agent/api/http"
	"github.com/rascaraficci/iotagent/agent/cache"
	agentmocks "github.com/rascaraficci/iotagent/agent/mocks"
	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/messaging"
	"github.com/rascaraficci/iotagent/pkg/mocks"
	"github.com/rascaraficci/iotagent/pkg/uuid"
	"github.com/stretchr/testify/assert"
)

const (
	tenant      = "acme"
	deviceID    = "d1"
	contentType = "application/json"
	emptyValue  = ""
)

var device = directory.Device{
	ID:        deviceID,
	Label:     "thermostat",
	Templates: []int{1},
}

func newService() agent.Service {
	dir := agentmocks.NewDirectory([]string{tenant}, map[string]map[string]directory.Device{
		tenant: {deviceID: device},
	})
	publisher := mocks.NewPublisher()
	connect := func() (messaging.Publisher, error) {
		return publisher, nil
	}

	return agent.New(agent.Config{}, dir, agentmocks.NewResolver(), mocks.NewBroker(), connect, cache.New(time.Hour), uuid.NewMock(), logger.NewMock())
}

func newHTTPServer(svc agent.Service) *httptest.Server {
	mux := httpapi.MakeHandler(svc, logger.NewMock())
	return httptest.NewServer(mux)
}

type testRequest struct {
	client      *http.Client
	method      string
	url         string
	contentType string
	tenant      string
	deviceID    string
	body        io.Reader
}

func (tr testRequest) make() (*http.Response, error) {
	req, err := http.NewRequest(tr.method, tr.url, tr.body)
	if err != nil {
		return nil, err
	}

	if tr.tenant != "" {
		req.Header.Set("X-Tenant-Id", tr.tenant)
	}

	if tr.deviceID != "" {
		req.Header.Set("X-Device-Id", tr.deviceID)
	}

	if tr.contentType != "" {
		req.Header.Set("Content-Type", tr.contentType)
	}

	return tr.client.Do(req)
}

func TestPublishMessage(t *testing.T) {
	svc := newService()
	ts := newHTTPServer(svc)
	defer ts.Close()

	cases := []struct {
		desc        string
		method      string
		tenant      string
		deviceID    string
		contentType string
		body        string
		status      int
	}{
		{
			desc:        "publish attribute update",
			method:      http.MethodPost,
			tenant:      tenant,
			deviceID:    deviceID,
			contentType: contentType,
			body:        `{"temperature":21.5}`,
			status:      http.StatusAccepted,
		},
		{
			desc:        "publish attribute update with put",
			method:      http.MethodPut,
			tenant:      tenant,
			deviceID:    deviceID,
			contentType: contentType,
			body:        `{"temperature":21.5}`,
			status:      http.StatusAccepted,
		},
		{
			desc:        "publish without tenant",
			method:      http.MethodPost,
			tenant:      emptyValue,
			deviceID:    deviceID,
			contentType: contentType,
			body:        `{"temperature":21.5}`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "publish without device id",
			method:      http.MethodPost,
			tenant:      tenant,
			deviceID:    emptyValue,
			contentType: contentType,
			body:        `{"temperature":21.5}`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "publish with invalid content type",
			method:      http.MethodPost,
			tenant:      tenant,
			deviceID:    deviceID,
			contentType: "text/plain",
			body:        `{"temperature":21.5}`,
			status:      http.StatusUnsupportedMediaType,
		},
		{
			desc:        "publish with malformed body",
			method:      http.MethodPost,
			tenant:      tenant,
			deviceID:    deviceID,
			contentType: contentType,
			body:        `{not json`,
			status:      http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		req := testRequest{
			client:      ts.Client(),
			method:      tc.method,
			url:         fmt.Sprintf("%s/messages", ts.URL),
			contentType: tc.contentType,
			tenant:      tc.tenant,
			deviceID:    tc.deviceID,
			body:        strings.NewReader(tc.body),
		}
		res, err := req.make()
		assert.Nil(t, err, fmt.Sprintf("%s: got unexpected error: %s", tc.desc, err))
		assert.Equal(t, tc.status, res.StatusCode, fmt.Sprintf("%s: expected status %d got %d", tc.desc, tc.status, res.StatusCode))
	}
}

func TestSetStatus(t *testing.T) {
	svc := newService()
	ts := newHTTPServer(svc)
	defer ts.Close()

	cases := []struct {
		desc   string
		body   string
		status int
	}{
		{
			desc:   "set device online",
			body:   `{"status":"online","expires":300}`,
			status: http.StatusAccepted,
		},
		{
			desc:   "set device offline",
			body:   `{"status":"offline"}`,
			status: http.StatusAccepted,
		},
		{
			desc:   "set invalid status",
			body:   `{"status":"sleeping"}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		req := testRequest{
			client:      ts.Client(),
			method:      http.MethodPut,
			url:         fmt.Sprintf("%s/status", ts.URL),
			contentType: contentType,
			tenant:      tenant,
			deviceID:    deviceID,
			body:        strings.NewReader(tc.body),
		}
		res, err := req.make()
		assert.Nil(t, err, fmt.Sprintf("%s: got unexpected error: %s", tc.desc, err))
		assert.Equal(t, tc.status, res.StatusCode, fmt.Sprintf("%s: expected status %d got %d", tc.desc, tc.status, res.StatusCode))
	}
}

func TestViewDevice(t *testing.T) {
	svc := newService()
	ts := newHTTPServer(svc)
	defer ts.Close()

	cases := []struct {
		desc     string
		deviceID string
		tenant   string
		status   int
	}{
		{
			desc:     "view existing device",
			deviceID: deviceID,
			tenant:   tenant,
			status:   http.StatusOK,
		},
		{
			desc:     "view unknown device",
			deviceID: "missing",
			tenant:   tenant,
			status:   http.StatusNotFound,
		},
		{
			desc:     "view device without tenant",
			deviceID: deviceID,
			tenant:   emptyValue,
			status:   http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		req := testRequest{
			client: ts.Client(),
			method: http.MethodGet,
			url:    fmt.Sprintf("%s/devices/%s", ts.URL, tc.deviceID),
			tenant: tc.tenant,
		}
		res, err := req.make()
		assert.Nil(t, err, fmt.Sprintf("%s: got unexpected error: %s", tc.desc, err))
		assert.Equal(t, tc.status, res.StatusCode, fmt.Sprintf("%s: expected status %d got %d", tc.desc, tc.status, res.StatusCode))
	}
}

func TestListDevices(t *testing.T) {
	svc := newService()
	ts := newHTTPServer(svc)
	defer ts.Close()

	req := testRequest{
		client: ts.Client(),
		method: http.MethodGet,
		url:    fmt.Sprintf("%s/devices", ts.URL),
		tenant: tenant,
	}
	res, err := req.make()
	assert.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, http.StatusOK, res.StatusCode, fmt.Sprintf("expected status %d got %d", http.StatusOK, res.StatusCode))
}

func TestListTenants(t *testing.T) {
	svc := newService()
	ts := newHTTPServer(svc)
	defer ts.Close()

	req := testRequest{
		client: ts.Client(),
		method: http.MethodGet,
		url:    fmt.Sprintf("%s/tenants", ts.URL),
	}
	res, err := req.make()
	assert.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, http.StatusOK, res.StatusCode, fmt.Sprintf("expected status %d got %d", http.StatusOK, res.StatusCode))
}
