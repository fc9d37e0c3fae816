// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package directory_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rascaraficci/iotagent/pkg/auth"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenant   = "acme"
	deviceID = "efac"
)

var device = directory.Device{
	ID:        deviceID,
	Label:     "thermostat",
	Templates: []int{1, 5},
	Attrs:     map[string]any{"protocol": "mqtt"},
}

func newDirectoryServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/tenants":
			fmt.Fprint(w, `{"tenants":["acme","globex"]}`)
		case "/device":
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `["efac","beef"]`)
		case "/device/" + deviceID:
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"id":"efac","label":"thermostat","templates":[1,5],"attrs":{"protocol":"mqtt"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newClient(url string) directory.Client {
	conf := directory.Config{
		AuthURL:          url,
		DeviceManagerURL: url,
	}
	return directory.NewClient(conf, auth.New("secret", time.Hour))
}

func TestListTenants(t *testing.T) {
	ts := newDirectoryServer(t)
	defer ts.Close()

	client := newClient(ts.URL)

	tenants, err := client.ListTenants(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, []string{"acme", "globex"}, tenants, fmt.Sprintf("expected tenant list got %v", tenants))
}

func TestListDevices(t *testing.T) {
	ts := newDirectoryServer(t)
	defer ts.Close()

	client := newClient(ts.URL)

	ids, err := client.ListDevices(context.Background(), tenant)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, []string{"efac", "beef"}, ids, fmt.Sprintf("expected device ids got %v", ids))
}

func TestDevice(t *testing.T) {
	ts := newDirectoryServer(t)
	defer ts.Close()

	client := newClient(ts.URL)

	cases := []struct {
		desc     string
		deviceID string
		device   directory.Device
		err      error
	}{
		{
			desc:     "fetch existing device",
			deviceID: deviceID,
			device:   device,
			err:      nil,
		},
		{
			desc:     "fetch unknown device",
			deviceID: "missing",
			device:   directory.Device{},
			err:      errors.ErrUnknownDevice,
		},
	}

	for _, tc := range cases {
		dev, err := client.Device(context.Background(), tc.deviceID, tenant)
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
		assert.Equal(t, tc.device, dev, fmt.Sprintf("%s: expected %+v got %+v", tc.desc, tc.device, dev))
	}
}

func TestDeviceUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := newClient(ts.URL)

	_, err := client.Device(context.Background(), deviceID, tenant)
	assert.True(t, errors.Contains(err, errors.ErrFetchDevice), fmt.Sprintf("expected fetch error got %s", err))
	assert.False(t, errors.Contains(err, errors.ErrUnknownDevice), fmt.Sprintf("fetch failure must not map to unknown device: %s", err))
}
