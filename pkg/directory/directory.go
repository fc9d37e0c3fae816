// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

// Package directory provides an HTTP client towards the platform directory
// services: the tenancy manager holding the tenant list and the device
// manager holding device data.
package directory

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rascaraficci/iotagent/pkg/apiutil"
	"github.com/rascaraficci/iotagent/pkg/auth"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

// Device contains a device descriptor as held by the device manager. The
// same representation travels in device lifecycle events.
type Device struct {
	ID        string         `json:"id"`
	Label     string         `json:"label,omitempty"`
	Templates []int          `json:"templates,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Client specifies the directory service API the agent depends on.
type Client interface {
	// ListTenants returns all tenants known to the platform.
	ListTenants(ctx context.Context) ([]string, error)

	// ListDevices returns the ids of all devices of the given tenant.
	ListDevices(ctx context.Context, tenant string) ([]string, error)

	// Device returns the full descriptor of the given device. If the
	// device manager does not know the device, errors.ErrUnknownDevice
	// is returned.
	Device(ctx context.Context, deviceID, tenant string) (Device, error)
}

// Config contains directory client configuration parameters.
type Config struct {
	AuthURL          string
	DeviceManagerURL string
	TLSVerification  bool
}

var _ Client = (*client)(nil)

type client struct {
	authURL          string
	deviceManagerURL string
	tokens           auth.Provider
	httpClient       *http.Client
}

// NewClient returns a new directory service client.
func NewClient(conf Config, tokens auth.Provider) Client {
	return &client{
		authURL:          conf.AuthURL,
		deviceManagerURL: conf.DeviceManagerURL,
		tokens:           tokens,
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !conf.TLSVerification,
				},
			},
		},
	}
}

func (c client) ListTenants(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/admin/tenants", c.authURL)

	res, err := c.sendRequest(ctx, url, "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrFetchTenants, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Wrap(errors.ErrFetchTenants, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var page tenantsRes
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, errors.Wrap(errors.ErrFetchTenants, err)
	}

	return page.Tenants, nil
}

func (c client) ListDevices(ctx context.Context, tenant string) ([]string, error) {
	url := fmt.Sprintf("%s/device?idsOnly", c.deviceManagerURL)

	res, err := c.sendRequest(ctx, url, tenant)
	if err != nil {
		return nil, errors.Wrap(errors.ErrFetchDevice, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Wrap(errors.ErrFetchDevice, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var ids []string
	if err := json.NewDecoder(res.Body).Decode(&ids); err != nil {
		return nil, errors.Wrap(errors.ErrFetchDevice, err)
	}

	return ids, nil
}

func (c client) Device(ctx context.Context, deviceID, tenant string) (Device, error) {
	url := fmt.Sprintf("%s/device/%s", c.deviceManagerURL, deviceID)

	res, err := c.sendRequest(ctx, url, tenant)
	if err != nil {
		return Device{}, errors.Wrap(errors.ErrFetchDevice, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Device{}, errors.ErrUnknownDevice
	default:
		return Device{}, errors.Wrap(errors.ErrFetchDevice, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var device Device
	if err := json.NewDecoder(res.Body).Decode(&device); err != nil {
		return Device{}, errors.Wrap(errors.ErrFetchDevice, err)
	}

	return device, nil
}

func (c client) sendRequest(ctx context.Context, url, tenant string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if tenant != "" {
		token, err := c.tokens.Token(tenant)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", apiutil.BearerPrefix+token)
	}

	return c.httpClient.Do(req)
}

type tenantsRes struct {
	Tenants []string `json:"tenants"`
}
