// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/rascaraficci/iotagent/agent"
)

func publishEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(publishReq)
		if err := req.validate(); err != nil {
			return nil, err
		}

		if err := svc.UpdateAttrs(ctx, req.deviceID, req.tenant, req.Attrs); err != nil {
			return nil, err
		}

		return publishRes{}, nil
	}
}

func statusEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(statusReq)
		if err := req.validate(); err != nil {
			return nil, err
		}

		if req.Status == statusOffline {
			if err := svc.SetOffline(ctx, req.deviceID, req.tenant); err != nil {
				return nil, err
			}
			return publishRes{}, nil
		}

		if err := svc.SetOnline(ctx, req.deviceID, req.tenant, time.Duration(req.Expires)*time.Second); err != nil {
			return nil, err
		}

		return publishRes{}, nil
	}
}

func viewDeviceEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(viewDeviceReq)
		if err := req.validate(); err != nil {
			return nil, err
		}

		device, err := svc.GetDevice(ctx, req.deviceID, req.tenant)
		if err != nil {
			return nil, err
		}

		return deviceRes{device}, nil
	}
}

func listDevicesEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listDevicesReq)
		if err := req.validate(); err != nil {
			return nil, err
		}

		ids, err := svc.ListDevices(ctx, req.tenant)
		if err != nil {
			return nil, err
		}

		return devicesRes{Devices: ids}, nil
	}
}

func listTenantsEndpoint(svc agent.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listTenantsReq)
		if err := req.validate(); err != nil {
			return nil, err
		}

		tenants, err := svc.ListTenants(ctx)
		if err != nil {
			return nil, err
		}

		return tenantsRes{Tenants: tenants}, nil
	}
}
