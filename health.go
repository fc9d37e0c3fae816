// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package iotagent

import (
	"encoding/json"
	"net/http"
)

const (
	contentType = "Content-Type"
	ctJSON      = "application/health+json"
	svcStatus   = "pass"
	// Version represents the last service git tag in git history.
	// It's meant to be set using go build ldflags:
	// -ldflags "-X 'github.com/rascaraficci/iotagent.Version=0.0.0'".
	Version = "0.0.0"
	// BuildTime represeted in date format.
	// It's meant to be set using go build ldflags:
	// -ldflags "-X 'github.com/rascaraficci/iotagent.BuildTime=date'".
	BuildTime = "1970-01-01_00:00:00"
)

// HealthInfo contains version endpoint response.
type HealthInfo struct {
	// Status contains service status.
	Status string `json:"status"`

	// Version contains current service version.
	Version string `json:"version"`

	// Description contains service description.
	Description string `json:"description"`

	// BuildTime contains service build time.
	BuildTime string `json:"build_time"`
}

// Health exposes an HTTP handler for retrieving service health.
func Health(service string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set(contentType, ctJSON)
		res := HealthInfo{
			Status:      svcStatus,
			Version:     Version,
			Description: service + " service",
			BuildTime:   BuildTime,
		}

		rw.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(rw).Encode(res); err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
		}
	}
}
