// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package errors

var (
	// ErrUnknownDevice indicates the device is absent upstream or recorded
	// as known-absent in the device cache.
	ErrUnknownDevice = New("unknown device")

	// ErrUnknownTenant indicates the referenced tenant does not exist.
	ErrUnknownTenant = New("unknown tenant")

	// ErrResolution indicates failure occurred while resolving a subject
	// to a physical topic.
	ErrResolution = New("failed to resolve topic for subject")

	// ErrFetchTenants indicates failure occurred while fetching the tenant
	// list from the directory service.
	ErrFetchTenants = New("failed to fetch tenant list")

	// ErrFetchDevice indicates failure occurred while fetching device data
	// from the directory service.
	ErrFetchDevice = New("failed to fetch device data")

	// ErrMintToken indicates failure occurred while minting a tenant token.
	ErrMintToken = New("failed to mint tenant token")

	// ErrMalformedMessage indicates that an inbound payload could not be
	// decoded as an event envelope.
	ErrMalformedMessage = New("malformed event payload")

	// ErrPublishMessage indicates failure occurred while publishing to the
	// message broker.
	ErrPublishMessage = New("failed to publish message")

	// ErrSubscribeTopic indicates failure occurred while subscribing to a
	// broker topic.
	ErrSubscribeTopic = New("failed to subscribe to topic")
)
