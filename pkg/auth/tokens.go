// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

// Package auth provides per-tenant bearer credentials for calls towards the
// platform directory services and the topic broker.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rascaraficci/iotagent/pkg/errors"
)

const issuer = "iotagent"

// Provider specifies an API for minting tenant-scoped bearer tokens.
type Provider interface {
	// Token returns a bearer token valid for the given tenant.
	Token(tenant string) (string, error)
}

type claims struct {
	Service  string `json:"service"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

var _ Provider = (*provider)(nil)

type provider struct {
	secret   []byte
	lifetime time.Duration
}

// New returns a tenant token provider signing tokens with the given secret.
// Tokens expire after the given lifetime; a zero lifetime produces tokens
// without an expiry claim.
func New(secret string, lifetime time.Duration) Provider {
	return &provider{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

func (p *provider) Token(tenant string) (string, error) {
	cs := claims{
		Service:  tenant,
		Username: issuer,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if p.lifetime > 0 {
		cs.ExpiresAt = jwt.NewNumericDate(time.Now().Add(p.lifetime))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cs).SignedString(p.secret)
	if err != nil {
		return "", errors.Wrap(errors.ErrMintToken, err)
	}

	return token, nil
}
