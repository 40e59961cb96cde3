// Package domain contains core business types and interfaces.
//
// This file defines the session envelope persisted in the auth cookie and
// the derived states the request gate computes from it.
package domain

import (
	"encoding/json"
	"strings"
)

// SessionEnvelope is the {token, record} pair returned by every successful
// auth or refresh call and persisted, whole, in the session cookie.
type SessionEnvelope struct {
	Token  string `json:"token"`
	Record Record `json:"record"`
}

// DecodeEnvelope builds an envelope from a backend auth response body.
//
// It is the only constructor: envelopes are never assembled from local data.
// A body without a token is rejected so a half-successful response can never
// be written to the cookie.
func DecodeEnvelope(op string, body []byte) (*SessionEnvelope, error) {
	var env SessionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, Wrap(err, EBACKEND, op, "Unexpected response from authentication server")
	}
	if strings.TrimSpace(env.Token) == "" {
		return nil, Backend(op, "Authentication server did not return a token")
	}
	return &env, nil
}

// TokenState is the gate's local reading of a bearer token.
type TokenState int

const (
	TokenAbsent TokenState = iota
	TokenValid
	TokenExpiringSoon
	TokenExpired
	TokenMalformed
)

func (s TokenState) String() string {
	switch s {
	case TokenAbsent:
		return "absent"
	case TokenValid:
		return "valid"
	case TokenExpiringSoon:
		return "expiring_soon"
	case TokenExpired:
		return "expired"
	case TokenMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Present reports whether a token value exists at all, usable or not.
func (s TokenState) Present() bool {
	return s != TokenAbsent
}

// RouteClass is the access class of a request path.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
	RouteAuthOnly
)

func (c RouteClass) String() string {
	switch c {
	case RouteProtected:
		return "protected"
	case RouteAuthOnly:
		return "auth_only"
	default:
		return "public"
	}
}
