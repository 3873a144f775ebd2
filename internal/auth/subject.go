// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeNone trusts nobody and labels callers anonymous. Development only.
	AuthModeNone AuthMode = "none"

	// AuthModeHeader trusts identity headers set by an upstream proxy.
	AuthModeHeader AuthMode = "header"

	// AuthModeJWT verifies HS256 bearer tokens.
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModeNone, AuthModeHeader, AuthModeJWT:
		return AuthMode(s), nil
	case "":
		return AuthModeJWT, nil
	default:
		return "", fmt.Errorf("invalid auth mode: %q", s)
	}
}

var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Authenticator extracts and validates the caller identity of a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*Subject, error)
	Name() string
}

// Subject is an authenticated caller. Roles feed casbin.
type Subject struct {
	ID        string   `json:"id"`
	Roles     []string `json:"roles,omitempty"`
	Anonymous bool     `json:"anonymous,omitempty"`
}

// HasRole reports whether the subject holds role.
func (s *Subject) HasRole(role string) bool {
	return s != nil && slices.Contains(s.Roles, role)
}

type contextKey string

const subjectKey contextKey = "auth_subject"

// WithSubject stores s in ctx.
func WithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectKey, s)
}

// GetAuthSubject returns nil for unauthenticated contexts.
func GetAuthSubject(ctx context.Context) *Subject {
	s, _ := ctx.Value(subjectKey).(*Subject)
	return s
}
