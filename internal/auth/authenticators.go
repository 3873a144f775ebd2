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
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/civitas/internal/config"
)

// JWTAuthenticator reads a bearer token from the Authorization header.
type JWTAuthenticator struct {
	manager *JWTManager
}

// NewJWTAuthenticator wraps manager.
func NewJWTAuthenticator(manager *JWTManager) *JWTAuthenticator {
	return &JWTAuthenticator{manager: manager}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Subject, error) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		return nil, ErrNoCredentials
	}
	claims, err := a.manager.ValidateToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredentials
		}
		return nil, ErrInvalidCredentials
	}
	return &Subject{ID: claims.Subject, Roles: claims.Roles}, nil
}

func (a *JWTAuthenticator) Name() string { return string(AuthModeJWT) }

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// HeaderAuthenticator trusts identity headers written by an upstream proxy.
// Only deploy it behind a proxy that strips these headers from clients.
type HeaderAuthenticator struct {
	userHeader  string
	rolesHeader string
}

// NewHeaderAuthenticator reads the user ID from userHeader and a comma
// separated role list from rolesHeader.
func NewHeaderAuthenticator(userHeader, rolesHeader string) *HeaderAuthenticator {
	return &HeaderAuthenticator{userHeader: userHeader, rolesHeader: rolesHeader}
}

func (a *HeaderAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Subject, error) {
	id := strings.TrimSpace(r.Header.Get(a.userHeader))
	if id == "" {
		return nil, ErrNoCredentials
	}
	return &Subject{ID: id, Roles: splitRoles(r.Header.Get(a.rolesHeader))}, nil
}

func (a *HeaderAuthenticator) Name() string { return string(AuthModeHeader) }

func splitRoles(v string) []string {
	var roles []string
	for _, role := range strings.Split(v, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// NoneAuthenticator accepts every request. A caller that names itself in
// userHeader keeps that ID so local testing can follow one user; everyone
// else gets a fresh anonymous ID per request.
type NoneAuthenticator struct {
	userHeader string
}

// NewNoneAuthenticator returns the development authenticator.
func NewNoneAuthenticator(userHeader string) *NoneAuthenticator {
	return &NoneAuthenticator{userHeader: userHeader}
}

func (a *NoneAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Subject, error) {
	if a.userHeader != "" {
		if id := strings.TrimSpace(r.Header.Get(a.userHeader)); id != "" {
			return &Subject{ID: id}, nil
		}
	}
	return &Subject{ID: "anon-" + uuid.NewString(), Anonymous: true}, nil
}

func (a *NoneAuthenticator) Name() string { return string(AuthModeNone) }

// NewAuthenticator builds the authenticator selected by cfg.AuthMode.
func NewAuthenticator(cfg config.SecurityConfig) (Authenticator, error) {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}
	switch mode {
	case AuthModeJWT:
		manager, err := NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, err
		}
		return NewJWTAuthenticator(manager), nil
	case AuthModeHeader:
		return NewHeaderAuthenticator(cfg.UserHeader, cfg.RolesHeader), nil
	case AuthModeNone:
		return NewNoneAuthenticator(cfg.UserHeader), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", mode)
	}
}
