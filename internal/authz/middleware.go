// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package authz

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/civitas/internal/auth"
	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/models"
)

// Middleware gates routes on permissions.
type Middleware struct {
	enforcer *Enforcer
	deny     auth.DenyFunc
}

// NewMiddleware creates authorization middleware. deny receives an error
// wrapping models.ErrForbidden or, on enforcer failure, the raw error.
func NewMiddleware(enforcer *Enforcer, deny auth.DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Forbidden", http.StatusForbidden)
		}
	}
	return &Middleware{enforcer: enforcer, deny: deny}
}

// Require rejects callers lacking perm.
func (m *Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.Check(r.Context(), perm); err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Check returns nil when the context subject holds perm.
func (m *Middleware) Check(ctx context.Context, perm Permission) error {
	subject := auth.GetAuthSubject(ctx)
	if subject == nil {
		return fmt.Errorf("%w: no authentication context", models.ErrForbidden)
	}
	allowed, err := m.enforcer.EnforceWithRoles(subject.ID, subject.Roles, perm)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("permission", string(perm)).Msg("authorization error")
		return err
	}
	if !allowed {
		logging.Ctx(ctx).Info().Str("permission", string(perm)).Strs("roles", subject.Roles).Msg("permission denied")
		return fmt.Errorf("%w: %s required", models.ErrForbidden, perm)
	}
	return nil
}

// Allowed reports whether the context subject holds perm, treating
// enforcer errors as a denial.
func (m *Middleware) Allowed(ctx context.Context, perm Permission) bool {
	return m.Check(ctx, perm) == nil
}
