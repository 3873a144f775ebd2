// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package auth

import (
	"net/http"

	"github.com/tomtom215/civitas/internal/logging"
)

// DenyFunc writes the response for a rejected request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests and stores the Subject in the context.
type Middleware struct {
	authenticator Authenticator
	defaultRole   string
	deny          DenyFunc
}

// NewMiddleware wraps a. Subjects with no roles get defaultRole; anonymous
// subjects never get a role.
func NewMiddleware(a Authenticator, defaultRole string, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
	}
	return &Middleware{authenticator: a, defaultRole: defaultRole, deny: deny}
}

// Authenticate rejects requests without valid credentials.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("authenticator", m.authenticator.Name()).Msg("authentication failed")
			m.deny(w, r, err)
			return
		}
		if len(subject.Roles) == 0 && !subject.Anonymous && m.defaultRole != "" {
			subject.Roles = []string{m.defaultRole}
		}

		ctx := WithSubject(r.Context(), subject)
		ctx = logging.ContextWithUserID(ctx, subject.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
