// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/civitas/internal/auth"
	"github.com/tomtom215/civitas/internal/metrics"
	"github.com/tomtom215/civitas/internal/models"
)

func setupEnforcer(t *testing.T, cfg EnforcerConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(cfg)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	t.Parallel()

	e := setupEnforcer(t, EnforcerConfig{})

	tests := []struct {
		role string
		perm Permission
		want bool
	}{
		{"user", PermContentWrite, true},
		{"user", PermContentEngage, true},
		{"user", PermContentModerate, false},
		{"user", PermDiscoveryRun, false},
		{"moderator", PermContentWrite, true},
		{"moderator", PermContentModerate, true},
		{"moderator", PermDiscoveryRun, true},
		{"operator", PermContentEngage, true},
		{"operator", PermDiscoveryRun, true},
		{"guest", PermContentWrite, false},
		{"", PermContentWrite, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+string(tt.perm), func(t *testing.T) {
			t.Parallel()
			got, err := e.Enforce(tt.role, tt.perm)
			if err != nil {
				t.Fatalf("Enforce: %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestEnforcer_EnforceWithRoles(t *testing.T) {
	t.Parallel()

	e := setupEnforcer(t, EnforcerConfig{CacheTTL: time.Minute})

	allowed := metrics.AuthzDecisions.WithLabelValues(string(PermDiscoveryRun), "allow")
	denied := metrics.AuthzDecisions.WithLabelValues(string(PermDiscoveryRun), "deny")
	beforeAllowed, beforeDenied := testutil.ToFloat64(allowed), testutil.ToFloat64(denied)

	ok, err := e.EnforceWithRoles("u1", []string{"user", "moderator"}, PermDiscoveryRun)
	if err != nil || !ok {
		t.Fatalf("moderator discovery:run = %v, %v", ok, err)
	}
	ok, err = e.EnforceWithRoles("u2", []string{"user"}, PermDiscoveryRun)
	if err != nil || ok {
		t.Fatalf("user discovery:run = %v, %v", ok, err)
	}

	if d := testutil.ToFloat64(allowed) - beforeAllowed; d < 1 {
		t.Errorf("allowed decisions delta = %v", d)
	}
	if d := testutil.ToFloat64(denied) - beforeDenied; d < 1 {
		t.Errorf("denied decisions delta = %v", d)
	}
	if e.cache.len() == 0 {
		t.Error("expected cached decisions")
	}
}

func TestEnforcer_PolicyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, auditor, discovery, run\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	e := setupEnforcer(t, EnforcerConfig{PolicyPath: path})
	if ok, _ := e.Enforce("auditor", PermDiscoveryRun); !ok {
		t.Error("file policy should grant auditor discovery:run")
	}
	if ok, _ := e.Enforce("user", PermContentWrite); ok {
		t.Error("file policy replaces the embedded one")
	}
}

func TestLoadEmbeddedPolicy_Malformed(t *testing.T) {
	t.Parallel()

	e := setupEnforcer(t, EnforcerConfig{})
	if err := loadEmbeddedPolicy(e.enforcer, "p, user, content\n"); err == nil {
		t.Error("expected error for short policy line")
	}
}

func TestEnforcementCache_Expiry(t *testing.T) {
	t.Parallel()

	c := newEnforcementCache(time.Minute)
	t.Cleanup(c.stop)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.set("user", "content", "write", true)
	if allowed, ok := c.get("user", "content", "write"); !ok || !allowed {
		t.Fatalf("get = %v, %v", allowed, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get("user", "content", "write"); ok {
		t.Error("expired entry should miss")
	}
	c.sweep()
	if c.len() != 0 {
		t.Errorf("len after sweep = %d", c.len())
	}
	c.stop()
}

func TestMiddleware_Require(t *testing.T) {
	t.Parallel()

	e := setupEnforcer(t, EnforcerConfig{})
	var deniedErr error
	mw := NewMiddleware(e, func(w http.ResponseWriter, _ *http.Request, err error) {
		deniedErr = err
		w.WriteHeader(http.StatusForbidden)
	})
	h := mw.Require(PermDiscoveryRun)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name    string
		subject *auth.Subject
		want    int
	}{
		{"moderator allowed", &auth.Subject{ID: "m1", Roles: []string{"moderator"}}, http.StatusAccepted},
		{"operator inherits", &auth.Subject{ID: "o1", Roles: []string{"operator"}}, http.StatusAccepted},
		{"user denied", &auth.Subject{ID: "u1", Roles: []string{"user"}}, http.StatusForbidden},
		{"no subject", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/discovery/run", nil)
			if tt.subject != nil {
				req = req.WithContext(auth.WithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusForbidden && !errors.Is(deniedErr, models.ErrForbidden) {
				t.Errorf("deny err = %v, want ErrForbidden", deniedErr)
			}
		})
	}
}

func TestMiddleware_Allowed(t *testing.T) {
	t.Parallel()

	mw := NewMiddleware(setupEnforcer(t, EnforcerConfig{}), nil)
	ctx := auth.WithSubject(t.Context(), &auth.Subject{ID: "m1", Roles: []string{"moderator"}})
	if !mw.Allowed(ctx, PermContentModerate) {
		t.Error("moderator should moderate")
	}
	ctx = auth.WithSubject(t.Context(), &auth.Subject{ID: "u1", Roles: []string{"user"}})
	if mw.Allowed(ctx, PermContentModerate) {
		t.Error("user should not moderate")
	}
}
