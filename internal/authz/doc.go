// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package authz enforces role-based permissions with casbin.
//
// The model and default policy are embedded:
//
//	user      content:write, content:engage
//	moderator user + content:moderate, discovery:run
//	operator  moderator
//
// A policy file in casbin CSV format replaces the embedded policy when
// EnforcerConfig.PolicyPath points at one.
package authz
