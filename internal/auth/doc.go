// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package auth identifies API callers.

Three modes are selected by security.auth_mode:

  - jwt: HS256 bearer tokens carrying sub and roles, verified with
    golang-jwt/jwt/v5 (algorithm pinned, expiry required, optional issuer)
  - header: a trusted proxy sets X-User-ID and X-User-Roles
  - none: development only; callers are anonymous unless they name
    themselves in the user header

The Middleware stores a *Subject in the request context, where the authz
package and the API handlers read it with GetAuthSubject.
*/
package auth
