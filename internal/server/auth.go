// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// LocalPrincipal is the identity assigned to every request when no auth
// tokens are configured (single-user local deployment).
const LocalPrincipal = "local"

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal for the request,
// or empty if the request never passed through the auth middleware.
func PrincipalFromContext(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(string)
	return p
}

// Authenticator resolves bearer tokens to principals from a static table.
type Authenticator struct {
	tokens map[string]string
}

// NewAuthenticator creates an Authenticator. A nil or empty token table
// disables enforcement.
func NewAuthenticator(tokens map[string]string) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Enabled reports whether any tokens are configured.
func (a *Authenticator) Enabled() bool {
	return len(a.tokens) > 0
}

// Middleware authenticates requests and stores the principal in the request
// context. The health endpoint stays reachable without credentials so load
// balancers can probe it.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if !a.Enabled() {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, LocalPrincipal)))
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeUnauthorized(w, "missing bearer token")
			return
		}

		principal, ok := a.tokens[token]
		if !ok {
			writeUnauthorized(w, "invalid bearer token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal)))
	})
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// writeUnauthorized emits an RFC 7807 problem document, matching the error
// shape huma produces for handler-level failures.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  "Unauthorized",
		"status": http.StatusUnauthorized,
		"detail": detail,
	})
}
