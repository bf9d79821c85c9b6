// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package auth

import "context"

// Context exposes the signed-in user.
type Context interface {
	// CurrentUserID returns the user id, or "" when nobody is signed in.
	CurrentUserID() string
}

// Static is a Context for a fixed user.
type Static string

// CurrentUserID implements Context.
func (s Static) CurrentUserID() string { return string(s) }

type contextKey string

const claimsContextKey contextKey = "claims"

// ContextWithClaims returns a context carrying verified claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the verified claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.UserID
	}
	return ""
}

// Request is a Context bound to a request context.
type Request struct {
	ctx context.Context
}

// FromContext returns a Context reading the user from ctx.
func FromContext(ctx context.Context) Request {
	return Request{ctx: ctx}
}

// CurrentUserID implements Context.
func (r Request) CurrentUserID() string { return UserIDFromContext(r.ctx) }
