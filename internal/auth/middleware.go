// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package auth

import (
	"net/http"
	"strings"

	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/models"
)

// Verifier verifies bearer tokens.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware requires a valid bearer token and stores its claims in the
// request context. When staticUser is set and no Authorization header is
// present, requests are attributed to staticUser instead.
func Middleware(v Verifier, staticUser string, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			var claims *Claims
			switch {
			case header == "" && staticUser != "":
				claims = &Claims{UserID: staticUser}
			case v == nil:
				onError(w, r, models.ErrNotAuthenticated)
				return
			default:
				token, ok := bearerToken(header)
				if !ok {
					onError(w, r, models.ErrNotAuthenticated)
					return
				}
				c, err := v.Verify(token)
				if err != nil {
					logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
					onError(w, r, err)
					return
				}
				claims = c
			}

			ctx := ContextWithClaims(r.Context(), claims)
			ctx = logging.ContextWithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
