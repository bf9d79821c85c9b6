// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/tunereel/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newVerifier(t *testing.T, ttl time.Duration) *TokenVerifier {
	t.Helper()
	v, err := NewTokenVerifier(testSecret, ttl, "tunereel")
	if err != nil {
		t.Fatalf("NewTokenVerifier() error = %v", err)
	}
	return v
}

func TestNewTokenVerifierRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenVerifier("short", time.Hour, ""); err == nil {
		t.Error("NewTokenVerifier() accepted a short secret")
	}
}

func TestIssueAndVerify(t *testing.T) {
	v := newVerifier(t, time.Hour)
	token, err := v.Issue("u1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" {
		t.Errorf("claims = %+v, want user u1", claims)
	}
}

func TestVerifyFailures(t *testing.T) {
	v := newVerifier(t, time.Hour)
	other, _ := NewTokenVerifier(strings.Repeat("x", 40), time.Hour, "tunereel")
	foreign, _ := other.Issue("u1")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tunereel",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tunereel",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	noUserToken, _ := noUser.SignedString([]byte(testSecret))

	wrongIssuer, _ := func() (string, error) {
		w, _ := NewTokenVerifier(testSecret, time.Hour, "someone-else")
		return w.Issue("u1")
	}()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expiredToken},
		{"no user", noUserToken},
		{"wrong issuer", wrongIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			if !errors.Is(err, models.ErrNotAuthenticated) {
				t.Errorf("Verify() error = %v, want ErrNotAuthenticated", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := newVerifier(t, time.Hour)
	token, _ := v.Issue("u42")

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		if FromContext(r.Context()).CurrentUserID() != gotUser {
			t.Error("FromContext disagrees with UserIDFromContext")
		}
		w.WriteHeader(http.StatusOK)
	})
	onError := func(w http.ResponseWriter, _ *http.Request, err error) {
		if !errors.Is(err, models.ErrNotAuthenticated) {
			t.Errorf("onError got %v", err)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}

	tests := []struct {
		name       string
		static     string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid bearer", "", "Bearer " + token, http.StatusOK, "u42"},
		{"lowercase scheme", "", "bearer " + token, http.StatusOK, "u42"},
		{"missing header", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "", "Bearer nope", http.StatusUnauthorized, ""},
		{"static fallback", "demo", "", http.StatusOK, "demo"},
		{"bearer wins over static", "demo", "Bearer " + token, http.StatusOK, "u42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			h := Middleware(v, tt.static, onError)(next)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %q, want %q", gotUser, tt.wantUser)
			}
		})
	}
}

func TestStaticAndEmptyContext(t *testing.T) {
	if Static("u1").CurrentUserID() != "u1" {
		t.Error("Static returned the wrong user")
	}
	if UserIDFromContext(context.Background()) != "" {
		t.Error("empty context produced a user")
	}
}
