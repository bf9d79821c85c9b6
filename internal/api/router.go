// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/auth"
	"github.com/tomtom215/tunereel/internal/logging"
	"github.com/tomtom215/tunereel/internal/middleware"
	"github.com/tomtom215/tunereel/internal/models"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// Verifier checks bearer tokens. StaticUserID, when set, is used for
	// requests without an Authorization header.
	Verifier     auth.Verifier
	StaticUserID string

	Logger zerolog.Logger
}

// accessTokenParam lets browser WebSocket clients, which cannot set
// headers, pass their bearer token in the query string.
const accessTokenParam = "access_token"

// NewRouter builds the HTTP router.
//
// Middleware stack (outermost first):
//
//	RequestID -> RealIP -> AccessLog -> Recoverer -> PrometheusMetrics -> CORS
//
// /api/v1 additionally applies IP rate limiting and authentication.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, &models.APIError{Code: "NOT_FOUND", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, &models.APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Use(tokenFromQuery)
		r.Use(auth.Middleware(cfg.Verifier, cfg.StaticUserID, authError))

		r.Route("/feed", func(r chi.Router) {
			r.Get("/current", h.FeedCurrent)
			r.Get("/lookahead", h.FeedLookahead)
			r.Get("/state", h.FeedState)
			r.Post("/advance", h.FeedAdvance)
			r.Post("/retry", h.FeedRetry)
		})

		r.Route("/playback", func(r chi.Router) {
			r.Post("/play", h.PlaybackPlay)
			r.Post("/pause", h.PlaybackPause)
			r.Post("/retry", h.PlaybackRetry)
			r.Post("/skip", h.PlaybackSkip)
		})

		r.Post("/engagement/like", h.Like)
		r.Patch("/profile", h.UpdateProfile)
		r.Get("/ws", h.WebSocket)
	})

	return r
}

// rateLimit limits requests per client IP unless disabled.
func rateLimit(cfg RouterConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled || cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		cfg.RateLimitRequests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, &models.APIError{
				Code:    "TOO_MANY_REQUESTS",
				Message: "rate limit exceeded",
			})
		}),
	)
}

// tokenFromQuery moves ?access_token= into the Authorization header for
// WebSocket upgrades that carry no header of their own.
func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" && r.Header.Get("Upgrade") != "" {
			if token := r.URL.Query().Get(accessTokenParam); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authError renders authentication failures as 401 AUTHENTICATION_ERROR.
func authError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Debug().Err(err).Msg("Authentication failed")
	respondError(w, http.StatusUnauthorized, &models.APIError{
		Code:    ErrCodeAuthentication,
		Message: "authentication required",
	})
}
