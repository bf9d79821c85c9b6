// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

/*
Package auth identifies the user behind a request.

TokenVerifier issues and verifies HS256 JWT bearer tokens. Middleware puts
the verified claims into the request context, where UserIDFromContext and
FromContext read them. Static is a fixed-user Context for the simulator and
single-user deployments.

All verification failures wrap models.ErrNotAuthenticated so callers can map
them to 401 with errors.Is.
*/
package auth
