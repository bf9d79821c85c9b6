// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/tunereel/internal/feed"
	"github.com/tomtom215/tunereel/internal/websocket"
)

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func readWS(t *testing.T, conn *gorillaws.Conn) websocket.Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

// readFeedEvent reads until a feed message arrives, skipping progress.
func readFeedEvent(t *testing.T, conn *gorillaws.Conn, match func(feed.Event) bool) feed.Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readWS(t, conn)
		if msg.Type != websocket.MessageTypeFeed {
			continue
		}
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			t.Fatal(err)
		}
		var ev feed.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatal(err)
		}
		if match(ev) {
			return ev
		}
	}
	t.Fatal("no matching feed event")
	return feed.Event{}
}

func TestWebSocket_StreamsFeedEvents(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 5, staticUser: "u1"})
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err != nil {
		t.Fatalf("dial: %v (resp %v)", err, resp)
	}
	t.Cleanup(func() { _ = conn.Close() })

	first := readFeedEvent(t, conn, func(feed.Event) bool { return true })
	if first.Type != feed.EventState {
		t.Errorf("first event type = %q, want state", first.Type)
	}
	waitFor(t, "hub registration", func() bool { return env.hub.ClientCount() == 1 })

	env.waitReady(t)
	code, _ := env.do(t, http.MethodPost, "/api/v1/feed/advance", "")
	if code != http.StatusOK {
		t.Fatalf("advance status = %d", code)
	}

	focus := readFeedEvent(t, conn, func(ev feed.Event) bool { return ev.Type == feed.EventFocus })
	if focus.Current == nil {
		t.Error("focus event without current item")
	}
}

func TestWebSocket_ClosesWhenSessionDisposed(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, staticUser: "u1"})
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	readWS(t, conn)

	if err := env.registry.Remove(t.Context(), "u1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "client removal", func() bool { return env.hub.ClientCount() == 0 })
}

func TestWebSocket_AccessTokenQuery(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 3, withVerifier: true})
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	if _, resp, err := gorillaws.DefaultDialer.Dial(wsURL(srv, ""), nil); err == nil {
		t.Fatal("dial without token succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial without token: resp = %v, want 401", resp)
	}

	token, err := env.verifier.Issue("u2")
	if err != nil {
		t.Fatal(err)
	}
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(srv, "access_token="+url.QueryEscape(token)), nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	readWS(t, conn)

	if _, ok := env.registry.Lookup("u2"); !ok {
		t.Error("no session for the token's user")
	}
}

func TestWebSocket_OriginCheck(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 1, staticUser: "u1", corsOrigins: []string{"https://app.test"}})
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	header := http.Header{"Origin": []string{"https://evil.test"}}
	if _, resp, err := gorillaws.DefaultDialer.Dial(wsURL(srv, ""), header); err == nil {
		t.Fatal("dial from foreign origin succeeded")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign origin: resp = %v, want 403", resp)
	}

	header.Set("Origin", "https://app.test")
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(srv, ""), header)
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	_ = conn.Close()
}

func TestWebSocket_NoHub(t *testing.T) {
	env := newTestEnv(t, envOptions{docs: 1, staticUser: "u1", withoutHub: true})

	code, resp := env.do(t, http.MethodGet, "/api/v1/ws", "")
	if code != http.StatusServiceUnavailable || errorCode(resp) != ErrCodeServiceUnavailable {
		t.Errorf("status = %d code = %q, want 503", code, errorCode(resp))
	}
}
