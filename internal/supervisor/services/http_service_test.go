// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tunereel/internal/logging"
)

// fakeServer blocks in ListenAndServe until closed or shut down. listenErr
// is returned immediately instead when set.
type fakeServer struct {
	listenErr error
	// shutdown, when set, replaces the default Shutdown behaviour.
	shutdown func(ctx context.Context) error

	once     sync.Once
	closed   chan struct{}
	listened chan struct{}

	mu        sync.Mutex
	deadline  time.Time
	shutdowns int
}

func newFakeServer(t *testing.T) *fakeServer {
	f := &fakeServer{closed: make(chan struct{}), listened: make(chan struct{})}
	t.Cleanup(f.close)
	return f
}

func (f *fakeServer) close() { f.once.Do(func() { close(f.closed) }) }

func (f *fakeServer) ListenAndServe() error {
	close(f.listened)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.closed
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.shutdowns++
	f.deadline, _ = ctx.Deadline()
	f.mu.Unlock()
	if f.shutdown != nil {
		return f.shutdown(ctx)
	}
	f.close()
	return nil
}

// syncBuffer collects log output written from the serve goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func serveAsync(ctx context.Context, svc *HTTPServerService) <-chan error {
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	return done
}

func waitServe(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return")
		return nil
	}
}

func TestHTTPServerService_ServeOutcomes(t *testing.T) {
	bindErr := errors.New("listen tcp :8080: bind: address already in use")
	tests := []struct {
		name      string
		listenErr error
		wantErr   error
	}{
		{"listen failure is wrapped", bindErr, bindErr},
		{"closed from outside", http.ErrServerClosed, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t)
			srv.listenErr = tt.listenErr
			svc := NewHTTPServerService(srv, ":8080", time.Second, logging.Nop())

			err := waitServe(t, serveAsync(context.Background(), svc))
			switch {
			case tt.wantErr == nil && err != nil:
				t.Errorf("Serve() error = %v, want nil so the supervisor decides", err)
			case tt.wantErr != nil && (!errors.Is(err, tt.wantErr) || !strings.Contains(err.Error(), "http server failed")):
				t.Errorf("Serve() error = %v, want wrapped %v", err, tt.wantErr)
			}
			srv.mu.Lock()
			defer srv.mu.Unlock()
			if srv.shutdowns != 0 {
				t.Errorf("Shutdown called %d times without cancellation", srv.shutdowns)
			}
		})
	}
}

func TestHTTPServerService_LogsListenAddress(t *testing.T) {
	var logs syncBuffer
	srv := newFakeServer(t)
	svc := NewHTTPServerService(srv, "127.0.0.1:3857", time.Second, logging.NewTestLogger(&logs))

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, svc)
	<-srv.listened
	cancel()
	if err := waitServe(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve() error = %v, want context.Canceled", err)
	}

	out := logs.String()
	for _, want := range []string{`"addr":"127.0.0.1:3857"`, `"component":"http-server"`, "http server listening", "http server stopped"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestHTTPServerService_ShutdownTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"configured", 50 * time.Millisecond, 50 * time.Millisecond},
		{"zero uses default", 0, 10 * time.Second},
		{"negative uses default", -time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(t)
			svc := NewHTTPServerService(srv, ":0", tt.timeout, logging.Nop())
			if svc.shutdownTimeout != tt.want {
				t.Fatalf("shutdownTimeout = %v, want %v", svc.shutdownTimeout, tt.want)
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := serveAsync(ctx, svc)
			<-srv.listened
			start := time.Now()
			cancel()
			_ = waitServe(t, done)

			srv.mu.Lock()
			deadline := srv.deadline
			srv.mu.Unlock()
			if got := deadline.Sub(start); got < tt.want-time.Second/10 || got > tt.want+time.Second {
				t.Errorf("shutdown deadline %v after cancel, want about %v", got, tt.want)
			}
		})
	}
}

func TestHTTPServerService_ShutdownGivesUpAtDeadline(t *testing.T) {
	srv := newFakeServer(t)
	// Connections that never drain.
	srv.shutdown = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	svc := NewHTTPServerService(srv, ":0", 30*time.Millisecond, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, svc)
	<-srv.listened
	cancel()

	err := waitServe(t, done)
	if !errors.Is(err, context.DeadlineExceeded) || !strings.Contains(err.Error(), "shutdown failed") {
		t.Errorf("Serve() error = %v, want shutdown deadline error", err)
	}
}

func TestHTTPServerService_RealServerUnderSupervisor(t *testing.T) {
	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, server.Addr, time.Second, logging.Nop())
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}

	sup := suture.NewSimple("test-api")
	sup.Add(svc)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("server still usable after shutdown: %v", err)
	}
}
