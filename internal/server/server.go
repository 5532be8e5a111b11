// Package server provides the temporary local HTTP surface for the OAuth
// authorization code flow.
//
// When the user runs `psync auth login`, a short-lived server starts on the
// configured host and port, receives the provider's redirect on /callback,
// exchanges the authorization code for tokens, and shuts down. The [Router]
// and [Middleware] types keep the wiring testable without a framework.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler wraps the stdlib handler interface and adds route registration, so
// a handler can encapsulate every path it serves.
type Handler interface {
	http.Handler
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// RequestLogging logs each request at debug level.
func RequestLogging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}

// RunCallbackServer serves the OAuth callback on addr until the handler
// produces a result or ctx is cancelled, then shuts the server down.
func RunCallbackServer(ctx context.Context, addr string, handler *OAuthHandler, logger *log.Logger) (OAuthResult, error) {
	router := NewBasicRouter()
	if logger != nil {
		router.Use(RequestLogging(logger))
	}
	router.Handler(handler)

	srv := &http.Server{Addr: addr, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case result := <-handler.Result():
		return result, nil
	case err := <-errChan:
		return OAuthResult{}, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return OAuthResult{}, fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}
