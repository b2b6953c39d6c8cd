// Package http serves the health endpoint hosting platforms poll.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/context"
)

// Readiness reports whether the gateway session is up.
type Readiness interface {
	Ready() bool
}

type ReadyFunc func() bool

func (f ReadyFunc) Ready() bool {
	return f()
}

func NewRouter(readiness Readiness, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequest(log))
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !readiness.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "Bot starting up...")
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		fmt.Fprint(w, "Bot is alive and connected to Discord!")
	})
	return r
}

func logRequest(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("Got request!", "method", r.Method, "uri", r.RequestURI)
			next.ServeHTTP(w, r)
		})
	}
}

// Serve runs the health server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("health endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("could not serve on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down health endpoint: %w", err)
	}
	return nil
}
