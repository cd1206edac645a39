// Package app implements the monitor: an HTTP API and websocket stream over
// the command engine of one laser controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"qclctl/internal/journal"
	"qclctl/internal/logger"
	"qclctl/internal/protocol"
)

// Controller is the part of the command engine the monitor drives.
type Controller interface {
	Get(ctx context.Context, name string) (protocol.Value, error)
	Set(ctx context.Context, name string, v any) (protocol.Value, error)
	GetAll(ctx context.Context) (map[string]protocol.Value, error)
	Registry() *protocol.Registry
}

type App struct {
	Ctrl    Controller
	Journal journal.Journal
	Hub     *Hub
	Tmpl    *template.Template
	Mux     *http.ServeMux
	Server  *http.Server

	secret []byte
	log    logger.Logger

	mu      sync.Mutex
	stopped bool
}

// Option configures an App.
type Option func(*App)

// WithJournal exposes j under /api/journal.
func WithJournal(j journal.Journal) Option {
	return func(a *App) { a.Journal = j }
}

// WithHub streams exchanges recorded by h to websocket clients.
// The hub must also be registered as a recorder on the engine.
func WithHub(h *Hub) Option {
	return func(a *App) { a.Hub = h }
}

// WithJWTSecret requires an HS256 bearer token signed with secret for set requests.
func WithJWTSecret(secret string) Option {
	return func(a *App) {
		if secret != "" {
			a.secret = []byte(secret)
		}
	}
}

// WithLogger sets the monitor logger.
func WithLogger(l logger.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// NewApp initializes the monitor with its template and routes.
func NewApp(ctrl Controller, opts ...Option) (*App, error) {
	if ctrl == nil {
		return nil, errors.New("[app] nil controller")
	}

	tmpl, err := template.New("dashboard").Funcs(template.FuncMap{
		"year": func() int { return time.Now().Year() },
	}).Parse(dashboardHTML)
	if err != nil {
		return nil, fmt.Errorf("[app] failed to load templates: %w", err)
	}

	a := &App{
		Ctrl: ctrl,
		Tmpl: tmpl,
		Mux:  http.NewServeMux(),
		log:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "monitor")
	if a.Hub == nil {
		a.Hub = NewHub(a.log)
	}

	a.registerRoutes()
	return a, nil
}

// Handler returns the root handler with request logging applied.
func (a *App) Handler() http.Handler {
	return a.logRequests(a.Mux)
}

// Start launches the web server and blocks until stopped.
func (a *App) Start(addr string) error {
	if addr == "" {
		a.log.Info("monitor not started (empty address)")
		return nil
	}

	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.Server = srv
	a.mu.Unlock()

	a.log.Info("monitor listening", "addr", addr, "auth", a.secret != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("[app] HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the web server and disconnects stream clients.
// The journal and the engine belong to the caller.
func (a *App) Stop() {
	if a == nil {
		return
	}

	a.mu.Lock()
	a.stopped = true
	srv := a.Server
	a.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.log.Warn("monitor shutdown error", "error", err)
		} else {
			a.log.Info("monitor stopped cleanly")
		}
	}
	a.Hub.Close()
}
