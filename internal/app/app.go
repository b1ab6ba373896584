package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"echobin/pkg/api"
	"echobin/pkg/config"
	"echobin/pkg/logger"
	"echobin/pkg/metrics"
	"echobin/pkg/telemetry"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	handler http.Handler
	srv     server

	ready     atomic.Bool
	mu        sync.Mutex
	ln        net.Listener
	listening chan struct{}
}

// New validates the effective config and builds the HTTP surface. It does
// not bind a socket; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if eff.Config == nil {
		return nil, errors.New("no effective config")
	}
	if err := config.Validate(eff.Config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if eff.Addr == "" {
		eff.Addr = eff.Config.Addr()
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		listening: make(chan struct{}),
	}

	var m *metrics.Metrics
	if eff.Config.Metrics.Enabled {
		m = metrics.New("echobin")
	}
	tel := eff.Config.Telemetry
	a.handler = api.Handler(eff.Config, api.Options{
		Metrics: m,
		Tracer:  telemetry.New(tel.SampleRate, tel.SlowThreshold.Duration()),
		Version: version,
		Ready:   a.ready.Load,
	})

	srv, err := newServer(eff.Config, a.handler)
	if err != nil {
		return nil, err
	}
	a.srv = srv
	return a, nil
}

// Handler exposes the assembled HTTP surface.
func (a *App) Handler() http.Handler { return a.handler }

// Listening is closed once Run has bound its socket.
func (a *App) Listening() <-chan struct{} { return a.listening }

// Addr reports the bound address, or the configured one before Run.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln != nil {
		return a.ln.Addr().String()
	}
	return a.eff.Addr
}

// Run binds the listener, serves until ctx is canceled or the server fails,
// then drains within server.shutdown_timeout.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.eff.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.eff.Addr, err)
	}
	a.mu.Lock()
	a.ln = ln
	a.mu.Unlock()

	a.printBanner()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_listening", "addr", ln.Addr().String(), "engine", a.eff.Config.Server.Engine)
		a.ready.Store(true)
		close(a.listening)
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), a.eff.Config.Server.ShutdownTimeout.Duration())
		defer cancel()
		return a.Shutdown(sctx)
	})
	return g.Wait()
}

// Shutdown flips readiness off and drains in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	a.ready.Store(false)
	logger.Info("server_shutdown", "addr", a.Addr())
	err := a.srv.Shutdown(ctx)

	// a Serve that has not yet picked up the listener must still return
	a.mu.Lock()
	if a.ln != nil {
		_ = a.ln.Close()
	}
	a.mu.Unlock()

	if err != nil {
		logger.Error("server_shutdown_failed", "error", err)
		return err
	}
	return nil
}
