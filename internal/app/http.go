package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/valyala/fasthttp"

	"echobin/pkg/banner"
	"echobin/pkg/config"
	"echobin/pkg/httpx"
	"echobin/pkg/logger"
)

// server is the part of an HTTP engine the lifecycle needs.
type server interface {
	Serve(ln net.Listener) error
	Shutdown(ctx context.Context) error
}

// newServer picks the engine named by server.engine. Both engines serve the
// same handler; fasthttp goes through the header-preserving bridge.
func newServer(cfg *config.Config, h http.Handler) (server, error) {
	sc := cfg.Server
	switch sc.Engine {
	case "", "nethttp":
		srv := &http.Server{
			Handler:           h,
			ReadTimeout:       sc.ReadTimeout.Duration(),
			ReadHeaderTimeout: sc.ReadTimeout.Duration(),
			WriteTimeout:      sc.WriteTimeout.Duration(),
			IdleTimeout:       sc.IdleTimeout.Duration(),
		}
		if logger.Log != nil {
			srv.ErrorLog = slog.NewLogLogger(logger.Log.Handler(), slog.LevelWarn)
		}
		return srv, nil
	case "fasthttp":
		// fasthttp enforces the body limit while parsing; its errors are
		// answered with the same JSON bodies as the handlers'
		limit := cfg.Inspect.MaxBodyBytes.Int64()
		return &fastServer{srv: &fasthttp.Server{
			Handler:            httpx.FastHTTPHandler(h),
			ErrorHandler:       httpx.FastHTTPErrorHandler,
			Name:               "echobin",
			ReadTimeout:        sc.ReadTimeout.Duration(),
			WriteTimeout:       sc.WriteTimeout.Duration(),
			IdleTimeout:        sc.IdleTimeout.Duration(),
			MaxRequestBodySize: int(limit),
			Logger:             fastLogger{},
		}}, nil
	default:
		return nil, fmt.Errorf("unknown server engine %q", sc.Engine)
	}
}

// fastServer adapts fasthttp.Server, whose Shutdown takes no context.
type fastServer struct {
	srv *fasthttp.Server
}

func (s *fastServer) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *fastServer) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.srv.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fastLogger routes fasthttp's internal messages into the global logger.
type fastLogger struct{}

func (fastLogger) Printf(format string, args ...interface{}) {
	logger.Warn("fasthttp", "msg", fmt.Sprintf(format, args...))
}

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	eff := a.eff
	eff.Addr = a.Addr()
	banner.PrintWithEff(eff, verStr)
}
