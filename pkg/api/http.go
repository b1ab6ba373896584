package api

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"

	"echobin/pkg/api/handlers"
	"echobin/pkg/auth"
	"echobin/pkg/config"
	"echobin/pkg/httpx"
	"echobin/pkg/inspect"
	"echobin/pkg/logger"
	"echobin/pkg/metrics"
	"echobin/pkg/telemetry"
	"echobin/pkg/utils"
)

// Options carries the collaborators of the HTTP surface. All fields are
// optional.
type Options struct {
	Metrics *metrics.Metrics
	Tracer  *telemetry.Tracer
	Version string
	Ready   func() bool
}

// Handler returns the complete HTTP surface:
// - GET/POST/PUT/PATCH/DELETE on /get, /post, /put, /patch, /delete
// - POST /post/json, /post/form, /post/file
// - GET /basic-auth/{user}/{passwd}, GET /bearer
// - GET /healthz, /readyz, the metrics path and /docs/
func Handler(cfg *config.Config, opts Options) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	in := &handlers.Inspector{
		Builder: inspect.NewBuilder(inspect.Options{TrustProxyHeaders: cfg.Inspect.TrustProxyHeaders}),
		MaxBody: cfg.Inspect.MaxBodyBytes.Int64(),
		Metrics: opts.Metrics,
	}
	handlers.RegisterInspect(r, in)
	handlers.RegisterAuth(r, in, auth.NewGate(cfg.Auth.Realm))
	handlers.RegisterHealth(r, opts.Version, opts.Ready)

	if cfg.Metrics.Enabled && opts.Metrics != nil {
		r.Handle(cfg.Metrics.Path, opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	if cfg.Docs.Enabled {
		registerDocs(r)
	}
	logger.Debug("routes_registered", "metrics", cfg.Metrics.Enabled, "docs", cfg.Docs.Enabled)

	// recover panics first, then log, then telemetry outermost
	var h http.Handler = r
	h = recoverPanics(h)
	h = logRequests(h)
	if opts.Tracer != nil {
		h = opts.Tracer.Middleware(h)
	}
	return h
}

func notFound(w http.ResponseWriter, r *http.Request) {
	utils.JSONError(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	utils.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// recoverPanics turns a handler panic into a 500 so a single bad request
// never takes the process down.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("handler_panic", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				utils.JSONError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// logRequests logs one line per request (redacts sensitive headers).
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := httpx.NewStatusRecorder(w)
		next.ServeHTTP(srw, r)
		logger.LogRequest(r, srw.Status, time.Since(start).Milliseconds())
	})
}
