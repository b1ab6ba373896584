package auth

import (
	"context"
	"net/http"

	apperrors "echobin/pkg/errors"
	"echobin/pkg/logger"
	"echobin/pkg/telemetry"
	"echobin/pkg/utils"
)

type ctxOutcomeKey struct{}

// OutcomeFromContext returns the verified outcome stored by the middlewares.
func OutcomeFromContext(ctx context.Context) (Outcome, bool) {
	o, ok := ctx.Value(ctxOutcomeKey{}).(Outcome)
	return o, ok
}

// Observer is notified of every check; scheme is "basic" or "bearer".
type Observer func(scheme string, o Outcome)

// RequireBasic guards next with g. expected supplies the credential the
// request must present, e.g. from path variables.
func RequireBasic(g *Gate, expected func(*http.Request) Credential, observe Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := telemetry.StartSpan(r.Context(), "auth.basic")
			out := g.Check(r.Header.Get("Authorization"), expected(r))
			span()
			if observe != nil {
				observe("basic", out)
			}
			if !out.Authorized() {
				logger.Warn("request_unauthorized", "scheme", "basic", "reason", string(out.Reason), "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", g.Challenge())
				utils.JSONError(w, http.StatusUnauthorized, apperrors.KindAuthRejected)
				return
			}
			logger.Debug("auth_verified", "scheme", "basic", "user", out.User)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxOutcomeKey{}, out)))
		})
	}
}

// RequireBearer guards next with CheckBearer.
func RequireBearer(observe Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := CheckBearer(r.Header.Get("Authorization"))
			if observe != nil {
				observe("bearer", out)
			}
			if !out.Authorized() {
				logger.Warn("request_unauthorized", "scheme", "bearer", "reason", string(out.Reason), "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", BearerChallenge)
				utils.JSONError(w, http.StatusUnauthorized, apperrors.KindAuthRejected)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxOutcomeKey{}, out)))
		})
	}
}
