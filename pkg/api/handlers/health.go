package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"echobin/pkg/utils"
)

// RegisterHealth registers the liveness and readiness checks. ready may be
// nil, in which case the service is always ready.
func RegisterHealth(r *mux.Router, version string, ready func() bool) {
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			_ = utils.JSONWrite(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		// include the running version to help ops verify what binary is active
		ver := version
		if ver == "" {
			ver = "dev"
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok", "version": ver})
	}).Methods(http.MethodGet)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
