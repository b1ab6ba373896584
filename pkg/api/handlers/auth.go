package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"echobin/pkg/auth"
)

// RegisterAuth registers the Basic and Bearer protected echo endpoints.
func RegisterAuth(r *mux.Router, in *Inspector, gate *auth.Gate) {
	basic := auth.RequireBasic(gate, pathCredential, in.observeAuth)
	r.Handle("/basic-auth/{user}/{passwd}", basic(http.HandlerFunc(in.echo))).Methods(http.MethodGet)

	bearer := auth.RequireBearer(in.observeAuth)
	r.Handle("/bearer", bearer(http.HandlerFunc(in.echo))).Methods(http.MethodGet)
}

// pathCredential takes the expected credential from the route variables.
func pathCredential(r *http.Request) auth.Credential {
	vars := mux.Vars(r)
	return auth.Credential{Username: vars["user"], Password: vars["passwd"]}
}

func (in *Inspector) observeAuth(scheme string, o auth.Outcome) {
	in.Metrics.ObserveAuth(scheme, o.State.String(), string(o.Reason))
}
