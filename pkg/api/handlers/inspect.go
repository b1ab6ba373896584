package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"echobin/pkg/auth"
	apperrors "echobin/pkg/errors"
	"echobin/pkg/httpx"
	"echobin/pkg/inspect"
	"echobin/pkg/logger"
	"echobin/pkg/metrics"
	"echobin/pkg/telemetry"
	"echobin/pkg/utils"
)

// Inspector serves the request-echo endpoints.
type Inspector struct {
	Builder *inspect.Builder
	MaxBody int64
	Metrics *metrics.Metrics // may be nil
}

// RegisterInspect registers the verb and narrow body endpoints.
func RegisterInspect(r *mux.Router, in *Inspector) {
	r.HandleFunc("/get", in.echo).Methods(http.MethodGet)
	r.HandleFunc("/post", in.echo).Methods(http.MethodPost)
	r.HandleFunc("/put", in.echo).Methods(http.MethodPut)
	r.HandleFunc("/patch", in.echo).Methods(http.MethodPatch)
	r.HandleFunc("/delete", in.echo).Methods(http.MethodDelete)

	r.HandleFunc("/post/json", in.narrow(inspect.VariantJSON, false)).Methods(http.MethodPost)
	r.HandleFunc("/post/form", in.narrow(inspect.VariantForm, false)).Methods(http.MethodPost)
	r.HandleFunc("/post/file", in.narrow(inspect.VariantMultipart, true)).Methods(http.MethodPost)
}

func (in *Inspector) echo(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := in.build(w, r)
	if !ok {
		return
	}
	writeDocument(w, r, doc)
}

// narrow only accepts bodies that classify cleanly as want. Any decode
// diagnostic is fatal here, unlike the general endpoints.
func (in *Inspector) narrow(want inspect.Variant, needFiles bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, diags, ok := in.build(w, r)
		if !ok {
			return
		}
		if len(diags) > 0 || doc.Variant != want || (needFiles && doc.Files == nil) {
			logger.Debug("body_rejected", "path", r.URL.Path, "want", want.String(), "got", doc.Variant.String(), "diagnostics", len(diags))
			utils.JSONError(w, http.StatusBadRequest, apperrors.KindBodyDecode)
			return
		}
		writeDocument(w, r, doc)
	}
}

// build buffers the request and composes its document. It writes the
// failure response itself and reports false when the request cannot be
// inspected at all.
func (in *Inspector) build(w http.ResponseWriter, r *http.Request) (*inspect.Document, []error, bool) {
	end := telemetry.StartSpan(r.Context(), "inspect.read_body")
	req, err := httpx.FromNetHTTP(r, in.MaxBody)
	end()
	if err != nil {
		writeFailure(w, r, err)
		return nil, nil, false
	}

	end = telemetry.StartSpan(r.Context(), "inspect.build")
	doc, diags := in.Builder.Build(req)
	telemetry.SetSpanData(r.Context(), "variant", doc.Variant.String())
	end()

	for _, d := range diags {
		logger.Debug("body_decode_diagnostic", "path", r.URL.Path, "error", d.Error())
	}
	in.Metrics.ObserveBody(routeTemplate(r), doc.Variant.String(), len(req.Body), diags)

	if out, ok := auth.OutcomeFromContext(r.Context()); ok && out.Authorized() {
		doc.Authenticated = true
		doc.User = out.User
		doc.Token = out.Token
	}
	return doc, diags, true
}

func routeTemplate(r *http.Request) string {
	if cr := mux.CurrentRoute(r); cr != nil {
		if tpl, err := cr.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
