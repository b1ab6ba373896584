package httpx

import (
	"context"
	"net/http"
)

// Field is one header line as it arrived on the wire.
type Field struct {
	Name  string
	Value string
}

// Request is the buffered, transport independent view of an incoming
// request that the inspection engine works on.
type Request struct {
	Ctx        context.Context
	Method     string
	Path       string
	RawQuery   string
	Fields     []Field
	Body       []byte
	RemoteAddr string
	// Raw holds the underlying transport-specific request object
	// (e.g. *http.Request) for escape hatches.
	Raw interface{}
}

type fieldsKey struct{}

// WithFields stores arrival-ordered header fields on ctx. The fasthttp bridge
// uses it because the net/http header map loses ordering and duplicates.
func WithFields(ctx context.Context, fields []Field) context.Context {
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// FieldsFromContext returns the fields stored by WithFields.
func FieldsFromContext(ctx context.Context) ([]Field, bool) {
	fields, ok := ctx.Value(fieldsKey{}).([]Field)
	return fields, ok
}

// StatusRecorder captures the response status code and body size.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
	Bytes  int
}

// NewStatusRecorder wraps w with a recorder defaulting to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.Bytes += n
	return n, err
}
