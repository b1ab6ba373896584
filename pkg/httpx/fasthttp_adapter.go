package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	apperrors "echobin/pkg/errors"
	"echobin/pkg/utils"
)

// FastHTTPHandler serves a net/http handler from fasthttp. Header lines are
// captured in wire order from the raw header block before conversion and
// exposed through FieldsFromContext.
func FastHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		// create a cancellable context for this request
		cctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fields := rawFields(ctx.Request.Header.RawHeaders())
		if fields == nil {
			fields = make([]Field, 0, ctx.Request.Header.Len())
			ctx.Request.Header.VisitAll(func(k, v []byte) {
				fields = append(fields, Field{Name: string(k), Value: string(v)})
			})
		}

		var r http.Request
		if err := fasthttpadaptor.ConvertRequest(ctx, &r, true); err != nil {
			writeFastError(ctx, fasthttp.StatusBadRequest, "bad request")
			return
		}

		rw := &fastHTTPResponseWriter{ctx: ctx, header: make(http.Header)}
		h.ServeHTTP(rw, r.WithContext(WithFields(cctx, fields)))
		if rw.status == 0 {
			rw.WriteHeader(http.StatusOK)
		}
	}
}

type fastHTTPResponseWriter struct {
	ctx    *fasthttp.RequestCtx
	header http.Header
	status int
}

func (f *fastHTTPResponseWriter) Header() http.Header { return f.header }

func (f *fastHTTPResponseWriter) WriteHeader(status int) {
	if f.status != 0 {
		return
	}
	f.status = status
	// copy headers into fasthttp response header
	for k, vals := range f.header {
		if http.CanonicalHeaderKey(k) == "Content-Type" && len(vals) > 0 {
			f.ctx.SetContentType(vals[0])
			continue
		}
		for _, v := range vals {
			f.ctx.Response.Header.Add(k, v)
		}
	}
	f.ctx.SetStatusCode(status)
}

func (f *fastHTTPResponseWriter) Write(b []byte) (int, error) {
	if f.status == 0 {
		f.WriteHeader(http.StatusOK)
	}
	return f.ctx.Write(b)
}

// rawFields splits the header block as received into fields, keeping every
// line, including repeats that fasthttp would otherwise merge (Cookie) or
// hoist (Host, Content-Type, User-Agent). Folded continuation lines are
// appended to the previous value. It returns nil when no raw block is kept.
func rawFields(raw []byte) []Field {
	if len(raw) == 0 {
		return nil
	}
	var fields []Field
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(fields) > 0 {
			last := &fields[len(fields)-1]
			last.Value += " " + string(bytes.TrimSpace(line))
			continue
		}
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			continue
		}
		fields = append(fields, Field{
			Name:  string(bytes.TrimSpace(name)),
			Value: string(bytes.Trim(value, " \t")),
		})
	}
	return fields
}

// FastHTTPErrorHandler answers requests fasthttp rejects before the handler
// runs with the same JSON error bodies the handlers use.
func FastHTTPErrorHandler(ctx *fasthttp.RequestCtx, err error) {
	var (
		small  *fasthttp.ErrSmallBuffer
		netErr net.Error
	)
	switch {
	case errors.Is(err, fasthttp.ErrBodyTooLarge):
		writeFastError(ctx, fasthttp.StatusRequestEntityTooLarge, apperrors.KindBodyTooLarge)
	case errors.As(err, &small):
		writeFastError(ctx, fasthttp.StatusRequestHeaderFieldsTooLarge, "request header too large")
	case errors.As(err, &netErr) && netErr.Timeout():
		writeFastError(ctx, fasthttp.StatusRequestTimeout, "request timeout")
	default:
		writeFastError(ctx, fasthttp.StatusBadRequest, "bad request")
	}
}

func writeFastError(ctx *fasthttp.RequestCtx, status int, message string) {
	b, _ := json.Marshal(utils.ErrorBody{Error: message})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(append(b, '\n'))
}
