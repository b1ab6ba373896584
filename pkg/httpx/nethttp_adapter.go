package httpx

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	apperrors "echobin/pkg/errors"
)

// FromNetHTTP buffers r into a Request. Bodies longer than maxBody bytes
// yield apperrors.ErrBodyTooLarge; maxBody <= 0 disables the limit.
func FromNetHTTP(r *http.Request, maxBody int64) (*Request, error) {
	body, err := readBody(r, maxBody)
	if err != nil {
		return nil, err
	}

	fields, ok := FieldsFromContext(r.Context())
	if !ok {
		fields = headerFields(r)
	}

	return &Request{
		Ctx:        r.Context(),
		Method:     r.Method,
		Path:       r.URL.Path,
		RawQuery:   r.URL.RawQuery,
		Fields:     fields,
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		Raw:        r,
	}, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()

	if maxBody <= 0 {
		return io.ReadAll(r.Body)
	}
	if r.ContentLength > maxBody {
		return nil, fmt.Errorf("content length %d exceeds %d: %w", r.ContentLength, maxBody, apperrors.ErrBodyTooLarge)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxBody {
		return nil, fmt.Errorf("body exceeds %d bytes: %w", maxBody, apperrors.ErrBodyTooLarge)
	}
	return body, nil
}

// headerFields flattens the net/http header map. Go drops wire order when it
// parses headers, so names come out sorted with Host first; the values of a
// repeated name keep their arrival order.
func headerFields(r *http.Request) []Field {
	fields := make([]Field, 0, len(r.Header)+1)
	if r.Host != "" {
		fields = append(fields, Field{Name: "Host", Value: r.Host})
	}
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range r.Header[name] {
			fields = append(fields, Field{Name: name, Value: v})
		}
	}
	return fields
}
