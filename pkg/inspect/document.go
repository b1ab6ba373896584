// Package inspect turns a buffered HTTP request into the JSON document
// echoed back to the client.
package inspect

import (
	"net"
	"strings"

	"echobin/pkg/httpx"
)

// Document is the normalized description of one request. Exactly one of
// JSON, Form or Data is set; Files only accompanies a multipart Form.
type Document struct {
	Method  string  `json:"method"`
	URL     string  `json:"url"`
	Origin  string  `json:"origin"`
	Headers Headers `json:"headers"`
	Args    Values  `json:"args"`

	// JSON is the one member that can be null: a body of literal null
	// echoes as "json":null.
	JSON  *Value  `json:"json,omitempty"`
	Form  *Values `json:"form,omitempty"`
	Files *Files  `json:"files,omitempty"`
	Data  *string `json:"data,omitempty"`

	Authenticated bool   `json:"authenticated,omitempty"`
	User          string `json:"user,omitempty"`
	Token         string `json:"token,omitempty"`

	Variant Variant `json:"-"`
}

// Options configures a Builder.
type Options struct {
	// TrustProxyHeaders takes the origin from X-Forwarded-For or X-Real-IP.
	TrustProxyHeaders bool
}

// Builder composes Documents. It holds no per-request state and is safe for
// concurrent use.
type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Build normalizes r. The returned diagnostics describe body decode problems
// that were degraded to the opaque branch.
func (b *Builder) Build(r *httpx.Request) (*Document, []error) {
	headers := NormalizeHeaders(r.Fields)
	doc := &Document{
		Method:  r.Method,
		URL:     r.Path,
		Origin:  b.origin(r.RemoteAddr, headers),
		Headers: headers,
		Args:    DecodeQuery(r.RawQuery),
	}

	ct, _ := headers.Get("content-type")
	body, diags := Classify(ct, r.Body)
	doc.Variant = body.Variant
	switch body.Variant {
	case VariantJSON:
		doc.JSON = &body.JSON
	case VariantForm:
		doc.Form = &body.Form
	case VariantMultipart:
		doc.Form = &body.Form
		if body.Files.Len() > 0 {
			doc.Files = &body.Files
		}
	case VariantData:
		doc.Data = &body.Data
	}
	return doc, diags
}

func (b *Builder) origin(remoteAddr string, headers Headers) string {
	if b.opts.TrustProxyHeaders {
		if xff, ok := headers.Get("x-forwarded-for"); ok {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xr, ok := headers.Get("x-real-ip"); ok {
			if ip := strings.TrimSpace(xr); ip != "" {
				return ip
			}
		}
	}
	return PeerIP(remoteAddr)
}

// PeerIP strips the port from a transport peer address.
func PeerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
