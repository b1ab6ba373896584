package inspect

import (
	"bytes"
	"strings"

	"echobin/pkg/httpx"
)

// Headers is an ordered mapping from lower-cased header name to value.
type Headers struct {
	names  []string
	values map[string]string
}

// NormalizeHeaders lower-cases names and joins repeated names with ", " in
// arrival order. A name keeps the position of its first occurrence. Invalid
// UTF-8 is replaced with U+FFFD.
func NormalizeHeaders(fields []httpx.Field) Headers {
	h := Headers{
		names:  make([]string, 0, len(fields)),
		values: make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		name := strings.ToLower(lossy(f.Name))
		value := lossy(f.Value)
		if prev, ok := h.values[name]; ok {
			h.values[name] = prev + ", " + value
			continue
		}
		h.names = append(h.names, name)
		h.values[name] = value
	}
	return h
}

// Get returns the value for name, matched case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	v, ok := h.values[strings.ToLower(name)]
	return v, ok
}

// Names returns header names in first-occurrence order.
func (h Headers) Names() []string { return h.names }

func (h Headers) Len() int { return len(h.names) }

// MarshalJSON implements json.Marshaler.
func (h Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range h.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeString(&buf, h.values[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func lossy(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
