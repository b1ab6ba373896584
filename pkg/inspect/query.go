package inspect

import (
	"bytes"
	"net/url"
	"strings"
)

// Values is an ordered multi-mapping from name to string values. It backs
// query arguments and form fields.
type Values struct {
	names  []string
	values map[string][]string
}

// DecodeQuery decodes an application/x-www-form-urlencoded string. Pairs are
// split on '&' and then on the first '='; '+' becomes a space and a malformed
// percent sequence is kept literally, so decoding never fails.
func DecodeQuery(raw string) Values {
	var v Values
	for raw != "" {
		var seg string
		seg, raw, _ = strings.Cut(raw, "&")
		if seg == "" {
			continue
		}
		key, value, _ := strings.Cut(seg, "=")
		v.Add(unescape(key), unescape(value))
	}
	return v
}

// Add appends value to name.
func (v *Values) Add(name, value string) {
	if v.values == nil {
		v.values = make(map[string][]string)
	}
	if _, ok := v.values[name]; !ok {
		v.names = append(v.names, name)
	}
	v.values[name] = append(v.values[name], value)
}

// Get returns the first value of name.
func (v Values) Get(name string) string {
	if vals := v.values[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// All returns every value of name in arrival order.
func (v Values) All(name string) []string { return v.values[name] }

// Names returns names in first-appearance order.
func (v Values) Names() []string { return v.names }

func (v Values) Len() int { return len(v.names) }

// Encode re-encodes v so that DecodeQuery yields the same mapping.
func (v Values) Encode() string {
	var b strings.Builder
	for _, name := range v.names {
		k := url.QueryEscape(name)
		for _, val := range v.values[name] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}

// MarshalJSON emits a name seen once as a string and a repeated name as an
// array of strings.
func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range v.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(&buf, name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		vals := v.values[name]
		if len(vals) == 1 {
			if err := encodeString(&buf, vals[0]); err != nil {
				return nil, err
			}
			continue
		}
		buf.WriteByte('[')
		for j, val := range vals {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(&buf, val); err != nil {
				return nil, err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return lossy(s)
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b = append(b, ' ')
		case c == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]):
			b = append(b, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			b = append(b, c)
		}
	}
	return lossy(string(b))
}

func ishex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
