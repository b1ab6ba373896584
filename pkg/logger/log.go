package logger

import (
	"net/http"
	"sort"
	"strings"
)

var sensitive = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
}

func redactHeaderValue(k, v string) string {
	if v == "" {
		return ""
	}
	if _, ok := sensitive[strings.ToLower(k)]; ok {
		return "<redacted>"
	}
	return v
}

// SafeHeaders returns a compact string representation of headers suitable for
// logging with credentials redacted.
func SafeHeaders(h http.Header) string {
	names := make([]string, 0, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+"="+redactHeaderValue(k, h[k][0]))
	}
	return strings.Join(parts, "; ")
}

// LogRequest logs a concise, safe summary of a served request.
func LogRequest(r *http.Request, status int, durationMs int64) {
	if Log == nil {
		return
	}
	Log.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"duration_ms", durationMs,
		"remote", r.RemoteAddr,
		"headers", SafeHeaders(r.Header),
	)
}
