package utils

import (
	"encoding/json"
	"net/http"
)

const contentTypeJSON = "application/json"

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSONError writes {"error": message} with the given status.
func JSONError(w http.ResponseWriter, status int, message string) {
	_ = JSONWrite(w, status, ErrorBody{Error: message})
}

// JSONWrite writes v as JSON with the given status; a zero status leaves the
// default 200. HTML characters are not escaped so echoed bodies stay
// byte-faithful.
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	if status != 0 {
		w.WriteHeader(status)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
