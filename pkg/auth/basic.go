// Package auth implements the Basic and Bearer authorization checks.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	apperrors "echobin/pkg/errors"
)

// State is the position of a request in the challenge/verify cycle.
type State uint8

const (
	AwaitingCredential State = iota
	Verified
	Rejected
)

func (s State) String() string {
	switch s {
	case AwaitingCredential:
		return "awaiting_credential"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Reason explains a rejection.
type Reason string

const (
	ReasonMissingHeader       Reason = "missing_header"
	ReasonWrongScheme         Reason = "wrong_scheme"
	ReasonUndecodablePayload  Reason = "undecodable_payload"
	ReasonMalformedCredential Reason = "malformed_credential"
	ReasonMismatch            Reason = "mismatch"
)

// Credential is a username/password pair. It never prints its password.
type Credential struct {
	Username string
	Password string
}

func (c Credential) String() string { return c.Username + ":<redacted>" }

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username), slog.String("password", "<redacted>"))
}

// Outcome is the result of a check.
type Outcome struct {
	State  State
	Reason Reason
	User   string
	Token  string
}

func (o Outcome) Authorized() bool { return o.State == Verified }

// Err returns nil for a verified outcome and an error wrapping
// apperrors.ErrAuthRejected otherwise.
func (o Outcome) Err() error {
	if o.Authorized() {
		return nil
	}
	return fmt.Errorf("%s: %w", o.Reason, apperrors.ErrAuthRejected)
}

func reject(r Reason) Outcome { return Outcome{State: Rejected, Reason: r} }

// Gate verifies Basic credentials and produces the challenge sent back on
// rejection.
type Gate struct {
	Realm string
}

func NewGate(realm string) *Gate {
	return &Gate{Realm: realm}
}

// Challenge is the WWW-Authenticate value for a rejected request.
func (g *Gate) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", g.Realm)
}

// Check runs one request from AwaitingCredential to Verified or Rejected.
// Username and password are both compared in constant time.
func (g *Gate) Check(authorization string, expected Credential) Outcome {
	cred, reason := ParseBasic(authorization)
	if reason != "" {
		return reject(reason)
	}
	userOK := subtle.ConstantTimeCompare([]byte(cred.Username), []byte(expected.Username))
	passOK := subtle.ConstantTimeCompare([]byte(cred.Password), []byte(expected.Password))
	if userOK&passOK != 1 {
		return reject(ReasonMismatch)
	}
	return Outcome{State: Verified, User: cred.Username}
}

// ParseBasic extracts the credential from an Authorization header value. A
// non-empty Reason means the header could not be used.
func ParseBasic(authorization string) (Credential, Reason) {
	payload, reason := splitScheme(authorization, "Basic")
	if reason != "" {
		return Credential{}, reason
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Credential{}, ReasonUndecodablePayload
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Credential{}, ReasonMalformedCredential
	}
	return Credential{Username: user, Password: pass}, ""
}

// splitScheme matches the auth scheme case-insensitively and returns the
// trimmed parameter that follows it.
func splitScheme(authorization, scheme string) (string, Reason) {
	v := strings.TrimSpace(authorization)
	if v == "" {
		return "", ReasonMissingHeader
	}
	name, rest, _ := strings.Cut(v, " ")
	if !strings.EqualFold(name, scheme) {
		return "", ReasonWrongScheme
	}
	return strings.TrimSpace(rest), ""
}
