package auth

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "echobin/pkg/errors"
)

func basicHeader(s string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s))
}

func TestGateCheck(t *testing.T) {
	g := NewGate("Fake Realm")
	want := Credential{Username: "user", Password: "pa:ss"}

	cases := []struct {
		name   string
		header string
		state  State
		reason Reason
	}{
		{"verified", basicHeader("user:pa:ss"), Verified, ""},
		{"scheme case-insensitive", "bAsIc " + base64.StdEncoding.EncodeToString([]byte("user:pa:ss")), Verified, ""},
		{"missing", "", Rejected, ReasonMissingHeader},
		{"blank", "   ", Rejected, ReasonMissingHeader},
		{"wrong scheme", "Bearer abc", Rejected, ReasonWrongScheme},
		{"undecodable", "Basic %%%", Rejected, ReasonUndecodablePayload},
		{"no colon", basicHeader("userpass"), Rejected, ReasonMalformedCredential},
		{"wrong password", basicHeader("user:nope"), Rejected, ReasonMismatch},
		{"wrong user", basicHeader("other:pa:ss"), Rejected, ReasonMismatch},
		{"prefix password", basicHeader("user:pa"), Rejected, ReasonMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := g.Check(tc.header, want)
			assert.Equal(t, tc.state, out.State)
			assert.Equal(t, tc.reason, out.Reason)
			if tc.state == Verified {
				assert.True(t, out.Authorized())
				assert.Equal(t, "user", out.User)
				assert.NoError(t, out.Err())
			} else {
				assert.True(t, errors.Is(out.Err(), apperrors.ErrAuthRejected))
			}
		})
	}
}

func TestChallenge(t *testing.T) {
	assert.Equal(t, `Basic realm="Fake Realm"`, NewGate("Fake Realm").Challenge())
}

func TestCredentialNeverPrintsPassword(t *testing.T) {
	c := Credential{Username: "u", Password: "hunter2"}
	assert.NotContains(t, fmt.Sprint(c), "hunter2")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("cred", "c", c)
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "u")
}

func TestCheckBearer(t *testing.T) {
	out := CheckBearer("Bearer abc.def")
	require.True(t, out.Authorized())
	assert.Equal(t, "abc.def", out.Token)

	assert.Equal(t, ReasonMissingHeader, CheckBearer("").Reason)
	assert.Equal(t, ReasonWrongScheme, CheckBearer(basicHeader("a:b")).Reason)
	assert.Equal(t, ReasonMalformedCredential, CheckBearer("Bearer ").Reason)
}

func TestRequireBasicMiddleware(t *testing.T) {
	var observed []Outcome
	mw := RequireBasic(NewGate("R"), func(*http.Request) Credential {
		return Credential{Username: "a", Password: "b"}
	}, func(scheme string, o Outcome) {
		assert.Equal(t, "basic", scheme)
		observed = append(observed, o)
	})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out, ok := OutcomeFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(out.User))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/basic-auth/a/b", nil)
	req.Header.Set("Authorization", basicHeader("a:b"))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/basic-auth/a/b", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="R"`, rec.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"error":"AuthRejected"}`, rec.Body.String())

	require.Len(t, observed, 2)
	assert.Equal(t, Verified, observed[0].State)
	assert.Equal(t, ReasonMissingHeader, observed[1].Reason)
}
