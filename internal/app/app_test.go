package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echobin/pkg/banner"
	"echobin/pkg/config"
)

func newTestApp(t *testing.T, engine string) *App {
	t.Helper()
	prev := banner.Out
	banner.Out = io.Discard
	t.Cleanup(func() { banner.Out = prev })

	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Engine = engine
	cfg.Server.ShutdownTimeout = config.Duration(2 * time.Second)
	cfg.Inspect.MaxBodyBytes = 64
	eff := config.EffectiveConfigResult{Config: cfg, Addr: "127.0.0.1:0", Sources: []string{"defaults"}}

	a, err := New(eff, "test", "abc", "today")
	require.NoError(t, err)
	return a
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Engine = "gopher"
	_, err := New(config.EffectiveConfigResult{Config: cfg}, "test", "", "")
	require.Error(t, err)

	_, err = New(config.EffectiveConfigResult{}, "test", "", "")
	require.Error(t, err)
}

func TestRunServesBothEngines(t *testing.T) {
	for _, engine := range []string{"nethttp", "fasthttp"} {
		t.Run(engine, func(t *testing.T) {
			a := newTestApp(t, engine)
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- a.Run(ctx) }()

			select {
			case <-a.Listening():
			case err := <-done:
				t.Fatalf("run returned early: %v", err)
			case <-time.After(2 * time.Second):
				t.Fatal("server did not start")
			}
			base := "http://" + a.Addr()
			client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

			resp, err := client.Get(base + "/readyz")
			require.NoError(t, err)
			var ready map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "test", ready["version"])

			resp, err = client.Post(base+"/post?a=1&a=2", "application/json", strings.NewReader(`{"x":1}`))
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			var doc map[string]any
			require.NoError(t, json.Unmarshal(body, &doc))
			assert.Equal(t, "POST", doc["method"])
			assert.Equal(t, "/post", doc["url"])
			assert.Equal(t, map[string]any{"a": []any{"1", "2"}}, doc["args"])
			assert.Equal(t, map[string]any{"x": float64(1)}, doc["json"])
			assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

			// just over and well past the limit give the same JSON 413
			for _, size := range []int{65, 66, 512} {
				resp, err = client.Post(base+"/post", "text/plain", strings.NewReader(strings.Repeat("x", size)))
				require.NoError(t, err)
				body, _ = io.ReadAll(resp.Body)
				resp.Body.Close()
				assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, "size %d", size)
				assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), "size %d", size)
				assert.JSONEq(t, `{"error":"BodyTooLarge"}`, string(body), "size %d", size)
			}

			// exactly at the limit is accepted
			resp, err = client.Post(base+"/post", "text/plain", strings.NewReader(strings.Repeat("x", 64)))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return after cancel")
			}
		})
	}
}

func TestUnknownEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Engine = "gopher"
	_, err := newServer(cfg, http.NotFoundHandler())
	assert.Error(t, err)
}
