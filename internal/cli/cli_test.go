package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(BuildInfo{Version: "1.0.0", Commit: "abc", BuildDate: "2026-01-01"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := run(t, "version")
	if !strings.Contains(out, "echobin 1.0.0 (commit: abc, built: 2026-01-01)") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestConfigCommandLayersFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echobin.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  realm: Test Realm\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out := run(t, "config", "--config", path, "--engine", "fasthttp", "--max-body", "1KB")
	if !strings.HasPrefix(out, "# sources: defaults+config") || !strings.Contains(out, "+flags") {
		t.Fatalf("unexpected sources line: %q", out)
	}
	for _, want := range []string{"engine: fasthttp", "realm: Test Realm", "max_body_bytes: 1.0 kB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommandMissingExplicitFile(t *testing.T) {
	cmd := NewRootCmd(BuildInfo{Version: "dev"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "--config", filepath.Join(t.TempDir(), "nope.yaml")})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
