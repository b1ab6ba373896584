package banner

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"echobin/pkg/config"
)

const banner = `
           _           _     _
  ___  ___| |__   ___ | |__ (_)_ __
 / _ \/ __| '_ \ / _ \| '_ \| | '_ \
|  __/ (__| | | | (_) | |_) | | | | |
 \___|\___|_| |_|\___/|_.__/|_|_| |_|
`

// Out is where the banner is written.
var Out io.Writer = os.Stdout

// PrintWithEff prints the banner using an EffectiveConfigResult which
// provides the listen address, engine and config sources.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	cfg := eff.Config
	if cfg == nil {
		cfg = config.Default()
	}
	addr := eff.Addr
	if addr == "" {
		addr = cfg.Addr()
	}
	src := eff.Source()
	if src == "" {
		src = "defaults"
	}

	head := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen).SprintFunc()
	off := color.New(color.FgYellow).SprintFunc()
	onOff := func(b bool) string {
		if b {
			return ok("enabled")
		}
		return off("disabled")
	}

	fmt.Fprint(Out, head.Sprint(banner))
	fmt.Fprintln(Out, head.Sprint("== Config ====================================================="))
	fmt.Fprintf(Out, "Listen:    %s\n", addr)
	fmt.Fprintf(Out, "Engine:    %s\n", cfg.Server.Engine)
	if version != "" {
		fmt.Fprintf(Out, "Version:   %s\n", version)
	}
	fmt.Fprintf(Out, "Config:    %s", src)
	if eff.Path != "" && len(eff.Sources) > 1 && eff.Sources[1] == "config" {
		fmt.Fprintf(Out, " (%s)", eff.Path)
	}
	fmt.Fprintln(Out)
	fmt.Fprintf(Out, "Max body:  %s\n", humanize.Bytes(uint64(cfg.Inspect.MaxBodyBytes.Int64())))
	fmt.Fprintf(Out, "Proxy IPs: %s\n", onOff(cfg.Inspect.TrustProxyHeaders))
	fmt.Fprintf(Out, "Metrics:   %s", onOff(cfg.Metrics.Enabled))
	if cfg.Metrics.Enabled {
		fmt.Fprintf(Out, " (%s)", cfg.Metrics.Path)
	}
	fmt.Fprintln(Out)
	fmt.Fprintf(Out, "Docs:      %s\n", onOff(cfg.Docs.Enabled))

	fmt.Fprintln(Out, head.Sprint("\n== Examples ==================================================="))
	fmt.Fprintln(Out, "curl 'http://<host>:<port>/get?a=1&a=2'")
	fmt.Fprintln(Out, "curl -X POST 'http://<host>:<port>/post' -H 'Content-Type: application/json' -d '{\"a\":1}'")
	fmt.Fprintln(Out, "curl -u user:passwd 'http://<host>:<port>/basic-auth/user/passwd'")

	fmt.Fprintln(Out, head.Sprint("\n== Logs: ====================================================="))
}
