package main

import "echobin/internal/cli"

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Execute(cli.BuildInfo{Version: version, Commit: commit, BuildDate: buildDate})
}
