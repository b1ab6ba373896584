package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"echobin/pkg/config"
)

// BuildInfo is stamped via ldflags at release time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", b.Version, b.Commit, b.BuildDate)
}

// NewRootCmd builds the command tree. Running the root command without a
// subcommand starts the server, same as `serve`.
func NewRootCmd(info BuildInfo) *cobra.Command {
	flags := &config.Flags{}
	root := &cobra.Command{
		Use:   "echobin",
		Short: "HTTP request inspection service",
		Long: `echobin answers every request with a JSON description of what it
received: method, path, headers, query arguments and the decoded body.`,
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, info)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Config, "config", "c", "./config.yaml", "config file path (or ECHOBIN_CONFIG)")
	pf.StringVar(&flags.Addr, "addr", "", "listen address, host:port")
	pf.StringVar(&flags.Engine, "engine", "", "server engine: nethttp or fasthttp")
	pf.StringVar(&flags.MaxBody, "max-body", "", "maximum request body, e.g. 10MB")
	pf.BoolVar(&flags.TrustProxy, "trust-proxy", false, "derive origin from X-Forwarded-For / X-Real-IP")
	pf.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newServeCmd(flags, info), newVersionCmd(info), newConfigCmd(flags))
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute(info BuildInfo) {
	if err := NewRootCmd(info).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// effective resolves the layered config, recording which flags the user set.
func effective(cmd *cobra.Command, flags *config.Flags) (config.EffectiveConfigResult, error) {
	flags.Set = map[string]bool{}
	for _, name := range []string{"config", "addr", "engine", "max-body", "trust-proxy", "log-level"} {
		if cmd.Flags().Changed(name) {
			flags.Set[name] = true
		}
	}
	return config.LoadEffectiveConfig(*flags)
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "echobin %s\n", info)
		},
	}
}

func newConfigCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := effective(cmd, flags)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), eff)
		},
	}
}

func printConfig(w io.Writer, eff config.EffectiveConfigResult) error {
	b, err := config.Marshal(eff.Config)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# sources: %s\n", eff.Source())
	_, err = w.Write(b)
	return err
}
