package cli

import (
	"context"

	"github.com/spf13/cobra"

	"echobin/internal/app"
	"echobin/pkg/config"
	"echobin/pkg/logger"
	"echobin/pkg/shutdown"
)

func newServeCmd(flags *config.Flags, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the inspection server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, info)
		},
	}
}

func runServe(cmd *cobra.Command, flags *config.Flags, info BuildInfo) error {
	eff, err := effective(cmd, flags)
	if err != nil {
		shutdown.Abort("failed to load config", err)
		return err
	}
	logger.InitWithLevel(eff.Config.Logging.Level, eff.Config.Logging.Format)
	logger.Info("config_loaded", "sources", eff.Source(), "path", eff.Path)

	a, err := app.New(eff, info.Version, info.Commit, info.BuildDate)
	if err != nil {
		shutdown.Abort("failed to initialize app", err)
		return err
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()
	if err := a.Run(ctx); err != nil {
		logger.Error("server_stopped", "error", err)
		return err
	}
	logger.Info("server_stopped")
	return nil
}
