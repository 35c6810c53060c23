package main

import (
	"os"
	"os/signal"
	"syscall"

	"textsubmission/app/config"
	"textsubmission/service"

	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the submission API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			logger := commonRun(os.Stdout)
			logger.Info("version: "+cliVersion, "component", programName)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return service.RunServer(ctx, cfg, logger)
		},
	}
}
