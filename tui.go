package main

import (
	"fmt"
	"io"
	"os"

	"textsubmission/app/config"
	"textsubmission/client/api"
	"textsubmission/client/tui"

	"github.com/spf13/cobra"
)

const tuiLogFile = "textsubmission-tui.log"

func tuiCommand() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal client against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if apiURL == "" {
				apiURL = cfg.ApiURL
			}

			// the terminal belongs to the UI, logs go to a file in debug mode
			var w io.Writer = io.Discard
			if globalFlags.debug {
				f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger := commonRun(w)

			return tui.Run(cmd.Context(), api.NewClient(apiURL), cfg.ClientRule(), logger)
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "base URL of the API (defaults to apiURL from config)")
	return cmd
}
