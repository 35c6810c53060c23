package main

import (
	"os"

	"textsubmission/app/config"
	"textsubmission/service"

	"github.com/spf13/cobra"
)

func dbCommand() *cobra.Command {
	var yes bool

	maintenance := func(cmd *cobra.Command) *service.Maintenance {
		return &service.Maintenance{
			Config: config.FromContext(cmd.Context()),
			Logger: commonRun(os.Stderr),
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
			Yes:    yes,
		}
	}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance commands",
	}
	cmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "answer yes to confirmation prompts")

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the database and schema if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return maintenance(cmd).Init(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Delete every submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return maintenance(cmd).Clean(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "backup [file]",
		Short: "Write a JSON snapshot of every submission",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			_, err := maintenance(cmd).Backup(cmd.Context(), file)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the database contents with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return maintenance(cmd).Restore(cmd.Context(), args[0])
		},
	})
	return cmd
}
