package cli

import (
	"github.com/justsurfingit/job-tracker/internal/auth"
	"github.com/spf13/cobra"
)

func newGmailAuthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gmail-auth",
		Short: "Authorize read-only Gmail access for the inbox watcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			return auth.Authorize(cmd.Context(), cfg.Gmail, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
