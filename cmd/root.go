package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := NewOptions()

	rootCmd := &cobra.Command{
		Use:   "repo-maintainer",
		Short: "Stale branch and merge request maintenance bot",
		Long: `Scans GitLab or GitHub projects for inactive branches and merge/pull
requests, emails the responsible people, posts reminder comments, and
optionally archives items that stayed inactive after a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().CountVarP(&opts.Verbosity, "verbose", "v", "increase logging verbosity (-v info, -vv debug)")
	rootCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "log actions without sending emails, posting comments or archiving")
	rootCmd.Flags().BoolVar(&opts.Archive, "archive", false, "run the archive pass even when enable_auto_archive is off")

	rootCmd.AddCommand(NewCmdServe(opts))
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}
