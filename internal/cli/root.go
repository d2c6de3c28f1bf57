package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/sgebot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sgebot",
	Short: "Post Grid Engine cluster status to Slack",
	Long: `Check the Grid Engine cluster once and post to Slack.

sgebot logs in to the cluster machine through the SSH gateway, runs qhost and
qstat, and posts:
  - memory and CPU overuse warnings to the users whose jobs are affected
  - warnings for jobs held in an error state
  - a per-node status grid, with the full queue listing in its thread
  - the job list and your own jobs, when they changed since the last run

All settings come from the environment (SSH_USER, SSH_GATEWAY_HOST,
SSH_MACHINE, LAB_TOKEN, LAB_CHANNEL, WEB_HOOK_URL, ...). Run "sgebot config"
to see what was picked up.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runReport(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return err
}
