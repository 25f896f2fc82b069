package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push queued orders to the remote backend now",
		Long: `Push queued orders to the remote backend now.

One batch is sent per invocation. Orders are marked synced only after the
remote acknowledges the batch; on failure everything stays queued and the
next sync retries it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts)
		},
	}
	return cmd
}

func runSync(cmd *cobra.Command, rootOpts *RootOptions) error {
	ctx := cmd.Context()
	f := newFormatter(rootOpts, cmd.OutOrStdout())

	env, err := openEnv(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer env.Close()

	n, err := env.Sync.SyncNow(ctx)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(map[string]int{"synced": n})
	}
	if n == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sync")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d order(s)\n", n)
	return nil
}
