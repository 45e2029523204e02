package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Limit int
	Ops   bool
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show checkpoints or the mutation journal",
		Long: `Show the active project's checkpoints, newest first.

With --ops, show recent entries from the mutation journal instead: the
individual delta events recorded between checkpoints.

Example:
  atelier log
  atelier log --ops -n 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer m.Close()

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			if opts.Ops {
				entries, err := m.Operations(cmd.Context(), opts.Limit)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read journal", err)
				}
				if opts.Format == "json" {
					return f.Success(entries)
				}
				var b strings.Builder
				for _, e := range entries {
					fmt.Fprintf(&b, "%6d  %-20s  %s  %s\n", e.Seq, e.Kind, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Payload)
				}
				fmt.Fprint(cmd.OutOrStdout(), b.String())
				return nil
			}

			checkpoints, err := m.Checkpoints(cmd.Context(), opts.Limit)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read history", err)
			}
			if opts.Format == "json" {
				return f.Success(checkpoints)
			}
			var b strings.Builder
			for _, cp := range checkpoints {
				fmt.Fprintf(&b, "%s  %s  %s\n", cp.ID[:12], cp.Time.Format("2006-01-02 15:04:05"), cp.Message)
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum entries to show")
	cmd.Flags().BoolVar(&opts.Ops, "ops", false, "show the mutation journal instead of checkpoints")

	return cmd
}
