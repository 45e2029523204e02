package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff [checkpoint-id]",
		Short: "Diff current state against a checkpoint",
		Long: `Show the diff between a checkpoint and the active project's current
on-disk state. Defaults to the latest checkpoint.

Example:
  atelier diff
  atelier diff 4f2a91c`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer m.Close()

			checkpointID := ""
			if len(args) == 1 {
				checkpointID = args[0]
			}
			diff, err := m.Diff(cmd.Context(), checkpointID)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to diff", err)
			}
			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(map[string]string{"diff": diff})
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}
