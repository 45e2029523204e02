package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore the active project to a checkpoint",
		Long: `Restore the active project's content to a checkpoint.

Pending writes are flushed first, then on-disk state is replaced with
the checkpoint's content; files created since the checkpoint are
removed. History is preserved - a later snapshot records the
restoration as a new checkpoint.

Example:
  atelier restore 4f2a91c`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Restore(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to restore checkpoint", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Success(fmt.Sprintf("restored %s", args[0]))
		},
	}
}
