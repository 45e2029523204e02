package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Message string
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Checkpoint the active project",
		Long: `Flush pending writes and record a checkpoint of the active project.

Example:
  atelier snapshot -m "hero section finished"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer m.Close()

			id, err := m.Checkpoint(cmd.Context(), opts.Message)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to create checkpoint", err)
			}
			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return f.Success(map[string]string{"id": id})
			}
			return f.Success(fmt.Sprintf("checkpoint %s", id))
		},
	}

	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "checkpoint message")

	return cmd
}
