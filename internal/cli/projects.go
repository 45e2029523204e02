package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewProjectsCommand creates the projects command group.
func NewProjectsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects in the data directory",
	}

	cmd.AddCommand(newProjectsListCommand(rootOpts))
	cmd.AddCommand(newProjectsCreateCommand(rootOpts))
	cmd.AddCommand(newProjectsRenameCommand(rootOpts))
	cmd.AddCommand(newProjectsDeleteCommand(rootOpts))

	return cmd
}

func newProjectsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List registered projects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer m.Close()

			projects, activeID := m.List()
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]any{"projects": projects, "activeProjectId": activeID})
			}

			var b strings.Builder
			for _, p := range projects {
				marker := " "
				if p.ID == activeID {
					marker = "*"
				}
				fmt.Fprintf(&b, "%s %s  %s (%s)\n", marker, p.ID, p.Name, p.Slug)
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
}

func newProjectsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create <name>",
		Short:         "Create a project and make it active",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer m.Close()

			info, err := m.Create(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to create project", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(info)
			}
			return f.Success(fmt.Sprintf("created %s (%s)", info.ID, info.Slug))
		},
	}
}

func newProjectsRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rename <id> <name>",
		Short:         "Rename a project",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Rename(args[0], args[1]); err != nil {
				return WrapExitError(ExitFailure, "failed to rename project", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Success(fmt.Sprintf("renamed %s to %q", args[0], args[1]))
		},
	}
}

func newProjectsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a project and its directory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Delete(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to delete project", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Success(fmt.Sprintf("deleted %s", args[0]))
		},
	}
}
