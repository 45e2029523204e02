package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/atelier/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the document server",
		Long: `Start the atelier document server.

Opens the data directory (creating a default project on first run),
exposes the editing API under /api/v1, and streams delta events to
websocket observers on /api/v1/ws.

Example:
  atelier serve
  atelier serve --data-dir ./work --listen :8737 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	m, cfg, err := openManager(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Error("error closing project", "error", closeErr)
		}
	}()

	listen := cfg.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := server.New(m)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(listen)
	}()

	select {
	case err := <-errCh:
		return WrapExitError(ExitCommandError, "server stopped", err)
	case <-ctx.Done():
		return nil
	}
}
