// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/observability"
	"github.com/xkilldash9x/courselens/internal/server"
)

func newServeCmd(p provider) *cobra.Command {
	var listen string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the summary panel on a local address",
		Long: `Serve starts the panel: a local web page with the Summarize and Get Transcript
actions, the settings form and the result view. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Panel.Listen = listen
			}
			return runServe(ctx, cmd.OutOrStdout(), cfg, p, observability.GetLogger())
		},
	}
	serveCmd.Flags().StringVar(&listen, "listen", "", "override panel.listen")
	return serveCmd
}

func runServe(ctx context.Context, stdout io.Writer, cfg *config.Config, p provider, logger *zap.Logger) error {
	ctrl, release, err := newController(ctx, p, cfg, controllerOptions{}, logger)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintf(stdout, "Panel available at http://%s (Ctrl+C to stop)\n", cfg.Panel.Listen)
	err = server.New(cfg.Panel, ctrl, logger).ListenAndServe(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
