// File: cmd/transcript.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/observability"
)

type transcriptOptions struct {
	file   string
	output string
	noCopy bool
}

func newTranscriptCmd(p provider) *cobra.Command {
	var opts transcriptOptions

	transcriptCmd := &cobra.Command{
		Use:   "transcript [course-url]",
		Short: "Print the transcript of the open course lecture and copy it to the clipboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			var startURL string
			if len(args) == 1 {
				startURL = args[0]
			}
			return runTranscript(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, startURL, opts, p, observability.GetLogger())
		},
	}

	transcriptCmd.Flags().StringVarP(&opts.file, "file", "f", "", "read a saved lecture page instead of a browser tab")
	transcriptCmd.Flags().StringVarP(&opts.output, "output", "o", "", "also write the transcript to this file")
	transcriptCmd.Flags().BoolVar(&opts.noCopy, "no-copy", false, "do not copy the transcript to the clipboard")
	return transcriptCmd
}

func runTranscript(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, startURL string, opts transcriptOptions, p provider, logger *zap.Logger) error {
	ctrl, release, err := newController(ctx, p, cfg, controllerOptions{
		offlineFile: opts.file,
		startURL:    startURL,
		noCopy:      opts.noCopy,
	}, logger)
	if err != nil {
		return err
	}
	defer release()

	stop := watchProgress(ctrl, stderr)
	err = ctrl.FetchTranscript(ctx)
	stop()
	if err != nil {
		return actionError(err)
	}

	raw := ctrl.State().Raw
	if opts.output != "" {
		if err := writeOutputFile(opts.output, raw); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(stdout, raw); err != nil {
		return err
	}
	if !opts.noCopy {
		fmt.Fprintln(stderr, "Transcript copied to clipboard.")
	}
	return nil
}
