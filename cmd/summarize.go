// File: cmd/summarize.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/markdown"
	"github.com/xkilldash9x/courselens/internal/observability"
)

type summarizeOptions struct {
	file     string
	output   string
	htmlPath string
	plain    bool
}

func newSummarizeCmd(p provider) *cobra.Command {
	var opts summarizeOptions

	summarizeCmd := &cobra.Command{
		Use:   "summarize [course-url]",
		Short: "Summarize the transcript of the open course lecture",
		Long: `Summarize reads the transcript of the course tab, sends it to Gemini with
the configured prompt and prints the summary as markdown.

The course URL is only used when browser.launch is enabled; otherwise the most
recently used course tab of the attached browser is read. Use --file to read a
saved lecture page instead of a browser.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			var startURL string
			if len(args) == 1 {
				startURL = args[0]
			}
			return runSummarize(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, startURL, opts, p, logger)
		},
	}

	summarizeCmd.Flags().StringVarP(&opts.file, "file", "f", "", "summarize a saved lecture page instead of a browser tab")
	summarizeCmd.Flags().StringVarP(&opts.output, "output", "o", "", "also write the markdown summary to this file")
	summarizeCmd.Flags().StringVar(&opts.htmlPath, "html", "", "also write the summary as a standalone HTML page")
	summarizeCmd.Flags().BoolVar(&opts.plain, "plain", false, "print raw markdown even on a terminal")
	return summarizeCmd
}

func runSummarize(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, startURL string, opts summarizeOptions, p provider, logger *zap.Logger) error {
	ctrl, release, err := newController(ctx, p, cfg, controllerOptions{offlineFile: opts.file, startURL: startURL}, logger)
	if err != nil {
		return err
	}
	defer release()

	stop := watchProgress(ctrl, stderr)
	err = ctrl.Summarize(ctx)
	stop()
	if err != nil {
		return actionError(err)
	}

	st := ctrl.State()
	if opts.output != "" {
		if err := writeOutputFile(opts.output, st.Raw); err != nil {
			return err
		}
		logger.Info("Summary written.", zap.String("path", opts.output))
	}
	if opts.htmlPath != "" {
		doc, err := markdown.Document(st.HTML, markdown.DefaultTitle)
		if err != nil {
			return fmt.Errorf("failed to build HTML export: %w", err)
		}
		if err := writeOutputFile(opts.htmlPath, doc); err != nil {
			return err
		}
		logger.Info("HTML export written.", zap.String("path", opts.htmlPath))
	}
	return printMarkdown(stdout, st.Raw, opts.plain)
}
