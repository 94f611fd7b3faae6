// File: cmd/automate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/automation"
	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/observability"
)

type automateOptions struct {
	images []string
	items  []string
	name   string
}

func newAutomateCmd(p provider) *cobra.Command {
	var opts automateOptions

	automateCmd := &cobra.Command{
		Use:   "automate [chat-url]",
		Short: "Paste images into a Gemini chat tab, send them and wait for the reply",
		Long: `Automate drives an open Gemini chat tab: it focuses the input box, pastes the
images of an item, clicks send and waits until the reply has finished
generating. Items are processed one after another on the same tab.

An item is either a set of --image files or a JSON file given with --item:
  {"name": "lecture-3", "imagesBase64": ["data:image/png;base64,...", "..."]}
Use "--item -" to read one item from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			items, err := collectItems(opts, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var startURL string
			if len(args) == 1 {
				startURL = args[0]
			}
			return runAutomate(ctx, cmd.OutOrStdout(), cfg, startURL, items, p, observability.GetLogger())
		},
	}

	automateCmd.Flags().StringArrayVarP(&opts.images, "image", "i", nil, "image file to paste (repeatable)")
	automateCmd.Flags().StringArrayVar(&opts.items, "item", nil, "JSON item file, or - for stdin (repeatable)")
	automateCmd.Flags().StringVar(&opts.name, "name", "cli", "name logged for the --image item")
	return automateCmd
}

// collectItems builds the work list: the --image item first, then every
// --item file in order.
func collectItems(opts automateOptions, stdin io.Reader) ([]automation.Item, error) {
	var items []automation.Item
	if len(opts.images) > 0 {
		item, err := automation.ItemFromFiles(opts.name, opts.images)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	for _, path := range opts.items {
		item, err := loadItemFile(path, stdin)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, errors.New("nothing to submit; pass --image or --item")
	}
	return items, nil
}

func loadItemFile(path string, stdin io.Reader) (automation.Item, error) {
	if path == "-" {
		return automation.LoadItem(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return automation.Item{}, fmt.Errorf("failed to open item file: %w", err)
	}
	defer f.Close()
	item, err := automation.LoadItem(f)
	if err != nil {
		return automation.Item{}, fmt.Errorf("%s: %w", path, err)
	}
	return item, nil
}

func runAutomate(ctx context.Context, stdout io.Writer, cfg *config.Config, startURL string, items []automation.Item, p provider, logger *zap.Logger) error {
	tab, err := p.Tab(ctx, cfg, cfg.Automation.HostMatch, startURL, logger)
	if err != nil {
		return fmt.Errorf("failed to open chat tab: %w", err)
	}
	defer tab.Close()

	seq := automation.NewSequencer(cfg.Automation, logger)
	for i, item := range items {
		if err := seq.Run(ctx, tab, item); err != nil {
			return fmt.Errorf("item %d (%s): %w", i+1, item.Name, err)
		}
		fmt.Fprintf(stdout, "Item %q submitted and answered.\n", item.Name)
	}
	return nil
}
