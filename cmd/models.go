// File: cmd/models.go
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

func newModelsCmd(p provider) *cobra.Command {
	var apiKey string

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the Gemini models that can generate content",
		Long: `Models lists the models available to an API key that support generateContent.
The stored key is used unless --api-key is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runModels(ctx, cmd.OutOrStdout(), cfg, apiKey, p, observability.GetLogger())
		},
	}
	modelsCmd.Flags().StringVar(&apiKey, "api-key", "", "check this key instead of the stored one")
	return modelsCmd
}

func runModels(ctx context.Context, stdout io.Writer, cfg *config.Config, apiKey string, p provider, logger *zap.Logger) error {
	ctrl, release, err := newController(ctx, p, cfg, controllerOptions{}, logger)
	if err != nil {
		return err
	}
	defer release()

	models, err := ctrl.CheckModels(ctx, apiKey)
	if err != nil {
		return actionError(err)
	}
	if len(models) == 0 {
		fmt.Fprintln(stdout, "No generateContent models found.")
		return nil
	}
	current := ctrl.Settings().Model
	for _, m := range models {
		marker := "  "
		if m == current {
			marker = "* "
		}
		fmt.Fprintln(stdout, marker+m)
	}
	return nil
}
