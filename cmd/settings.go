// File: cmd/settings.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/observability"
)

func newSettingsCmd(p provider) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored Gemini API key and model",
	}
	settingsCmd.AddCommand(newSettingsShowCmd(p), newSettingsSetCmd(p))
	return settingsCmd
}

func newSettingsShowCmd(p provider) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings with the API key masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runSettingsShow(ctx, cmd.OutOrStdout(), cfg, p, observability.GetLogger())
		},
	}
}

func newSettingsSetCmd(p provider) *cobra.Command {
	var apiKey, model string

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store an API key and model",
		Long: `Set stores the Gemini API key and model used for summaries. The stored key is
kept when only --model is given; an empty model falls back to the default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runSettingsSet(ctx, cmd.OutOrStdout(), cfg, apiKey, model, cmd.Flags().Changed("model"), p, observability.GetLogger())
		},
	}
	setCmd.Flags().StringVar(&apiKey, "api-key", "", "Gemini API key")
	setCmd.Flags().StringVar(&model, "model", "", "model name, with or without the models/ prefix")
	return setCmd
}

func runSettingsShow(ctx context.Context, stdout io.Writer, cfg *config.Config, p provider, logger *zap.Logger) error {
	ctrl, release, err := newController(ctx, p, cfg, controllerOptions{}, logger)
	if err != nil {
		return err
	}
	defer release()

	s := ctrl.Settings()
	fmt.Fprintf(stdout, "backend: %s\n", cfg.Settings.Backend)
	fmt.Fprintf(stdout, "model:   %s\n", s.Model)
	fmt.Fprintf(stdout, "api key: %s\n", maskKey(s.APIKey))
	return nil
}

func runSettingsSet(ctx context.Context, stdout io.Writer, cfg *config.Config, apiKey, model string, modelChanged bool, p provider, logger *zap.Logger) error {
	ctrl, release, err := newController(ctx, p, cfg, controllerOptions{}, logger)
	if err != nil {
		return err
	}
	defer release()

	current := ctrl.Settings()
	if strings.TrimSpace(apiKey) == "" {
		apiKey = current.APIKey
	}
	if !modelChanged {
		model = current.Model
	}
	saved, err := ctrl.SaveSettings(ctx, apiKey, model)
	if err != nil {
		return actionError(err)
	}
	fmt.Fprintf(stdout, "Settings saved. Model: %s\n", saved.Model)
	return nil
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
