// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/observability"
)

type configKey struct{}

// errorColor prints failures on stderr.
var errorColor = color.New(color.FgRed, color.Bold)

// NewRootCommand builds a fresh command tree. The interactive shell creates
// one per line so flags never leak between commands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultProvider{})
}

func newRootCommand(p provider) *cobra.Command {
	var cfgFile string
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "courselens",
		Short: "CourseLens summarizes course lecture transcripts with Gemini.",
		Long: `CourseLens reads the transcript of the course lecture open in your browser,
summarizes it with the Gemini API and renders the result. It can also drive a
Gemini chat tab to submit images and wait for the reply.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cfgFile, cmd)
			if err != nil {
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting CourseLens", zap.String("version", Version))
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "courselens version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.String("log-level", "", "override logger.level (debug, info, warn, error)")
	flags.String("debug-url", "", "override browser.debug_url, the DevTools endpoint of a running browser")
	flags.Bool("launch", false, "launch a private browser instead of attaching to a running one")
	flags.Bool("headless", false, "run the launched browser without a window")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSummarizeCmd(p),
		newTranscriptCmd(p),
		newAutomateCmd(p),
		newModelsCmd(p),
		newSettingsCmd(p),
		newServeCmd(p),
		newLogsCmd(),
	)
	return rootCmd
}

// Execute runs the command line with the signal-aware context from main.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(rootCmd, err)
		return err
	}
	return nil
}

// ExecuteArgs runs one interactive shell line.
func ExecuteArgs(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(rootCmd, err)
		return err
	}
	return nil
}

func reportError(cmd *cobra.Command, err error) {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), errorColor.Sprint("Error: ")+err.Error())
	observability.GetLogger().Debug("Command execution failed", zap.Error(err))
}

// loadConfig reads the config file, COURSELENS_* environment variables and
// the persistent flags, in increasing order of precedence.
func loadConfig(v *viper.Viper, cfgFile string, cmd *cobra.Command) (*config.Config, error) {
	config.SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("COURSELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	bindings := map[string]string{
		"logger.level":      "log-level",
		"browser.debug_url": "debug-url",
		"browser.launch":    "launch",
		"browser.headless":  "headless",
	}
	for key, name := range bindings {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}
	return config.NewConfigFromViper(v)
}

func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// isTerminal reports whether w is an interactive terminal. Progress output
// and styled markdown are only drawn on terminals.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
