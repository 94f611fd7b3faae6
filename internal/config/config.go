// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Transcript TranscriptConfig `mapstructure:"transcript" yaml:"transcript"`
	Gemini     GeminiConfig     `mapstructure:"gemini" yaml:"gemini"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	Settings   SettingsConfig   `mapstructure:"settings" yaml:"settings"`
	Panel      PanelConfig      `mapstructure:"panel" yaml:"panel"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// BrowserConfig controls how the CLI reaches a Chromium instance.
//
// With Launch disabled the CLI attaches to an already running browser through
// DebugURL (start Chrome with --remote-debugging-port=9222). With Launch enabled
// a private browser is started and pointed at the page URL given on the command line.
type BrowserConfig struct {
	DebugURL          string        `mapstructure:"debug_url" yaml:"debug_url"`
	Launch            bool          `mapstructure:"launch" yaml:"launch"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// TranscriptConfig configures the course page scraper.
type TranscriptConfig struct {
	HostMatch   string        `mapstructure:"host_match" yaml:"host_match"`
	CueSelector string        `mapstructure:"cue_selector" yaml:"cue_selector"`
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// GeminiConfig configures the generative language API client.
type GeminiConfig struct {
	BaseURL              string        `mapstructure:"base_url" yaml:"base_url"`
	DefaultModel         string        `mapstructure:"default_model" yaml:"default_model"`
	RejectedModelMarkers []string      `mapstructure:"rejected_model_markers" yaml:"rejected_model_markers"`
	PromptFile           string        `mapstructure:"prompt_file" yaml:"prompt_file"`
	MaxTranscriptChars   int           `mapstructure:"max_transcript_chars" yaml:"max_transcript_chars"`
	TruncationMarker     string        `mapstructure:"truncation_marker" yaml:"truncation_marker"`
	APITimeout           time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// AutomationConfig tunes the chat page sequencer.
type AutomationConfig struct {
	HostMatch          string        `mapstructure:"host_match" yaml:"host_match"`
	InputSelector      string        `mapstructure:"input_selector" yaml:"input_selector"`
	PasteSettle        time.Duration `mapstructure:"paste_settle" yaml:"paste_settle"`
	DiscoveryInterval  time.Duration `mapstructure:"discovery_interval" yaml:"discovery_interval"`
	DiscoveryAttempts  int           `mapstructure:"discovery_attempts" yaml:"discovery_attempts"`
	StartInterval      time.Duration `mapstructure:"start_interval" yaml:"start_interval"`
	StartAttempts      int           `mapstructure:"start_attempts" yaml:"start_attempts"`
	StrictStart        bool          `mapstructure:"strict_start" yaml:"strict_start"`
	CompletionInterval time.Duration `mapstructure:"completion_interval" yaml:"completion_interval"`
	CompletionTimeout  time.Duration `mapstructure:"completion_timeout" yaml:"completion_timeout"`
}

// SettingsBackend selects where panel settings are persisted.
type SettingsBackend string

const (
	SettingsBackendFile     SettingsBackend = "file"
	SettingsBackendPostgres SettingsBackend = "postgres"
)

// SettingsConfig selects and configures the settings store.
type SettingsConfig struct {
	Backend     SettingsBackend `mapstructure:"backend" yaml:"backend"`
	File        string          `mapstructure:"file" yaml:"file"`
	DatabaseURL string          `mapstructure:"database_url" yaml:"-"`
	Profile     string          `mapstructure:"profile" yaml:"profile"`
}

// PanelConfig configures the local panel HTTP server.
type PanelConfig struct {
	Listen         string        `mapstructure:"listen" yaml:"listen"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "courselens")
	v.SetDefault("logger.log_file", "courselens.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.debug_url", "http://127.0.0.1:9222")
	v.SetDefault("browser.launch", false)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "15s")

	// -- Transcript --
	v.SetDefault("transcript.host_match", "udemy.com")
	v.SetDefault("transcript.cue_selector", `[data-purpose="cue-text"]`)
	v.SetDefault("transcript.settle_delay", "2s")

	// -- Gemini --
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.default_model", "gemini-1.5-flash")
	v.SetDefault("gemini.rejected_model_markers", []string{"latest"})
	v.SetDefault("gemini.prompt_file", "config.json")
	v.SetDefault("gemini.max_transcript_chars", 100000)
	v.SetDefault("gemini.truncation_marker", "... (truncated)")
	v.SetDefault("gemini.api_timeout", "120s")

	// -- Automation --
	v.SetDefault("automation.host_match", "gemini.google.com")
	v.SetDefault("automation.input_selector", `div[contenteditable="true"]`)
	v.SetDefault("automation.paste_settle", "5s")
	v.SetDefault("automation.discovery_interval", "500ms")
	v.SetDefault("automation.discovery_attempts", 30)
	v.SetDefault("automation.start_interval", "500ms")
	v.SetDefault("automation.start_attempts", 30)
	v.SetDefault("automation.strict_start", false)
	v.SetDefault("automation.completion_interval", "1s")
	v.SetDefault("automation.completion_timeout", "10m")

	// -- Settings --
	v.SetDefault("settings.backend", string(SettingsBackendFile))
	v.SetDefault("settings.file", "~/.config/courselens/settings.yaml")
	v.SetDefault("settings.profile", "default")

	// -- Panel --
	v.SetDefault("panel.listen", "127.0.0.1:8765")
	v.SetDefault("panel.rate_limit", 1.0)
	v.SetDefault("panel.rate_burst", 3)
	v.SetDefault("panel.request_timeout", "5m")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets only ever come from the environment.
	_ = v.BindEnv("settings.database_url", "COURSELENS_SETTINGS_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	expanded, err := homedir.Expand(cfg.Settings.File)
	if err != nil {
		return nil, fmt.Errorf("failed to expand settings.file: %w", err)
	}
	cfg.Settings.File = expanded

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if !c.Browser.Launch && c.Browser.DebugURL == "" {
		return fmt.Errorf("browser.debug_url is required unless browser.launch is enabled")
	}
	if c.Transcript.CueSelector == "" {
		return fmt.Errorf("transcript.cue_selector must not be empty")
	}
	if c.Transcript.SettleDelay < 0 {
		return fmt.Errorf("transcript.settle_delay must not be negative")
	}
	if err := c.Gemini.Validate(); err != nil {
		return fmt.Errorf("gemini configuration invalid: %w", err)
	}
	if err := c.Automation.Validate(); err != nil {
		return fmt.Errorf("automation configuration invalid: %w", err)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("settings configuration invalid: %w", err)
	}
	if c.Panel.RateLimit <= 0 || c.Panel.RateBurst <= 0 {
		return fmt.Errorf("panel.rate_limit and panel.rate_burst must be positive")
	}
	return nil
}

// Validate checks the Gemini client settings.
func (g *GeminiConfig) Validate() error {
	if g.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if strings.TrimSpace(g.DefaultModel) == "" {
		return fmt.Errorf("default_model is required")
	}
	if g.MaxTranscriptChars <= 0 {
		return fmt.Errorf("max_transcript_chars must be a positive integer")
	}
	return nil
}

// Validate checks the sequencer timings.
func (a *AutomationConfig) Validate() error {
	if a.InputSelector == "" {
		return fmt.Errorf("input_selector is required")
	}
	if a.DiscoveryAttempts <= 0 || a.StartAttempts <= 0 {
		return fmt.Errorf("discovery_attempts and start_attempts must be positive")
	}
	if a.DiscoveryInterval <= 0 || a.StartInterval <= 0 || a.CompletionInterval <= 0 {
		return fmt.Errorf("polling intervals must be positive durations")
	}
	if a.CompletionTimeout <= 0 {
		return fmt.Errorf("completion_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the settings store selection.
func (s *SettingsConfig) Validate() error {
	switch s.Backend {
	case SettingsBackendFile:
		if s.File == "" {
			return fmt.Errorf("file is required for the file backend")
		}
	case SettingsBackendPostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("database URL is not configured (COURSELENS_SETTINGS_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.Profile == "" {
		return fmt.Errorf("profile must not be empty")
	}
	return nil
}
