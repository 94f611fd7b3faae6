// File: cmd/provider.go
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/automation"
	"github.com/xkilldash9x/courselens/internal/browser"
	"github.com/xkilldash9x/courselens/internal/browser/static"
	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/gemini"
	"github.com/xkilldash9x/courselens/internal/network"
	"github.com/xkilldash9x/courselens/internal/panel"
	"github.com/xkilldash9x/courselens/internal/settings"
	"github.com/xkilldash9x/courselens/internal/transcript"
)

// Tab is a live browser tab as the commands use it.
type Tab interface {
	panel.Page
	automation.Page
}

// provider builds the external collaborators of the commands. Tests swap in
// fakes; defaultProvider talks to real browsers, stores and APIs.
type provider interface {
	Store(ctx context.Context, cfg *config.Config, logger *zap.Logger) (settings.Store, func(), error)
	Tab(ctx context.Context, cfg *config.Config, match, startURL string, logger *zap.Logger) (Tab, error)
	Summarizer(cfg *config.Config, logger *zap.Logger) panel.Summarizer
	Clipboard() panel.Clipboard
}

type defaultProvider struct{}

func (defaultProvider) Store(ctx context.Context, cfg *config.Config, logger *zap.Logger) (settings.Store, func(), error) {
	return settings.Open(ctx, cfg.Settings, logger)
}

func (defaultProvider) Tab(ctx context.Context, cfg *config.Config, match, startURL string, logger *zap.Logger) (Tab, error) {
	tab, err := browser.NewManager(cfg.Browser, logger).Open(ctx, match, startURL)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

func (defaultProvider) Summarizer(cfg *config.Config, logger *zap.Logger) panel.Summarizer {
	prompts := gemini.FilePrompt{Path: cfg.Gemini.PromptFile, Logger: logger}
	return gemini.NewClient(cfg.Gemini, network.NewClient(cfg.Gemini.APITimeout, logger), prompts, logger)
}

func (defaultProvider) Clipboard() panel.Clipboard { return panel.SystemClipboard{} }

// discardClipboard swallows copies when the user opted out.
type discardClipboard struct{}

func (discardClipboard) WriteAll(string) error { return nil }

// controllerOptions tune newController for one command.
type controllerOptions struct {
	// offlineFile scrapes a saved HTML page instead of a browser tab.
	offlineFile string
	// startURL is navigated to when the browser is launched.
	startURL string
	noCopy   bool
}

// newController wires a panel controller and loads its settings. The returned
// function releases the settings store.
func newController(ctx context.Context, p provider, cfg *config.Config, opts controllerOptions, logger *zap.Logger) (*panel.Controller, func(), error) {
	store, release, err := p.Store(ctx, cfg, logger)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open settings store: %w", err)
	}

	tabs := func(ctx context.Context) (panel.Page, error) {
		return p.Tab(ctx, cfg, cfg.Transcript.HostMatch, opts.startURL, logger)
	}
	if opts.offlineFile != "" {
		// A saved page has a file URL; the course host check does not apply.
		local := *cfg
		local.Transcript.HostMatch = ""
		cfg = &local
		tabs = func(context.Context) (panel.Page, error) {
			page, err := static.Open(opts.offlineFile)
			if err != nil {
				return nil, err
			}
			return page, nil
		}
	}

	clip := p.Clipboard()
	if opts.noCopy {
		clip = discardClipboard{}
	}

	ctrl := panel.NewController(cfg, panel.Deps{
		Store:     store,
		Tabs:      tabs,
		Scraper:   transcript.NewScraper(cfg.Transcript, logger),
		Gemini:    p.Summarizer(cfg, logger),
		Clipboard: clip,
	}, logger)
	if err := ctrl.Load(ctx); err != nil {
		release()
		return nil, func() {}, err
	}
	return ctrl, release, nil
}
