// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
)

// Manager hands out tabs, either by attaching to a browser the user already
// runs or by launching a private one.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
	client *http.Client
}

// NewManager creates a manager. No browser is contacted until Open.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("browser_manager"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Open returns a tab whose URL contains match. When attaching, the most
// recently focused matching tab is used and startURL is ignored; when
// launching, a new browser navigates to startURL.
func (m *Manager) Open(ctx context.Context, match, startURL string) (*Tab, error) {
	if m.cfg.Launch {
		return m.launch(ctx, startURL)
	}
	return m.attach(ctx, match)
}

func (m *Manager) attach(ctx context.Context, match string) (*Tab, error) {
	targets, err := ListTargets(ctx, m.client, m.cfg.DebugURL)
	if err != nil {
		return nil, err
	}
	page, err := FindPage(targets, match)
	if err != nil {
		return nil, err
	}
	wsURL, err := pageSocketURL(m.cfg.DebugURL, page)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Attaching to tab.", zap.String("target_id", page.ID), zap.String("url", page.URL))

	// The page socket is not tied to ctx; only the handshake is.
	conn, err := dialPage(ctx, wsURL, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to tab %s: %w", page.ID, err)
	}
	return newTab(conn, page.URL, m.cfg.ActionTimeout, m.logger), nil
}

func (m *Manager) launch(ctx context.Context, startURL string) (*Tab, error) {
	if startURL == "" {
		return nil, errors.New("a page URL is required when browser.launch is enabled")
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", m.cfg.Headless))
	if m.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(m.cfg.UserDataDir))
	}
	for _, arg := range m.cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	release := func() { tabCancel(); allocCancel() }

	m.logger.Info("Launching browser.", zap.String("url", startURL), zap.Bool("headless", m.cfg.Headless))
	// The first Run binds the browser process to the context it is given,
	// so it must be tabCtx. The caller's ctx only bounds the wait.
	if err := runDetached(ctx, func() error { return chromedp.Run(tabCtx) }); err != nil {
		release()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	navTimeout := m.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	opCtx, opCancel := CombineContext(tabCtx, ctx)
	defer opCancel()
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	var current string
	if err := chromedp.Run(navCtx, chromedp.Navigate(startURL), chromedp.Location(&current)); err != nil {
		release()
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	return newTab(&chromedpPage{ctx: tabCtx, release: release}, current, m.cfg.ActionTimeout, m.logger), nil
}

// runDetached runs fn in its own goroutine and waits for it or for ctx.
// fn keeps running after ctx ends; the caller must stop it some other way.
func runDetached(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
