package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
)

// evaluator runs scripts in one page. Close releases the connection only.
type evaluator interface {
	Evaluate(ctx context.Context, script string, out interface{}) error
	Close() error
}

// Tab is one page driven over CDP. Every call runs a short script in the
// page, bounded by the caller's context and the action timeout.
type Tab struct {
	exec    evaluator
	url     string
	timeout time.Duration
	logger  *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

func newTab(exec evaluator, url string, timeout time.Duration, logger *zap.Logger) *Tab {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Tab{
		exec:    exec,
		url:     url,
		timeout: timeout,
		logger:  logger.Named("tab").With(zap.String("url", url)),
	}
}

// URL is the address the tab had when it was opened.
func (t *Tab) URL() string { return t.url }

// Close disconnects from the tab. Attached tabs stay open in the browser.
func (t *Tab) Close() error {
	t.closeOnce.Do(func() { t.closeErr = t.exec.Close() })
	return t.closeErr
}

func (t *Tab) eval(ctx context.Context, script string, out interface{}) error {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.exec.Evaluate(runCtx, script, out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("page script timed out after %s: %w", t.timeout, err)
		}
		return fmt.Errorf("page script failed: %w", err)
	}
	return nil
}

// chromedpPage evaluates through a chromedp target context. release ends
// the browser that owns it.
type chromedpPage struct {
	ctx     context.Context
	release context.CancelFunc
}

func (p *chromedpPage) Evaluate(ctx context.Context, script string, out interface{}) error {
	opCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Evaluate(script, out, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}

func (p *chromedpPage) Close() error {
	p.release()
	return nil
}

// InnerTexts returns the rendered text of every element matching selector.
func (t *Tab) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	script, err := dom.InnerTextsScript(selector)
	if err != nil {
		return nil, err
	}
	var texts []string
	if err := t.eval(ctx, script, &texts); err != nil {
		return nil, err
	}
	return texts, nil
}

// Exists reports whether selector matches an element.
func (t *Tab) Exists(ctx context.Context, selector string) (bool, error) {
	script, err := dom.ExistsScript(selector)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := t.eval(ctx, script, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Focus focuses the first element matching selector.
func (t *Tab) Focus(ctx context.Context, selector string) error {
	script, err := dom.FocusScript(selector)
	if err != nil {
		return err
	}
	var ok bool
	if err := t.eval(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches %q", selector)
	}
	return nil
}

// PasteFiles dispatches one paste event carrying files on the element
// matching selector and returns how many files the page accepted.
func (t *Tab) PasteFiles(ctx context.Context, selector string, files []dom.PasteFile) (int, error) {
	script, err := dom.PasteScript(selector, files)
	if err != nil {
		return 0, err
	}
	var n int
	if err := t.eval(ctx, script, &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("no element matches %q", selector)
	}
	t.logger.Debug("Pasted files.", zap.Int("count", n))
	return n, nil
}

// Control observes the first element any of the locators resolves.
func (t *Tab) Control(ctx context.Context, locators ...dom.Locator) (dom.Control, error) {
	script, err := dom.ControlScript(locators...)
	if err != nil {
		return dom.Missing, err
	}
	var c dom.Control
	if err := t.eval(ctx, script, &c); err != nil {
		return dom.Missing, err
	}
	return c, nil
}

// Click clicks the first element any of the locators resolves.
func (t *Tab) Click(ctx context.Context, locators ...dom.Locator) (bool, error) {
	script, err := dom.ClickScript(locators...)
	if err != nil {
		return false, err
	}
	var clicked bool
	if err := t.eval(ctx, script, &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}
