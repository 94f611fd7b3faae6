// Package automation drives a chat-style AI page: it attaches images to the
// input, presses send and waits for the reply to finish generating.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
	"github.com/xkilldash9x/courselens/internal/config"
)

// Page is the part of a tab the sequencer needs.
type Page interface {
	Exists(ctx context.Context, selector string) (bool, error)
	Focus(ctx context.Context, selector string) error
	PasteFiles(ctx context.Context, selector string, files []dom.PasteFile) (int, error)
	Control(ctx context.Context, locators ...dom.Locator) (dom.Control, error)
	Click(ctx context.Context, locators ...dom.Locator) (bool, error)
}

var (
	// sendLocators find the send button: accessible label, icon name, icon text.
	sendLocators = []dom.Locator{
		dom.Q(`button[aria-label="Send message"]`),
		dom.Q(`mat-icon[data-mat-icon-name="send"]`).Within("button"),
		dom.Q(`mat-icon`).WithText("send").Within("button"),
	}
	stopLocators = []dom.Locator{
		dom.Q(`button[aria-label="Stop generating"]`),
		dom.Q(`mat-icon[data-mat-icon-name="stop"]`).Within("button"),
	}
	// readyLocators only accept the send icon itself, which the page swaps
	// back in once a reply is complete.
	readyLocators = []dom.Locator{
		dom.Q(`mat-icon[data-mat-icon-name="send"]`).Within("button"),
		dom.Q(`mat-icon[fonticon="send"]`).Within("button"),
	}
)

// Sequencer runs items against a chat page. It holds no per-run state and may
// be reused.
type Sequencer struct {
	cfg    config.AutomationConfig
	logger *zap.Logger
}

// NewSequencer creates a sequencer from configuration.
func NewSequencer(cfg config.AutomationConfig, logger *zap.Logger) *Sequencer {
	if cfg.InputSelector == "" {
		cfg.InputSelector = `div[contenteditable="true"]`
	}
	return &Sequencer{cfg: cfg, logger: logger.Named("automation")}
}

// Run focuses the input, pastes the item's images, clicks send and waits until
// the page has finished generating. Text is never typed.
func (s *Sequencer) Run(ctx context.Context, page Page, item Item) error {
	logger := s.logger.With(zap.String("run_id", uuid.NewString()), zap.String("item", item.Name))
	logger.Info("Processing item.")

	exists, err := page.Exists(ctx, s.cfg.InputSelector)
	if err != nil {
		return fmt.Errorf("failed to look up input box: %w", err)
	}
	if !exists {
		return ErrInputNotFound
	}
	if err := page.Focus(ctx, s.cfg.InputSelector); err != nil {
		return fmt.Errorf("failed to focus input box: %w", err)
	}

	if files := item.pasteFiles(); len(files) > 0 {
		n, err := page.PasteFiles(ctx, s.cfg.InputSelector, files)
		if err != nil {
			return fmt.Errorf("failed to paste images: %w", err)
		}
		logger.Info("Images pasted; waiting for upload previews.",
			zap.Int("images", n), zap.Duration("settle", s.cfg.PasteSettle))
		if err := sleep(ctx, s.cfg.PasteSettle); err != nil {
			return err
		}
	} else if len(item.ImagesBase64) > 0 {
		logger.Warn("No image in the item could be decoded; skipping paste.", zap.Int("images", len(item.ImagesBase64)))
	}

	if err := s.awaitSend(ctx, page); err != nil {
		return err
	}
	clicked, err := page.Click(ctx, sendLocators...)
	if err != nil {
		return fmt.Errorf("failed to click send: %w", err)
	}
	if !clicked {
		return fmt.Errorf("%w: control disappeared before the click", ErrSendUnavailable)
	}
	logger.Info("Clicked send.")

	if err := s.confirmStart(ctx, page, logger); err != nil {
		return err
	}
	if err := s.confirmCompletion(ctx, page); err != nil {
		return err
	}
	logger.Info("Item processing cycle complete.")
	return nil
}

// awaitSend waits for an enabled send control.
func (s *Sequencer) awaitSend(ctx context.Context, page Page) error {
	last := dom.Missing
	err := poll(ctx, s.cfg.DiscoveryInterval, s.cfg.DiscoveryAttempts, func(ctx context.Context) (bool, error) {
		c, err := page.Control(ctx, sendLocators...)
		if err != nil {
			return false, err
		}
		last = c
		return c.Enabled(), nil
	})
	switch {
	case err == nil:
		s.logger.Debug("Send control ready.", zap.Int("strategy", last.Strategy))
		return nil
	case errors.Is(err, errPending) && last.Found:
		return fmt.Errorf("%w: control stayed disabled", ErrSendUnavailable)
	case errors.Is(err, errPending):
		return ErrSendUnavailable
	default:
		return err
	}
}

// confirmStart waits for the page to react to the click: a stop control
// appears or the send control goes away or is disabled.
func (s *Sequencer) confirmStart(ctx context.Context, page Page, logger *zap.Logger) error {
	err := poll(ctx, s.cfg.StartInterval, s.cfg.StartAttempts, func(ctx context.Context) (bool, error) {
		stop, err := page.Control(ctx, stopLocators...)
		if err != nil {
			return false, err
		}
		if stop.Found {
			logger.Debug("Generation started (stop control appeared).")
			return true, nil
		}
		send, err := page.Control(ctx, sendLocators...)
		if err != nil {
			return false, err
		}
		if !send.Found || send.Disabled {
			logger.Debug("Generation started (send control disabled or gone).")
			return true, nil
		}
		return false, nil
	})
	if !errors.Is(err, errPending) {
		return err
	}

	waited := s.cfg.StartInterval * time.Duration(s.cfg.StartAttempts)
	if s.cfg.StrictStart {
		return &TimeoutError{Phase: PhaseStart, Waited: waited}
	}
	logger.Warn("Could not detect generation start. Continuing.", zap.Duration("waited", waited))
	return nil
}

// confirmCompletion waits until no stop control is present and an enabled
// send icon is back, bounded by the completion timeout.
func (s *Sequencer) confirmCompletion(ctx context.Context, page Page) error {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.CompletionTimeout)
	defer cancel()

	err := poll(pollCtx, s.cfg.CompletionInterval, 0, func(ctx context.Context) (bool, error) {
		stop, err := page.Control(ctx, stopLocators...)
		if err != nil {
			return false, err
		}
		if stop.Found {
			return false, nil
		}
		ready, err := page.Control(ctx, readyLocators...)
		if err != nil {
			return false, err
		}
		return ready.Enabled(), nil
	})
	if err != nil && ctx.Err() == nil && pollCtx.Err() != nil {
		return &TimeoutError{Phase: PhaseCompletion, Waited: s.cfg.CompletionTimeout}
	}
	return err
}
