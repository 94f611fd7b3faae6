// Package transcript reads caption cues from a course lecture page.
package transcript

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
	"github.com/xkilldash9x/courselens/internal/config"
)

// ErrNotFound means the page has no readable transcript, even after trying
// to open the transcript panel.
var ErrNotFound = errors.New("transcript not found")

// Guidance is the message shown to users for ErrNotFound.
const Guidance = "Could not find transcript. Please ensure the course has subtitles and I can open the Transcript panel."

// Page is the part of a tab the scraper needs.
type Page interface {
	InnerTexts(ctx context.Context, selector string) ([]string, error)
	Click(ctx context.Context, locators ...dom.Locator) (bool, error)
}

// openLocators are tried in order to reveal the transcript panel.
var openLocators = []dom.Locator{
	dom.Q(`use[href="#icon-transcript"], use[xlink\:href="#icon-transcript"]`).Within("button"),
	dom.Q(`button[data-purpose="transcript-toggle"]`),
	dom.Q(`button[aria-label*="Transcript"], button[aria-label*="ถอดความ"]`),
}

// Scraper extracts transcript text.
type Scraper struct {
	cueSelector string
	settle      time.Duration
	logger      *zap.Logger
}

// NewScraper creates a scraper from configuration.
func NewScraper(cfg config.TranscriptConfig, logger *zap.Logger) *Scraper {
	sel := cfg.CueSelector
	if sel == "" {
		sel = `[data-purpose="cue-text"]`
	}
	return &Scraper{cueSelector: sel, settle: cfg.SettleDelay, logger: logger.Named("transcript")}
}

// Scrape joins the trimmed, non-empty cue texts with single spaces in
// document order. found is false when there is nothing to join.
func (s *Scraper) Scrape(ctx context.Context, page Page) (text string, found bool, err error) {
	texts, err := page.InnerTexts(ctx, s.cueSelector)
	if err != nil {
		return "", false, err
	}
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", false, nil
	}
	return strings.Join(parts, " "), true, nil
}

// OpenPanel clicks the first transcript toggle it can find. Failures are
// logged and reported as not opened.
func (s *Scraper) OpenPanel(ctx context.Context, page Page) bool {
	clicked, err := page.Click(ctx, openLocators...)
	if err != nil {
		s.logger.Warn("Failed to toggle transcript panel.", zap.Error(err))
		return false
	}
	return clicked
}

// ScrapeWithAutoOpen scrapes; when nothing is found it opens the transcript
// panel, waits for it to render and scrapes exactly once more.
// onStatus, when set, receives progress messages.
func (s *Scraper) ScrapeWithAutoOpen(ctx context.Context, page Page, onStatus func(string)) (string, error) {
	text, found, err := s.Scrape(ctx, page)
	if err != nil {
		return "", err
	}
	if found {
		return text, nil
	}

	if onStatus != nil {
		onStatus("Attempting to open Transcript panel...")
	}
	if !s.OpenPanel(ctx, page) {
		return "", ErrNotFound
	}
	s.logger.Debug("Transcript panel toggled; waiting for cues.", zap.Duration("settle", s.settle))

	if err := sleep(ctx, s.settle); err != nil {
		return "", err
	}
	text, found, err = s.Scrape(ctx, page)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return text, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
