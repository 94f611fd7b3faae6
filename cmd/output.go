// File: cmd/output.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/schollz/progressbar/v3"

	"github.com/xkilldash9x/courselens/internal/panel"
)

// userError carries the message shown to the user while keeping the cause
// available to errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// actionError translates a failed panel action for the terminal.
func actionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, panel.ErrAPIKeyMissing):
		return &userError{msg: "no Gemini API key is stored; run 'courselens settings set --api-key KEY' first", err: err}
	}
	return &userError{msg: panel.Message(err), err: err}
}

// watchProgress draws a spinner on w that follows the controller's status
// messages. The returned function stops it and clears the line.
func watchProgress(ctrl *panel.Controller, w io.Writer) func() {
	if !isTerminal(w) {
		return func() {}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Starting..."),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
	states, unsubscribe := ctrl.Subscribe()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case st, ok := <-states:
				if !ok {
					return
				}
				if st.Status != "" {
					bar.Describe(st.Status)
				}
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			unsubscribe()
			_ = bar.Finish()
		})
	}
}

// printMarkdown writes md to w, styled when w is a terminal and plain is unset.
func printMarkdown(w io.Writer, md string, plain bool) error {
	if plain || !isTerminal(w) {
		_, err := fmt.Fprintln(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// writeOutputFile writes content to path, creating parent directories.
func writeOutputFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
