// File: cmd/commands_test.go
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/courselens/internal/automation"
	"github.com/xkilldash9x/courselens/internal/browser"
	"github.com/xkilldash9x/courselens/internal/panel"
	"github.com/xkilldash9x/courselens/internal/settings"
)

const testKey = "AIzaSyTESTKEY123"

func storeKey(t *testing.T, f *fakeProvider) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), settings.Settings{APIKey: testKey, Model: "gemini-1.5-flash"}))
}

func expectCoursePage(f *fakeProvider, cues ...string) {
	f.page.On("URL").Return(courseURL)
	f.page.On("InnerTexts", mock.Anything, `[data-purpose="cue-text"]`).Return(cues, nil)
	f.page.On("Close").Return(nil)
}

func TestSummarizeCmd(t *testing.T) {
	t.Run("prints the summary and writes exports", func(t *testing.T) {
		f := newFakeProvider(t)
		storeKey(t, f)
		expectCoursePage(f, "Hello", "  world ")
		f.summarizer.On("Summarize", mock.Anything, testKey, "gemini-1.5-flash", "Hello world").
			Return("# Summary\n\nGoroutines are cheap.", nil)

		dir := t.TempDir()
		mdPath := filepath.Join(dir, "out", "summary.md")
		htmlPath := filepath.Join(dir, "summary.html")
		stdout, _, err := executeCommand(t, f, "summarize", "-o", mdPath, "--html", htmlPath)
		require.NoError(t, err)

		assert.Contains(t, stdout, "# Summary")
		md, err := os.ReadFile(mdPath)
		require.NoError(t, err)
		assert.Equal(t, "# Summary\n\nGoroutines are cheap.", string(md))
		doc, err := os.ReadFile(htmlPath)
		require.NoError(t, err)
		assert.Contains(t, string(doc), "<h1>Summary</h1>")
		assert.Equal(t, []string{"udemy.com"}, f.tabMatches)
		f.assertExpectations(t)
	})

	t.Run("reports a tab that is not a course page", func(t *testing.T) {
		f := newFakeProvider(t)
		storeKey(t, f)
		f.page.On("URL").Return("https://example.com/")
		f.page.On("Close").Return(nil)

		stdout, _, err := executeCommand(t, f, "summarize")
		require.Error(t, err)
		assert.Equal(t, panel.CourseTabGuidance, err.Error())
		assert.Empty(t, stdout)
		f.assertExpectations(t)
	})

	t.Run("reports a browser without course tabs", func(t *testing.T) {
		f := newFakeProvider(t)
		storeKey(t, f)
		f.tabErr = browser.ErrTabNotFound

		_, _, err := executeCommand(t, f, "summarize")
		require.Error(t, err)
		assert.ErrorIs(t, err, panel.ErrNotCourseTab)
	})

	t.Run("requires a stored key", func(t *testing.T) {
		f := newFakeProvider(t)

		_, _, err := executeCommand(t, f, "summarize")
		require.Error(t, err)
		assert.ErrorIs(t, err, panel.ErrAPIKeyMissing)
		assert.Empty(t, f.tabMatches, "no tab is opened without a key")
	})

	t.Run("reads a saved page with --file", func(t *testing.T) {
		f := newFakeProvider(t)
		storeKey(t, f)
		page := filepath.Join(t.TempDir(), "lecture.html")
		require.NoError(t, os.WriteFile(page, []byte(`<html><body>
<div data-purpose="cue-text">Offline cue one</div>
<div data-purpose="cue-text">Offline cue two</div>
</body></html>`), 0o600))
		f.summarizer.On("Summarize", mock.Anything, testKey, "gemini-1.5-flash", "Offline cue one Offline cue two").
			Return("Offline summary", nil)

		stdout, _, err := executeCommand(t, f, "summarize", "--file", page)
		require.NoError(t, err)
		assert.Equal(t, "Offline summary\n", stdout)
		assert.Empty(t, f.tabMatches)
		f.assertExpectations(t)
	})
}

func TestTranscriptCmd(t *testing.T) {
	t.Run("prints and copies the transcript", func(t *testing.T) {
		f := newFakeProvider(t)
		expectCoursePage(f, "First cue.", "Second cue.")
		f.clipboard.On("WriteAll", "First cue. Second cue.").Return(nil)

		stdout, stderr, err := executeCommand(t, f, "transcript")
		require.NoError(t, err)
		assert.Equal(t, "First cue. Second cue.\n", stdout)
		assert.Contains(t, stderr, "Transcript copied to clipboard.")
		f.assertExpectations(t)
	})

	t.Run("no-copy leaves the clipboard alone", func(t *testing.T) {
		f := newFakeProvider(t)
		expectCoursePage(f, "Only cue.")

		out := filepath.Join(t.TempDir(), "transcript.txt")
		stdout, stderr, err := executeCommand(t, f, "transcript", "--no-copy", "-o", out)
		require.NoError(t, err)
		assert.Equal(t, "Only cue.\n", stdout)
		assert.NotContains(t, stderr, "clipboard")
		written, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "Only cue.", string(written))
		f.clipboard.AssertNotCalled(t, "WriteAll", mock.Anything)
	})
}

func TestModelsCmd(t *testing.T) {
	t.Run("marks the current model", func(t *testing.T) {
		f := newFakeProvider(t)
		f.summarizer.On("ListModels", mock.Anything, "override-key").
			Return([]string{"gemini-1.5-flash", "gemini-1.5-pro"}, nil)

		stdout, _, err := executeCommand(t, f, "models", "--api-key", " override-key ")
		require.NoError(t, err)
		assert.Equal(t, "* gemini-1.5-flash\n  gemini-1.5-pro\n", stdout)
		f.assertExpectations(t)
	})

	t.Run("empty list", func(t *testing.T) {
		f := newFakeProvider(t)
		storeKey(t, f)
		f.summarizer.On("ListModels", mock.Anything, testKey).Return([]string{}, nil)

		stdout, _, err := executeCommand(t, f, "models")
		require.NoError(t, err)
		assert.Equal(t, "No generateContent models found.\n", stdout)
	})

	t.Run("no key anywhere", func(t *testing.T) {
		f := newFakeProvider(t)
		_, _, err := executeCommand(t, f, "models")
		assert.ErrorIs(t, err, panel.ErrAPIKeyMissing)
	})
}

func TestSettingsCmd(t *testing.T) {
	f := newFakeProvider(t)

	stdout, _, err := executeCommand(t, f, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "backend: file")
	assert.Contains(t, stdout, "api key: (not set)")

	_, _, err = executeCommand(t, f, "settings", "set", "--model", "gemini-1.5-pro")
	require.Error(t, err, "a model alone cannot be stored without a key")
	assert.ErrorIs(t, err, panel.ErrAPIKeyMissing)

	stdout, _, err = executeCommand(t, f, "settings", "set", "--api-key", "  "+testKey+" ", "--model", "models/gemini-1.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "Settings saved. Model: gemini-1.5-pro\n", stdout)

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{APIKey: testKey, Model: "gemini-1.5-pro"}, stored)

	// Changing only the model keeps the key.
	_, _, err = executeCommand(t, f, "settings", "set", "--model", "gemini-2.0-flash")
	require.NoError(t, err)
	stored, err = f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testKey, stored.APIKey)
	assert.Equal(t, "gemini-2.0-flash", stored.Model)

	stdout, _, err = executeCommand(t, f, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "model:   gemini-2.0-flash")
	assert.Contains(t, stdout, "api key: AIza********Y123")
	assert.NotContains(t, stdout, testKey)
}

func TestAutomateCmd(t *testing.T) {
	t.Run("needs something to submit", func(t *testing.T) {
		f := newFakeProvider(t)
		_, _, err := executeCommand(t, f, "automate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to submit")
		assert.Empty(t, f.tabMatches)
	})

	t.Run("rejects a non-image file", func(t *testing.T) {
		f := newFakeProvider(t)
		notImage := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(notImage, []byte("plain text"), 0o600))

		_, _, err := executeCommand(t, f, "automate", "--image", notImage)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not an image")
	})

	t.Run("stops when the chat input is missing", func(t *testing.T) {
		f := newFakeProvider(t)
		item := filepath.Join(t.TempDir(), "item.json")
		require.NoError(t, os.WriteFile(item, []byte(`{"name":"lecture-3","imagesBase64":[]}`), 0o600))
		f.page.On("Exists", mock.Anything, `div[contenteditable="true"]`).Return(false, nil)
		f.page.On("Close").Return(nil)

		_, _, err := executeCommand(t, f, "automate", "--item", item)
		require.Error(t, err)
		assert.ErrorIs(t, err, automation.ErrInputNotFound)
		assert.Contains(t, err.Error(), "item 1 (lecture-3)")
		assert.Equal(t, []string{"gemini.google.com"}, f.tabMatches)
		f.assertExpectations(t)
	})

	t.Run("tab errors are wrapped", func(t *testing.T) {
		f := newFakeProvider(t)
		f.tabErr = errors.New("connection refused")
		item := filepath.Join(t.TempDir(), "item.json")
		require.NoError(t, os.WriteFile(item, []byte(`{"name":"x"}`), 0o600))

		_, _, err := executeCommand(t, f, "automate", "--item", item)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open chat tab: connection refused")
	})
}

func TestCollectItems(t *testing.T) {
	items, err := collectItems(automateOptions{items: []string{"-"}}, strings.NewReader(`{"name":"stdin","imagesBase64":["abc"]}`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "stdin", items[0].Name)
	assert.Equal(t, []string{"abc"}, items[0].ImagesBase64)

	_, err = collectItems(automateOptions{items: []string{"-"}}, strings.NewReader(`{`))
	assert.ErrorContains(t, err, "failed to decode automation item")
}

func TestRunLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courselens.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n"), 0o600))

	var out strings.Builder
	require.NoError(t, runLogs(context.Background(), &out, path, false))
	assert.Equal(t, "{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n", out.String())

	err := runLogs(context.Background(), &out, filepath.Join(t.TempDir(), "missing.log"), false)
	assert.ErrorContains(t, err, "failed to open log file")
}
