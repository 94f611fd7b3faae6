// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/mocks"
	"github.com/xkilldash9x/courselens/internal/panel"
	"github.com/xkilldash9x/courselens/internal/settings"
)

const courseURL = "https://www.udemy.com/course/go-basics/learn/lecture/42"

// fakeProvider hands out a file backed settings store and testify mocks.
type fakeProvider struct {
	store      *settings.FileStore
	page       *mocks.MockPage
	tabErr     error
	summarizer *mocks.MockSummarizer
	clipboard  *mocks.MockClipboard

	tabMatches []string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	return &fakeProvider{
		store:      settings.NewFileStore(filepath.Join(t.TempDir(), "settings.yaml")),
		page:       new(mocks.MockPage),
		summarizer: new(mocks.MockSummarizer),
		clipboard:  new(mocks.MockClipboard),
	}
}

func (f *fakeProvider) Store(context.Context, *config.Config, *zap.Logger) (settings.Store, func(), error) {
	return f.store, func() {}, nil
}

func (f *fakeProvider) Tab(_ context.Context, _ *config.Config, match, _ string, _ *zap.Logger) (Tab, error) {
	f.tabMatches = append(f.tabMatches, match)
	if f.tabErr != nil {
		return nil, f.tabErr
	}
	return f.page, nil
}

func (f *fakeProvider) Summarizer(*config.Config, *zap.Logger) panel.Summarizer { return f.summarizer }

func (f *fakeProvider) Clipboard() panel.Clipboard { return f.clipboard }

func (f *fakeProvider) assertExpectations(t *testing.T) {
	t.Helper()
	f.page.AssertExpectations(t)
	f.summarizer.AssertExpectations(t)
	f.clipboard.AssertExpectations(t)
}

// writeTestConfig writes a config file that keeps logs out of the package
// directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "logger:\n  level: error\n  log_file: " + filepath.Join(dir, "test.log") + "\n" +
		"gemini:\n  prompt_file: " + filepath.Join(dir, "missing.json") + "\n" +
		"transcript:\n  settle_delay: 10ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// executeCommand runs a fresh command tree with the fake provider.
func executeCommand(t *testing.T, p provider, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommand(p)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", writeTestConfig(t)}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
