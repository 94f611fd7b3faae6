// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
	"github.com/xkilldash9x/courselens/internal/settings"
)

// -- Page Mock --

// MockPage mocks a browser tab for the transcript scraper and the sequencer.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) URL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockPage) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPage) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	args := m.Called(ctx, selector)
	texts, _ := args.Get(0).([]string)
	return texts, args.Error(1)
}

func (m *MockPage) Click(ctx context.Context, locators ...dom.Locator) (bool, error) {
	args := m.Called(ctx, locators)
	return args.Bool(0), args.Error(1)
}

func (m *MockPage) Exists(ctx context.Context, selector string) (bool, error) {
	args := m.Called(ctx, selector)
	return args.Bool(0), args.Error(1)
}

func (m *MockPage) Focus(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockPage) PasteFiles(ctx context.Context, selector string, files []dom.PasteFile) (int, error) {
	args := m.Called(ctx, selector, files)
	return args.Int(0), args.Error(1)
}

func (m *MockPage) Control(ctx context.Context, locators ...dom.Locator) (dom.Control, error) {
	args := m.Called(ctx, locators)
	return args.Get(0).(dom.Control), args.Error(1)
}

// -- Settings Store Mock --

type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Load(ctx context.Context) (settings.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(settings.Settings), args.Error(1)
}

func (m *MockSettingsStore) Save(ctx context.Context, s settings.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// -- Summarizer Mock --

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, apiKey, model, text string) (string, error) {
	args := m.Called(ctx, apiKey, model, text)
	return args.String(0), args.Error(1)
}

func (m *MockSummarizer) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	args := m.Called(ctx, apiKey)
	models, _ := args.Get(0).([]string)
	return models, args.Error(1)
}

// -- Clipboard Mock --

type MockClipboard struct {
	mock.Mock
}

func (m *MockClipboard) WriteAll(text string) error {
	args := m.Called(text)
	return args.Error(0)
}
