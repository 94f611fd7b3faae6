// Package panel holds the side-panel controller: the single owner of the
// panel's state, its settings and the summarize and transcript actions.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/courselens/internal/browser"
	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/markdown"
	"github.com/xkilldash9x/courselens/internal/settings"
	"github.com/xkilldash9x/courselens/internal/transcript"
)

// Page is a course tab.
type Page interface {
	transcript.Page
	URL() string
	Close() error
}

// TabOpener returns the course tab.
type TabOpener func(ctx context.Context) (Page, error)

// Summarizer is the remote model API.
type Summarizer interface {
	Summarize(ctx context.Context, apiKey, model, text string) (string, error)
	ListModels(ctx context.Context, apiKey string) ([]string, error)
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Store     settings.Store
	Tabs      TabOpener
	Scraper   *transcript.Scraper
	Gemini    Summarizer
	Clipboard Clipboard
}

// Controller runs panel actions one at a time and publishes every state change.
type Controller struct {
	deps         Deps
	defaultModel string
	rejected     []string
	hostMatch    string
	logger       *zap.Logger

	guard *semaphore.Weighted

	mu          sync.Mutex
	state       State
	apiKey      string
	cancel      context.CancelFunc
	subscribers map[chan State]struct{}
}

// NewController creates a controller in the initial view. Call Load before
// the first action.
func NewController(cfg *config.Config, deps Deps, logger *zap.Logger) *Controller {
	if deps.Clipboard == nil {
		deps.Clipboard = SystemClipboard{}
	}
	return &Controller{
		deps:         deps,
		defaultModel: cfg.Gemini.DefaultModel,
		rejected:     cfg.Gemini.RejectedModelMarkers,
		hostMatch:    cfg.Transcript.HostMatch,
		logger:       logger.Named("panel"),
		guard:        semaphore.NewWeighted(1),
		state:        State{View: ViewInitial, Model: cfg.Gemini.DefaultModel},
		subscribers:  make(map[chan State]struct{}),
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel that receives the current state and then every
// change. Slow subscribers miss intermediate states. The returned function
// unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 16)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	ch <- c.state.clone()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, ch)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// update applies fn to the state and publishes the result.
func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
	snapshot := c.state.clone()
	for ch := range c.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (c *Controller) setLoading(status string) {
	c.update(func(s *State) {
		s.View = ViewLoading
		s.Status = status
		s.Error = ""
	})
}

// Load reads the stored settings. Without an API key the settings panel opens.
func (c *Controller) Load(ctx context.Context) error {
	stored, err := c.deps.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	stored = settings.Sanitize(stored, c.defaultModel, c.rejected)

	c.update(func(s *State) {
		s.Model = stored.Model
		s.HasAPIKey = stored.APIKey != ""
		if !s.HasAPIKey {
			s.SettingsOpen = true
		}
	})
	c.mu.Lock()
	c.apiKey = stored.APIKey
	c.mu.Unlock()
	c.logger.Debug("Settings loaded.", zap.String("model", stored.Model), zap.Bool("has_api_key", stored.APIKey != ""))
	return nil
}

// ToggleSettings opens or closes the settings panel.
func (c *Controller) ToggleSettings() {
	c.update(func(s *State) {
		s.SettingsOpen = !s.SettingsOpen
		s.Models = nil
		s.ModelsMessage = ""
	})
}

// SaveSettings stores a trimmed key and a normalized model name, then closes
// the settings panel. An empty key is rejected and nothing is stored.
func (c *Controller) SaveSettings(ctx context.Context, apiKey, model string) (settings.Settings, error) {
	s := settings.Settings{
		APIKey: strings.TrimSpace(apiKey),
		Model:  settings.NormalizeModel(model, c.defaultModel),
	}
	if s.APIKey == "" {
		return settings.Settings{}, ErrAPIKeyMissing
	}
	if err := c.deps.Store.Save(ctx, s); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}

	c.mu.Lock()
	c.apiKey = s.APIKey
	c.mu.Unlock()
	c.update(func(st *State) {
		st.Model = s.Model
		st.HasAPIKey = true
		st.SettingsOpen = false
		st.Models = nil
		st.ModelsMessage = ""
	})
	c.logger.Info("Settings saved.", zap.String("model", s.Model))
	return s, nil
}

// Settings returns the settings in use, API key included.
func (c *Controller) Settings() settings.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return settings.Settings{APIKey: c.apiKey, Model: c.state.Model}
}

// CheckModels lists the generation models available to apiKey, or to the
// stored key when apiKey is blank. The outcome is also reported in the state.
func (c *Controller) CheckModels(ctx context.Context, apiKey string) ([]string, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = c.Settings().APIKey
	}
	if key == "" {
		c.update(func(s *State) { s.Models, s.ModelsMessage = nil, "Please enter API Key first." })
		return nil, ErrAPIKeyMissing
	}

	c.update(func(s *State) { s.Models, s.ModelsMessage = nil, "Loading models..." })
	models, err := c.deps.Gemini.ListModels(ctx, key)
	if err != nil {
		c.update(func(s *State) { s.ModelsMessage = "Error: " + err.Error() })
		return nil, err
	}
	c.update(func(s *State) {
		s.Models = models
		s.ModelsMessage = ""
		if len(models) == 0 {
			s.ModelsMessage = "No generateContent models found."
		}
	})
	return models, nil
}

// Summarize scrapes the course tab and shows the model's summary.
func (c *Controller) Summarize(ctx context.Context) error {
	return c.run(ctx, ResultSummary)
}

// FetchTranscript scrapes the course tab, shows the transcript and copies it
// to the clipboard.
func (c *Controller) FetchTranscript(ctx context.Context) error {
	return c.run(ctx, ResultTranscript)
}

func (c *Controller) run(ctx context.Context, kind ResultKind) error {
	if !c.guard.TryAcquire(1) {
		return ErrBusy
	}
	defer c.guard.Release(1)

	current := c.Settings()
	if kind == ResultSummary && current.APIKey == "" {
		c.update(func(s *State) { s.SettingsOpen = true })
		return ErrAPIKeyMissing
	}
	model := settings.NormalizeModel(current.Model, c.defaultModel)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runID := uuid.NewString()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	logger := c.logger.With(zap.String("run_id", runID), zap.String("kind", string(kind)))
	c.update(func(s *State) {
		s.RunID = runID
		s.Busy = true
	})
	defer c.update(func(s *State) { s.Busy = false })

	raw, err := c.produce(runCtx, kind, current.APIKey, model)
	if err != nil {
		logger.Warn("Panel action failed.", zap.Error(err))
		c.update(func(s *State) {
			s.View = ViewError
			s.Status = ""
			s.Error = Message(err)
		})
		return err
	}

	rendered := markdown.Render(raw)
	c.update(func(s *State) {
		s.View = ViewResult
		s.Status = ""
		s.Kind = kind
		s.Raw = raw
		s.HTML = rendered
		s.Error = ""
	})
	logger.Info("Panel action completed.", zap.Int("chars", len(raw)))

	if kind == ResultTranscript {
		if err := c.deps.Clipboard.WriteAll(raw); err != nil {
			logger.Warn("Failed to copy transcript to clipboard.", zap.Error(err))
		}
	}
	return nil
}

// produce walks the loading steps. Nothing it gathered survives a failure.
func (c *Controller) produce(ctx context.Context, kind ResultKind, apiKey, model string) (string, error) {
	c.setLoading("Accessing course tab...")
	page, err := c.openCourseTab(ctx)
	if err != nil {
		return "", err
	}
	defer page.Close()

	c.setLoading("Scraping transcript...")
	text, err := c.deps.Scraper.ScrapeWithAutoOpen(ctx, page, c.setLoading)
	if err != nil {
		return "", err
	}
	if kind == ResultTranscript {
		return text, nil
	}

	c.setLoading(fmt.Sprintf("Generating summary with %s...", model))
	return c.deps.Gemini.Summarize(ctx, apiKey, model, text)
}

func (c *Controller) openCourseTab(ctx context.Context) (Page, error) {
	page, err := c.deps.Tabs(ctx)
	if errors.Is(err, browser.ErrTabNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNotCourseTab, err)
	}
	if err != nil {
		return nil, err
	}
	if c.hostMatch != "" && !strings.Contains(page.URL(), c.hostMatch) {
		page.Close()
		return nil, ErrNotCourseTab
	}
	return page, nil
}

// Cancel aborts the running action. It reports whether one was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Reset returns to the initial view. It fails with ErrBusy while an action runs.
func (c *Controller) Reset() error {
	if !c.guard.TryAcquire(1) {
		return ErrBusy
	}
	defer c.guard.Release(1)
	c.update(func(s *State) {
		s.View = ViewInitial
		s.Status = ""
		s.Error = ""
	})
	return nil
}

// Copy writes the raw result to the clipboard.
func (c *Controller) Copy() error {
	raw := c.State().Raw
	if raw == "" {
		return ErrNoResult
	}
	if err := c.deps.Clipboard.WriteAll(raw); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// Export returns the rendered result as a standalone HTML document.
func (c *Controller) Export() (string, error) {
	st := c.State()
	if st.HTML == "" {
		return "", ErrNoResult
	}
	return markdown.Document(st.HTML, markdown.DefaultTitle)
}
