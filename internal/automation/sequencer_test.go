package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/mocks"
)

const pngBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// chatPage simulates the chat page's controls. Tests mutate the state from
// hooks to script the busy to idle transition.
type chatPage struct {
	mu sync.Mutex

	input        bool
	sendFound    bool
	sendDisabled bool
	stopFound    bool
	controlErr   error

	pasted     []dom.PasteFile
	calls      []string
	stopChecks int

	onClick     func(p *chatPage)
	onStopCheck func(p *chatPage, n int)
}

func newChatPage() *chatPage {
	return &chatPage{
		input:     true,
		sendFound: true,
		// The default reply starts on click and finishes after three checks.
		onClick: func(p *chatPage) {
			p.stopFound = true
			p.sendFound = false
		},
		onStopCheck: func(p *chatPage, n int) {
			if n >= 3 {
				p.stopFound = false
				p.sendFound = true
			}
		},
	}
}

func (p *chatPage) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *chatPage) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("exists")
	return p.input, nil
}

func (p *chatPage) Focus(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("focus")
	return nil
}

func (p *chatPage) PasteFiles(_ context.Context, _ string, files []dom.PasteFile) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("paste")
	p.pasted = append(p.pasted, files...)
	return len(files), nil
}

func (p *chatPage) Control(_ context.Context, locators ...dom.Locator) (dom.Control, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.controlErr != nil {
		return dom.Missing, p.controlErr
	}

	switch locators[0] {
	case sendLocators[0], readyLocators[0]:
		p.record("send?")
		if !p.sendFound {
			return dom.Missing, nil
		}
		return dom.Control{Found: true, Disabled: p.sendDisabled}, nil
	case stopLocators[0]:
		p.record("stop?")
		p.stopChecks++
		if p.onStopCheck != nil {
			p.onStopCheck(p, p.stopChecks)
		}
		return dom.Control{Found: p.stopFound}, nil
	}
	return dom.Missing, nil
}

func (p *chatPage) Click(context.Context, ...dom.Locator) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click")
	if !p.sendFound {
		return false, nil
	}
	if p.onClick != nil {
		p.onClick(p)
	}
	return true, nil
}

func (p *chatPage) count(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == call {
			n++
		}
	}
	return n
}

func testConfig() config.AutomationConfig {
	return config.AutomationConfig{
		InputSelector:      `div[contenteditable="true"]`,
		PasteSettle:        time.Millisecond,
		DiscoveryInterval:  time.Millisecond,
		DiscoveryAttempts:  5,
		StartInterval:      time.Millisecond,
		StartAttempts:      5,
		CompletionInterval: time.Millisecond,
		CompletionTimeout:  time.Second,
	}
}

func runWithTimeout(t *testing.T, s *Sequencer, page Page, item Item) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Run(ctx, page, item)
}

func TestSequencerRun(t *testing.T) {
	t.Run("pastes valid images and waits for the reply", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		page := newChatPage()
		s := NewSequencer(testConfig(), zaptest.NewLogger(t))

		err := runWithTimeout(t, s, page, Item{
			Name:         "lesson-1",
			ImagesBase64: []string{"data:image/png;base64," + pngBase64, "not base64 !!", pngBase64},
		})
		require.NoError(t, err)

		require.Len(t, page.pasted, 2)
		assert.Equal(t, "image_0.png", page.pasted[0].Name)
		assert.Equal(t, "image_2.png", page.pasted[1].Name)
		assert.Equal(t, "data:image/png;base64,"+pngBase64, page.pasted[1].DataURL)

		assert.Equal(t, []string{"exists", "focus", "paste", "send?", "click"}, page.calls[:5])
		assert.Equal(t, 1, page.count("click"))
		assert.GreaterOrEqual(t, page.stopChecks, 3)
	})

	t.Run("zero images skip the paste and the settle", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		cfg := testConfig()
		cfg.PasteSettle = time.Hour
		page := newChatPage()

		err := runWithTimeout(t, NewSequencer(cfg, zaptest.NewLogger(t)), page, Item{Name: "text-only"})
		require.NoError(t, err)
		assert.Zero(t, page.count("paste"))
	})

	t.Run("undecodable images skip the paste", func(t *testing.T) {
		cfg := testConfig()
		cfg.PasteSettle = time.Hour
		page := newChatPage()

		err := runWithTimeout(t, NewSequencer(cfg, zaptest.NewLogger(t)), page, Item{ImagesBase64: []string{"data:image/png,nope", "%%%"}})
		require.NoError(t, err)
		assert.Zero(t, page.count("paste"))
	})

	t.Run("missing input fails before control discovery", func(t *testing.T) {
		page := new(mocks.MockPage)
		page.On("Exists", mock.Anything, `div[contenteditable="true"]`).Return(false, nil)

		err := runWithTimeout(t, NewSequencer(testConfig(), zaptest.NewLogger(t)), page, Item{ImagesBase64: []string{pngBase64}})
		assert.ErrorIs(t, err, ErrInputNotFound)
		page.AssertExpectations(t)
		page.AssertNotCalled(t, "Focus", mock.Anything, mock.Anything)
		page.AssertNotCalled(t, "Control", mock.Anything, mock.Anything)
	})

	t.Run("send control never found", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		page := newChatPage()
		page.sendFound = false

		err := runWithTimeout(t, NewSequencer(testConfig(), zaptest.NewLogger(t)), page, Item{})
		assert.ErrorIs(t, err, ErrSendUnavailable)
		assert.Equal(t, 5, page.count("send?"), "discovery is bounded by the attempt count")
		assert.Zero(t, page.count("click"))
	})

	t.Run("send control stays disabled", func(t *testing.T) {
		page := newChatPage()
		page.sendDisabled = true

		err := runWithTimeout(t, NewSequencer(testConfig(), zaptest.NewLogger(t)), page, Item{})
		assert.ErrorIs(t, err, ErrSendUnavailable)
		assert.ErrorContains(t, err, "stayed disabled")
		assert.Zero(t, page.count("click"))
	})

	t.Run("send becomes enabled during discovery", func(t *testing.T) {
		cfg := testConfig()
		cfg.DiscoveryAttempts = 1000
		page := newChatPage()
		page.sendDisabled = true

		done := make(chan struct{})
		go func() {
			defer close(done)
			for page.count("send?") < 2 {
				time.Sleep(time.Millisecond)
			}
			page.mu.Lock()
			page.sendDisabled = false
			page.mu.Unlock()
		}()

		require.NoError(t, runWithTimeout(t, NewSequencer(cfg, zaptest.NewLogger(t)), page, Item{}))
		<-done
		assert.Equal(t, 1, page.count("click"))
	})

	t.Run("unconfirmed start is advisory by default", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		page := newChatPage()
		page.onClick = nil
		page.onStopCheck = nil

		err := runWithTimeout(t, NewSequencer(testConfig(), zap.New(core)), page, Item{})
		require.NoError(t, err)
		assert.Equal(t, 1, logs.FilterMessage("Could not detect generation start. Continuing.").Len())
	})

	t.Run("unconfirmed start fails in strict mode", func(t *testing.T) {
		cfg := testConfig()
		cfg.StrictStart = true
		page := newChatPage()
		page.onClick = nil
		page.onStopCheck = nil

		err := runWithTimeout(t, NewSequencer(cfg, zaptest.NewLogger(t)), page, Item{})
		var timeout *TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, PhaseStart, timeout.Phase)
		assert.Equal(t, 5*time.Millisecond, timeout.Waited)
	})

	t.Run("completion wait is bounded", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		cfg := testConfig()
		cfg.CompletionTimeout = 50 * time.Millisecond
		page := newChatPage()
		page.onStopCheck = nil

		err := runWithTimeout(t, NewSequencer(cfg, zaptest.NewLogger(t)), page, Item{})
		var timeout *TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, PhaseCompletion, timeout.Phase)
		assert.Contains(t, timeout.Error(), "generation completion")
	})

	t.Run("cancellation stops the completion wait", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		page := newChatPage()
		page.onStopCheck = func(_ *chatPage, n int) {
			if n == 3 {
				cancel()
			}
		}

		err := NewSequencer(testConfig(), zaptest.NewLogger(t)).Run(ctx, page, Item{})
		assert.ErrorIs(t, err, context.Canceled)
		var timeout *TimeoutError
		assert.False(t, errors.As(err, &timeout))
	})

	t.Run("page errors end the run", func(t *testing.T) {
		boom := errors.New("target closed")
		page := newChatPage()
		page.controlErr = boom

		err := runWithTimeout(t, NewSequencer(testConfig(), zaptest.NewLogger(t)), page, Item{})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, page.count("click"))
	})
}
