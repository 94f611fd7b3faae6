package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/courselens/internal/config"
	"github.com/xkilldash9x/courselens/internal/mocks"
	"github.com/xkilldash9x/courselens/internal/panel"
	"github.com/xkilldash9x/courselens/internal/settings"
	"github.com/xkilldash9x/courselens/internal/transcript"
)

const cues = `[data-purpose="cue-text"]`

type fixture struct {
	srv       *httptest.Server
	server    *Server
	store     *mocks.MockSettingsStore
	page      *mocks.MockPage
	gemini    *mocks.MockSummarizer
	clipboard *mocks.MockClipboard
}

func newFixture(t *testing.T, stored settings.Settings, panelCfg config.PanelConfig) *fixture {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Transcript.SettleDelay = time.Millisecond
	logger := zaptest.NewLogger(t)

	f := &fixture{
		store:     new(mocks.MockSettingsStore),
		page:      new(mocks.MockPage),
		gemini:    new(mocks.MockSummarizer),
		clipboard: new(mocks.MockClipboard),
	}
	f.store.On("Load", mock.Anything).Return(stored, nil)
	f.page.On("URL").Return("https://www.udemy.com/course/go/learn/lecture/1").Maybe()
	f.page.On("Close").Return(nil).Maybe()

	ctrl := panel.NewController(cfg, panel.Deps{
		Store:     f.store,
		Tabs:      func(context.Context) (panel.Page, error) { return f.page, nil },
		Scraper:   transcript.NewScraper(cfg.Transcript, logger),
		Gemini:    f.gemini,
		Clipboard: f.clipboard,
	}, logger)
	require.NoError(t, ctrl.Load(context.Background()))

	f.server = New(panelCfg, ctrl, logger)
	f.srv = httptest.NewServer(f.server.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func permissive() config.PanelConfig {
	return config.PanelConfig{RateLimit: 1000, RateBurst: 100, RequestTimeout: 10 * time.Second}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if resp.Header.Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestRoutes(t *testing.T) {
	key := settings.Settings{APIKey: "k", Model: "gemini-1.5-flash"}

	t.Run("health and page", func(t *testing.T) {
		f := newFixture(t, key, permissive())
		resp, body := f.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])

		resp, err := f.srv.Client().Get(f.srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		page, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(page), `id="summarize-btn"`)
		assert.Contains(t, string(page), "/api/events")
	})

	t.Run("state", func(t *testing.T) {
		f := newFixture(t, key, permissive())
		resp, body := f.do(t, http.MethodGet, "/api/state", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "initial", body["view"])
		assert.Equal(t, true, body["hasApiKey"])
		assert.NotContains(t, body, "apiKey")
	})

	t.Run("summarize without a key", func(t *testing.T) {
		f := newFixture(t, settings.Settings{}, permissive())
		resp, body := f.do(t, http.MethodPost, "/api/summarize", "")
		assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
		assert.Contains(t, body["error"], "API key")
	})

	t.Run("summarize", func(t *testing.T) {
		f := newFixture(t, key, permissive())
		f.page.On("InnerTexts", mock.Anything, cues).Return([]string{"lecture"}, nil)
		f.gemini.On("Summarize", mock.Anything, "k", "gemini-1.5-flash", "lecture").Return("# Title", nil)

		resp, body := f.do(t, http.MethodPost, "/api/summarize", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "result", body["view"])
		assert.Contains(t, body["html"], "<h1>Title</h1>")

		exp, err := f.srv.Client().Get(f.srv.URL + "/api/export?download=1")
		require.NoError(t, err)
		defer exp.Body.Close()
		assert.Equal(t, http.StatusOK, exp.StatusCode)
		assert.Contains(t, exp.Header.Get("Content-Disposition"), "summary.html")
	})

	t.Run("failed action still answers with the state", func(t *testing.T) {
		f := newFixture(t, key, permissive())
		f.page.On("InnerTexts", mock.Anything, cues).Return([]string{}, nil)
		f.page.On("Click", mock.Anything, mock.Anything).Return(false, nil)

		resp, body := f.do(t, http.MethodPost, "/api/transcript", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "error", body["view"])
		assert.Equal(t, transcript.Guidance, body["error"])
	})

	t.Run("settings", func(t *testing.T) {
		f := newFixture(t, settings.Settings{}, permissive())
		resp, _ := f.do(t, http.MethodPut, "/api/settings", `{"geminiApiKey":"  ","geminiModel":"x"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = f.do(t, http.MethodPut, "/api/settings", `{not json`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		f.store.On("Save", mock.Anything, settings.Settings{APIKey: "new", Model: "gemini-1.5-pro"}).Return(nil)
		resp, body := f.do(t, http.MethodPut, "/api/settings", `{"geminiApiKey":"new","geminiModel":"models/gemini-1.5-pro"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "gemini-1.5-pro", body["geminiModel"])

		_, body = f.do(t, http.MethodGet, "/api/settings", "")
		assert.Equal(t, true, body["hasApiKey"])
		assert.NotContains(t, body, "geminiApiKey")
	})

	t.Run("models use the header key", func(t *testing.T) {
		f := newFixture(t, key, permissive())
		f.gemini.On("ListModels", mock.Anything, "header-key").Return([]string{"gemini-1.5-flash"}, nil)

		req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/models", nil)
		require.NoError(t, err)
		req.Header.Set("X-Goog-Api-Key", "header-key")
		resp, err := f.srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var body modelsBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, []string{"gemini-1.5-flash"}, body.Models)
	})

	t.Run("copy and export need a result", func(t *testing.T) {
		f := newFixture(t, key, permissive())
		resp, _ := f.do(t, http.MethodPost, "/api/copy", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp, _ = f.do(t, http.MethodGet, "/api/export", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("actions are rate limited", func(t *testing.T) {
		f := newFixture(t, key, config.PanelConfig{RateLimit: 0.001, RateBurst: 1})
		resp, _ := f.do(t, http.MethodPost, "/api/settings/toggle", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := f.do(t, http.MethodPost, "/api/settings/toggle", "")
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "rate limit exceeded", body["error"])

		resp, _ = f.do(t, http.MethodGet, "/api/state", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, "reads are not limited")
	})
}

func TestBusyAndCancel(t *testing.T) {
	f := newFixture(t, settings.Settings{APIKey: "k"}, permissive())
	f.page.On("InnerTexts", mock.Anything, cues).Return([]string{"lecture"}, nil)
	started := make(chan struct{})
	f.gemini.On("Summarize", mock.Anything, "k", "gemini-1.5-flash", "lecture").
		Return("", context.Canceled).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		})

	type result struct {
		status int
		body   map[string]interface{}
	}
	first := make(chan result, 1)
	go func() {
		resp, body := f.do(t, http.MethodPost, "/api/summarize", "")
		first <- result{resp.StatusCode, body}
	}()
	<-started

	resp, _ := f.do(t, http.MethodPost, "/api/summarize", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/reset", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, body := f.do(t, http.MethodPost, "/api/cancel", "")
	assert.Equal(t, true, body["cancelled"])

	r := <-first
	assert.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "error", r.body["view"])
	assert.Equal(t, "Cancelled.", r.body["error"])
}

func TestEvents(t *testing.T) {
	f := newFixture(t, settings.Settings{APIKey: "k"}, permissive())
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/events"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var st panel.State
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, panel.ViewInitial, st.View)
	assert.False(t, st.SettingsOpen)

	resp, _ := f.do(t, http.MethodPost, "/api/settings/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&st))
	assert.True(t, st.SettingsOpen)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := new(mocks.MockSettingsStore)
	ctrl := panel.NewController(config.NewDefaultConfig(), panel.Deps{Store: store}, zaptest.NewLogger(t))
	s := New(permissive(), ctrl, zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}
