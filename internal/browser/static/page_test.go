package static

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
	"github.com/xkilldash9x/courselens/internal/panel"
)

const chatPage = `<html><body>
<div contenteditable="true"></div>
<button aria-label="Send message" aria-disabled="true"><span>go</span></button>
<button class="icon"><mat-icon data-mat-icon-name="stop">stop</mat-icon></button>
<div data-purpose="cue-text">  first </div>
<div data-purpose="cue-text">second</div>
</body></html>`

var _ panel.Page = (*Page)(nil)

func parse(t *testing.T) *Page {
	t.Helper()
	p, err := Parse(strings.NewReader(chatPage), "https://gemini.google.com/app")
	require.NoError(t, err)
	return p
}

func TestPage(t *testing.T) {
	ctx := context.Background()
	p := parse(t)

	assert.Equal(t, "https://gemini.google.com/app", p.URL())

	texts, err := p.InnerTexts(ctx, `[data-purpose="cue-text"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"  first ", "second"}, texts)

	clicked, err := p.Click(ctx, dom.Q("button"))
	require.NoError(t, err)
	assert.False(t, clicked, "a saved page cannot be clicked")
	assert.NoError(t, p.Close())
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lecture.html")
	require.NoError(t, os.WriteFile(path, []byte(chatPage), 0o600))

	p, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "file://"+path, p.URL())

	_, err = Open(filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorContains(t, err, "failed to open page")
}
