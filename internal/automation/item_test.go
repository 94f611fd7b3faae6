package automation

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"data url", "data:image/jpeg;base64," + pngBase64, "data:image/jpeg;base64," + pngBase64, true},
		{"bare base64 is png", pngBase64, "data:image/png;base64," + pngBase64, true},
		{"whitespace is dropped", " " + pngBase64[:20] + "\n" + pngBase64[20:], "data:image/png;base64," + pngBase64, true},
		{"missing padding", "aGVsbG8", "data:image/png;base64,aGVsbG8", true},
		{"no comma", "data:image/png;base64", "", false},
		{"not base64 encoded", "data:image/png,rawbytes", "", false},
		{"no mime", "data:;base64," + pngBase64, "", false},
		{"garbage", "***", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeImage(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadItem(t *testing.T) {
	item, err := LoadItem(strings.NewReader(`{"name":"card-7","imagesBase64":["` + pngBase64 + `"]}`))
	require.NoError(t, err)
	assert.Equal(t, "card-7", item.Name)
	assert.Len(t, item.ImagesBase64, 1)

	_, err = LoadItem(strings.NewReader(`{"name":`))
	assert.ErrorContains(t, err, "failed to decode automation item")
}

func TestItemFromFiles(t *testing.T) {
	dir := t.TempDir()
	raw, err := base64.StdEncoding.DecodeString(pngBase64)
	require.NoError(t, err)
	img := filepath.Join(dir, "slide.png")
	require.NoError(t, os.WriteFile(img, raw, 0o600))

	item, err := ItemFromFiles("slides", []string{img})
	require.NoError(t, err)
	require.Len(t, item.ImagesBase64, 1)
	assert.Equal(t, "data:image/png;base64,"+pngBase64, item.ImagesBase64[0])
	assert.Len(t, item.pasteFiles(), 1)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("just text"), 0o600))
	_, err = ItemFromFiles("notes", []string{txt})
	assert.ErrorContains(t, err, "is not an image")

	_, err = ItemFromFiles("missing", []string{filepath.Join(dir, "nope.png")})
	assert.Error(t, err)
}
