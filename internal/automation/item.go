package automation

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
)

// Item is one unit of work for the chat page: a name for the logs and the
// images to attach. Each image is a data URL or bare base64 PNG data.
type Item struct {
	Name         string   `json:"name"`
	ImagesBase64 []string `json:"imagesBase64"`
}

// LoadItem decodes an item from its JSON form.
func LoadItem(r io.Reader) (Item, error) {
	var item Item
	if err := json.NewDecoder(r).Decode(&item); err != nil {
		return Item{}, fmt.Errorf("failed to decode automation item: %w", err)
	}
	return item, nil
}

// ItemFromFiles reads image files into an item named name.
func ItemFromFiles(name string, paths []string) (Item, error) {
	item := Item{Name: name}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return Item{}, fmt.Errorf("failed to read image %s: %w", filepath.Base(p), err)
		}
		mime := http.DetectContentType(raw)
		if !strings.HasPrefix(mime, "image/") {
			return Item{}, fmt.Errorf("%s is not an image (detected %s)", filepath.Base(p), mime)
		}
		item.ImagesBase64 = append(item.ImagesBase64, "data:"+mime+";base64,"+base64.StdEncoding.EncodeToString(raw))
	}
	return item, nil
}

// pasteFiles turns the item's images into paste payloads. Images that do not
// decode are skipped; names keep the image's position in the item.
func (it Item) pasteFiles() []dom.PasteFile {
	files := make([]dom.PasteFile, 0, len(it.ImagesBase64))
	for i, img := range it.ImagesBase64 {
		dataURL, ok := normalizeImage(img)
		if !ok {
			continue
		}
		files = append(files, dom.PasteFile{Name: fmt.Sprintf("image_%d.png", i), DataURL: dataURL})
	}
	return files
}

// normalizeImage validates img and returns it as a data URL. Bare base64 is
// taken to be PNG.
func normalizeImage(img string) (string, bool) {
	img = strings.TrimSpace(img)
	header, payload := "data:image/png;base64", img
	if strings.HasPrefix(img, "data:") {
		var found bool
		header, payload, found = strings.Cut(img, ",")
		if !found {
			return "", false
		}
		mime, params, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		if mime == "" || !strings.Contains(params, "base64") {
			return "", false
		}
	}

	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return "", false
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		if _, err := base64.RawStdEncoding.DecodeString(payload); err != nil {
			return "", false
		}
	}
	return header + "," + payload, true
}
