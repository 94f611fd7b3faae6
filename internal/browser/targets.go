package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/json-iterator/go"
)

// ErrTabNotFound is returned when no open page matches the requested host.
var ErrTabNotFound = errors.New("no open tab matches")

// Target is one entry of the DevTools /json/list endpoint.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ListTargets asks a running browser for its open targets.
func ListTargets(ctx context.Context, client *http.Client, debugURL string) ([]Target, error) {
	endpoint := strings.TrimRight(debugURL, "/") + "/json/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create target list request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach browser at %s: %w", debugURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("target list returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var targets []Target
	if err := json.Unmarshal(body, &targets); err != nil {
		return nil, fmt.Errorf("failed to decode target list: %w", err)
	}
	return targets, nil
}

// FindPage returns the first page target whose URL contains match. The
// DevTools list is ordered most recently focused first.
func FindPage(targets []Target, match string) (Target, error) {
	for _, t := range targets {
		if t.Type == "page" && strings.Contains(t.URL, match) {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%w %q", ErrTabNotFound, match)
}
