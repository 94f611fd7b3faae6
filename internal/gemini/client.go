// internal/gemini/client.go
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/config"
)

// Client talks to the Generative Language API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	prompts    PromptSource
	maxChars   int
	marker     string
	logger     *zap.Logger
}

// -- Request/Response Structures --

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

// responsePart leaves Text nil when the part carries no text at all, for
// example inline data after a safety stop.
type responsePart struct {
	Text *string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewClient creates a client. httpClient is used for every call, including
// model listing.
func NewClient(cfg config.GeminiConfig, httpClient *http.Client, prompts PromptSource, logger *zap.Logger) *Client {
	if prompts == nil {
		prompts = StaticPrompt("")
	}
	marker := cfg.TruncationMarker
	if marker == "" {
		marker = "... (truncated)"
	}
	maxChars := cfg.MaxTranscriptChars
	if maxChars <= 0 {
		maxChars = 100000
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		prompts:    prompts,
		maxChars:   maxChars,
		marker:     marker,
		logger:     logger.Named("gemini"),
	}
}

// Truncate cuts text to max characters and appends marker when it cut anything.
func Truncate(text string, max int, marker string) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i] + marker
		}
		n++
	}
	return text
}

// BuildPrompt places the instruction ahead of the transcript.
func BuildPrompt(systemPrompt, transcript string) string {
	return systemPrompt + "\n\nTranscript:\n" + transcript
}

// Summarize sends one generateContent request and returns the first
// candidate's text. It never retries.
func (c *Client) Summarize(ctx context.Context, apiKey, model, text string) (string, error) {
	text = Truncate(text, c.maxChars, c.marker)
	prompt := BuildPrompt(c.prompts.SystemPrompt(ctx), text)

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "Gemini API Error"}
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error.Message != "" {
			apiErr.Message = e.Error.Message
		}
		c.logger.Error("Gemini API returned error status", zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return "", apiErr
	}

	var payload generateResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 ||
		payload.Candidates[0].Content.Parts[0].Text == nil {
		reason := ""
		if len(payload.Candidates) > 0 {
			reason = payload.Candidates[0].FinishReason
		}
		return "", fmt.Errorf("%w: no candidate text (finish reason %q)", ErrUnexpectedResponse, reason)
	}

	c.logger.Info("Summary generated.",
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", payload.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", payload.UsageMetadata.CandidatesTokenCount),
	)
	return *payload.Candidates[0].Content.Parts[0].Text, nil
}
