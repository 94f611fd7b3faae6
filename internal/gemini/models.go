package gemini

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"
)

// ListModels returns the models the key may use for content generation,
// without the "models/" prefix, sorted and unique.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.baseURL + "/",
			APIVersion: "v1beta",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	var models []*genai.Model
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		models = append(models, m)
	}
	return GenerationModels(models), nil
}

// GenerationModels keeps the models that support generateContent.
func GenerationModels(models []*genai.Model) []string {
	var names []string
	for _, m := range models {
		if m == nil || !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		names = append(names, strings.TrimPrefix(m.Name, "models/"))
	}
	slices.Sort(names)
	return slices.Compact(names)
}
