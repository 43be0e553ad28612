// Package ner calls per-language NER model sidecars over HTTP. Each
// supported language maps to one sidecar base URL; picking the right model
// for a language tag is this adapter's concern, not the pipeline's.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"anonymizer-service/internal/anonymize"
)

// Client calls a sidecar's /analyze endpoint. Safe for concurrent use.
type Client struct {
	models map[string]string // language tag -> base URL
	http   *http.Client
}

// New creates a Client from a language -> base URL map,
// e.g. {"el": "http://ner-el:8001"}. Request deadlines come from the
// caller's context, not a fixed client timeout.
func New(models map[string]string) *Client {
	return &Client{
		models: models,
		http:   &http.Client{},
	}
}

// Languages returns the language tags with a configured model, sorted.
func (c *Client) Languages() []string {
	out := make([]string, 0, len(c.models))
	for lang := range c.models {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type analyzeResponse struct {
	Entities []modelEntity `json:"entities"`
}

type modelEntity struct {
	EntityType string `json:"entity_type"`
	Value      string `json:"value"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// Detect sends text to the sidecar for language and returns its candidates.
// A language without a configured model is an error here, never a fallback
// to another language's model.
func (c *Client) Detect(ctx context.Context, text, language string) ([]anonymize.RawCandidate, error) {
	base, ok := c.models[language]
	if !ok {
		return nil, fmt.Errorf("ner: no model for language %q", language)
	}

	body, err := json.Marshal(analyzeRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("ner: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ner: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ner: model %q: %w", language, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ner: model %q: unexpected status %d", language, resp.StatusCode)
	}

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ner: decode: %w", err)
	}

	candidates := make([]anonymize.RawCandidate, 0, len(result.Entities))
	for _, e := range result.Entities {
		candidates = append(candidates, anonymize.RawCandidate{
			EntityType: e.EntityType,
			Value:      e.Value,
			Start:      e.Start,
			End:        e.End,
		})
	}
	return candidates, nil
}
