// Package generation provides HTTPGenerator, an HTTP-backed rag.Generator
// that calls a configured generation endpoint. The extractive fallback
// answer used when no generator is configured is built by the rag pipeline,
// not by this package.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/docintel/pkg/errors"
)

// HTTPConfig configures an HTTP-backed generation provider.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// HTTPGenerator calls an external HTTP generation endpoint and implements
// rag.Generator. A provider failure is returned to the caller rather than
// silently swallowed; the rag pipeline is responsible for falling back to
// its extractive answer when Generate errors.
type HTTPGenerator struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPGenerator validates cfg and constructs an HTTPGenerator backed by a
// plain net/http client with the configured timeout.
func NewHTTPGenerator(cfg HTTPConfig) (*HTTPGenerator, error) {
	if cfg.BaseURL == "" {
		return nil, errors.ConfigError("generation: provider base_url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.ConfigError("generation: provider api_key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPGenerator{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

type generateRequest struct {
	Model       string  `json:"model"`
	Query       string  `json:"query"`
	Context     string  `json:"context"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Answer string `json:"answer"`
}

// Generate implements rag.Generator by POSTing the query and assembled
// context to the configured endpoint and returning the synthesized answer.
func (g *HTTPGenerator) Generate(ctx context.Context, query, promptContext string, maxTokens int) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:       g.cfg.Model,
		Query:       query,
		Context:     promptContext,
		MaxTokens:   maxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "generation: failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/generate", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "generation: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.ProviderError("generation: provider call failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeIOError, "generation: failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.ProviderError(fmt.Sprintf("generation: provider returned status %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "generation: failed to decode response")
	}
	if out.Answer == "" {
		return "", errors.ProviderError("generation: provider returned an empty answer")
	}
	return out.Answer, nil
}
