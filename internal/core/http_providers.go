package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/docintel/internal/embedding"
	"github.com/turtacn/docintel/internal/rerank"
	"github.com/turtacn/docintel/pkg/errors"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func doJSON(ctx context.Context, cfg struct{ baseURL, apiKey string }, path string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "core: failed to encode provider request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "core: failed to build provider request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.ProviderError("core: provider call failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrap(err, errors.CodeIOError, "core: failed to read provider response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.ProviderError(fmt.Sprintf("core: provider returned status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "core: failed to decode provider response")
	}
	return nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// embeddingHTTPCaller is the production caller wired into
// embedding.NewProviderEmbedder: a plain JSON POST of the batch to embed.
func embeddingHTTPCaller(ctx context.Context, cfg embedding.ProviderConfig, texts []string) ([][]float32, error) {
	var out embeddingResponse
	err := doJSON(ctx, struct{ baseURL, apiKey string }{cfg.BaseURL, cfg.APIKey}, "/v1/embeddings",
		embeddingRequest{Model: cfg.Model, Input: texts}, &out)
	if err != nil {
		return nil, err
	}
	return out.Vectors, nil
}

type rerankRequest struct {
	Model      string   `json:"model"`
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// rerankHTTPCaller is the production caller wired into
// rerank.NewProviderReranker: a plain JSON POST of the query and candidate
// snippets, returning one score per candidate in the same order.
func rerankHTTPCaller(ctx context.Context, cfg rerank.ProviderConfig, query string, candidates []string) ([]float64, error) {
	var out rerankResponse
	err := doJSON(ctx, struct{ baseURL, apiKey string }{cfg.BaseURL, cfg.APIKey}, "/v1/rerank",
		rerankRequest{Model: cfg.Model, Query: query, Candidates: candidates}, &out)
	if err != nil {
		return nil, err
	}
	return out.Scores, nil
}
