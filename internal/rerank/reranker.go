// Package rerank reorders retrieval candidates by a query-aware relevance
// score, independent of whatever distance metric produced the original
// ranking. A heuristic scorer serves as a fallback; a cross-encoder
// provider path implements the same interface for real reranking models.
package rerank

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/pkg/errors"
)

// DefaultTopK bounds how many hits survive reranking absent an explicit
// caller-supplied topK.
const DefaultTopK = 6

// Reranker reorders a list of SearchHits by relevance to query, returning at
// most topK of them.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []docmodel.SearchHit, topK int) ([]docmodel.RerankedHit, error)
}

// HeuristicReranker scores each hit by a fixed formula: a flat bonus for an
// exact phrase match, plus the fraction of query terms present in the hit's
// content, scaled down by the log of the content's length so longer chunks
// don't win purely by containing more terms.
type HeuristicReranker struct{}

// NewHeuristicReranker constructs a HeuristicReranker.
func NewHeuristicReranker() *HeuristicReranker {
	return &HeuristicReranker{}
}

// Rerank implements Reranker.
func (r *HeuristicReranker) Rerank(_ context.Context, query string, hits []docmodel.SearchHit, topK int) ([]docmodel.RerankedHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	terms := tokenize(query)
	queryLower := strings.ToLower(strings.TrimSpace(query))

	out := make([]docmodel.RerankedHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, docmodel.RerankedHit{Hit: h, RerankScore: score(queryLower, terms, h)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].RerankScore > out[j].RerankScore })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func score(queryLower string, terms []string, hit docmodel.SearchHit) float64 {
	content := hitContent(hit)
	contentLower := strings.ToLower(content)

	var base float64
	if queryLower != "" && strings.Contains(contentLower, queryLower) {
		base = 10
	}

	present := 0
	for _, t := range terms {
		if strings.Contains(contentLower, t) {
			present++
		}
	}
	var termFraction float64
	if len(terms) > 0 {
		termFraction = float64(present) / float64(len(terms))
	}

	denom := math.Log(float64(len(content)+1)) / 10
	if denom <= 0 {
		denom = 1
	}

	return base + termFraction/denom
}

func hitContent(hit docmodel.SearchHit) string {
	if hit.Chunk != nil {
		return hit.Chunk.Content
	}
	if hit.Section != nil {
		return hit.Section.Content
	}
	return ""
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0:0]
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// ProviderConfig configures an HTTP-backed cross-encoder reranker.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	TopK    int
}

// ProviderReranker delegates scoring to an external cross-encoder endpoint.
type ProviderReranker struct {
	cfg    ProviderConfig
	caller func(ctx context.Context, cfg ProviderConfig, query string, candidates []string) ([]float64, error)
}

// NewProviderReranker validates cfg and constructs a ProviderReranker.
func NewProviderReranker(cfg ProviderConfig, caller func(ctx context.Context, cfg ProviderConfig, query string, candidates []string) ([]float64, error)) (*ProviderReranker, error) {
	if cfg.BaseURL == "" {
		return nil, errors.ConfigError("rerank: provider base_url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.ConfigError("rerank: provider api_key is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &ProviderReranker{cfg: cfg, caller: caller}, nil
}

// Rerank implements Reranker by sending every hit's content to the
// configured cross-encoder and sorting by its returned scores.
func (p *ProviderReranker) Rerank(ctx context.Context, query string, hits []docmodel.SearchHit, topK int) ([]docmodel.RerankedHit, error) {
	if topK <= 0 {
		topK = p.cfg.TopK
	}
	candidates := make([]string, len(hits))
	for i, h := range hits {
		candidates[i] = hitContent(h)
	}

	scores, err := p.caller(ctx, p.cfg, query, candidates)
	if err != nil {
		return nil, errors.ProviderError("rerank: provider call failed").WithCause(err)
	}
	if len(scores) != len(hits) {
		return nil, errors.ProviderError("rerank: provider returned a mismatched score count")
	}

	out := make([]docmodel.RerankedHit, len(hits))
	for i, h := range hits {
		out[i] = docmodel.RerankedHit{Hit: h, RerankScore: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RerankScore > out[j].RerankScore })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
