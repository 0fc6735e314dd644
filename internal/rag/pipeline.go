// Package rag implements the retrieve-rerank-synthesize-assess pipeline
// that turns a free-text question into a grounded answer with citations
// back to the source documentation.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/embedding"
	"github.com/turtacn/docintel/internal/rerank"
	"github.com/turtacn/docintel/internal/vectorstore"
	"github.com/turtacn/docintel/pkg/errors"
)

// DefaultTopK bounds how many hits are retrieved and reranked absent an
// explicit caller-supplied k.
const DefaultTopK = 6

// ContextWindow is how many of the top reranked hits are assembled into the
// generation prompt's context blocks.
const ContextWindow = 5

// FallbackCitationCount is how many citations the extractive fallback
// answer is composed from when no generation provider is configured or the
// provider call fails.
const FallbackCitationCount = 3

// DefaultMaxAnswerTokens bounds the synthesized answer's length.
const DefaultMaxAnswerTokens = 1024

// groundingCitationMarkerBonus and groundingCitationHeadingBonus implement
// the fixed grounding-score formula: a flat bonus when the answer carries a
// recognizable citation marker, plus a per-citation bonus for every cited
// heading that actually appears (case-insensitively) in the answer text.
const (
	groundingCitationMarkerBonus   = 0.3
	groundingCitationHeadingBonus  = 0.2
	groundingInsufficientThreshold = 0.3
)

const noResultsAnswer = "No relevant documentation found for this query."

// Filters restricts vector search to chunks matching every non-empty
// predicate; every field is a persisted scalar on the vector store schema
// and participates in ToExpr's equality filter.
type Filters struct {
	Release string
	DocType string
	Service string
	File    string
}

// ToExpr builds the conjunctive filter expression understood by the
// configured Store, joining only the predicates that are set.
func (f Filters) ToExpr() string {
	var clauses []string
	if f.Release != "" {
		clauses = append(clauses, fmt.Sprintf("release == %q", f.Release))
	}
	if f.DocType != "" {
		clauses = append(clauses, fmt.Sprintf("doc_type == %q", f.DocType))
	}
	if f.Service != "" {
		clauses = append(clauses, fmt.Sprintf("service == %q", f.Service))
	}
	if f.File != "" {
		clauses = append(clauses, fmt.Sprintf("file == %q", f.File))
	}
	return strings.Join(clauses, " && ")
}

// Generator synthesizes an answer from the reranked evidence's assembled
// context. Implementations may call an external generation provider; a
// provider failure must be handled by the caller falling back to
// FallbackAnswer, not by Generator itself.
type Generator interface {
	Generate(ctx context.Context, query, promptContext string, maxTokens int) (string, error)
}

// Query describes a single grounded-answer request.
type Query struct {
	Text      string
	Filters   Filters
	K         int
	MaxTokens int
}

// Pipeline wires together embedding, vector search, reranking, and answer
// synthesis behind a single Query operation.
type Pipeline struct {
	Embedder  embedding.Embedder
	Vectors   vectorstore.Store
	Reranker  rerank.Reranker
	Generator Generator // optional; nil means always use the extractive fallback
	TopK      int
}

// New constructs a Pipeline with the package default TopK when topK is not
// positive. Generator may be nil, in which case every answer is produced by
// the extractive fallback.
func New(emb embedding.Embedder, store vectorstore.Store, rr rerank.Reranker, gen Generator, topK int) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{Embedder: emb, Vectors: store, Reranker: rr, Generator: gen, TopK: topK}
}

// Run executes the eight-step retrieve-rerank-synthesize-assess pipeline.
func (p *Pipeline) Run(ctx context.Context, q Query) (docmodel.RAGResponse, error) {
	normalized := strings.TrimSpace(q.Text)
	if normalized == "" {
		return docmodel.RAGResponse{}, errors.InvalidParam("rag: query must not be empty")
	}

	topK := q.K
	if topK <= 0 {
		topK = p.TopK
	}
	maxTokens := q.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxAnswerTokens
	}

	vecs, err := p.Embedder.Embed(ctx, []string{normalized})
	if err != nil {
		return docmodel.RAGResponse{}, err
	}

	matches, err := p.Vectors.Search(ctx, vecs[0], topK, q.Filters.ToExpr())
	if err != nil {
		return docmodel.RAGResponse{}, err
	}
	if len(matches) == 0 {
		return docmodel.RAGResponse{
			Answer:               noResultsAnswer,
			Citations:            nil,
			GroundingScore:       0,
			InsufficientEvidence: true,
			MissingTopics:        []string{normalized},
		}, nil
	}

	hits := matchesToHits(matches)

	reranked, err := p.Reranker.Rerank(ctx, normalized, hits, topK)
	if err != nil {
		return docmodel.RAGResponse{}, err
	}

	citations := buildCitations(reranked)

	answer, err := p.synthesize(ctx, normalized, reranked, citations, maxTokens)
	if err != nil {
		return docmodel.RAGResponse{}, err
	}

	groundingScore := computeGroundingScore(answer, citations)
	resp := docmodel.RAGResponse{
		Answer:               answer,
		Citations:            citations,
		GroundingScore:       groundingScore,
		InsufficientEvidence: groundingScore < groundingInsufficientThreshold,
	}
	if resp.InsufficientEvidence && len(citations) > 0 {
		resp.MissingTopics = []string{"Additional context needed"}
	}
	return resp, nil
}

// matchesToHits wraps each vector Match in a SearchHit/Chunk pair. Matches
// carry every scalar field persisted alongside the vector; totalChunks is
// not persisted in the vector store and comes back zero, matching the
// reference's "totalChunks is not persisted and is returned as 0" contract.
func matchesToHits(matches []vectorstore.Match) []docmodel.SearchHit {
	hits := make([]docmodel.SearchHit, len(matches))
	for i, m := range matches {
		hits[i] = docmodel.SearchHit{
			Chunk: &docmodel.Chunk{
				ID:         m.ChunkID,
				Content:    m.Content,
				File:       m.File,
				Release:    m.Release,
				DocType:    m.DocType,
				Service:    m.Service,
				Heading:    m.Heading,
				LineStart:  m.LineStart,
				LineEnd:    m.LineEnd,
				ChunkIndex: m.ChunkIndex,
				Tokens:     m.Tokens,
			},
			Score:    1 - m.Distance,
			Distance: m.Distance,
		}
	}
	return hits
}

// buildCitations converts reranked hits into Citations, snippet-bounded per
// the data model contract.
func buildCitations(reranked []docmodel.RerankedHit) []docmodel.Citation {
	citations := make([]docmodel.Citation, 0, len(reranked))
	for _, rh := range reranked {
		c := rh.Hit.Chunk
		if c == nil {
			continue
		}
		citations = append(citations, docmodel.Citation{
			File:      c.File,
			Heading:   c.Heading,
			LineStart: c.LineStart,
			LineEnd:   c.LineEnd,
			Snippet:   truncate(c.Content, docmodel.MaxSnippetLen),
			Relevance: rh.RerankScore,
		})
	}
	return citations
}

// synthesize calls the configured Generator against a context window built
// from the top ContextWindow reranked hits; it falls back to an extractive
// answer composed from the first FallbackCitationCount citations when no
// generator is configured or the generator call fails.
func (p *Pipeline) synthesize(ctx context.Context, query string, reranked []docmodel.RerankedHit, citations []docmodel.Citation, maxTokens int) (string, error) {
	if p.Generator != nil {
		promptContext := buildContext(reranked)
		answer, err := p.Generator.Generate(ctx, query, promptContext, maxTokens)
		if err == nil {
			return answer, nil
		}
	}
	return fallbackAnswer(citations), nil
}

// buildContext formats the top ContextWindow reranked hits as labelled
// blocks suitable for a generation prompt.
func buildContext(reranked []docmodel.RerankedHit) string {
	window := reranked
	if len(window) > ContextWindow {
		window = window[:ContextWindow]
	}

	var b strings.Builder
	for i, rh := range window {
		c := rh.Hit.Chunk
		if c == nil {
			continue
		}
		fmt.Fprintf(&b, "[Citation %d: %s, lines %d-%d]\nHeading: %s\n", i+1, c.File, c.LineStart, c.LineEnd, c.Heading)
		if c.Release != "" {
			fmt.Fprintf(&b, "Release: %s\n", c.Release)
		}
		fmt.Fprintf(&b, "Content:\n%s\n\n---\n\n", c.Content)
	}
	return b.String()
}

// fallbackAnswer composes an answer from the first FallbackCitationCount
// citations: heading, source line range, and snippet.
func fallbackAnswer(citations []docmodel.Citation) string {
	n := len(citations)
	if n > FallbackCitationCount {
		n = FallbackCitationCount
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		c := citations[i]
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] (%s, lines %d-%d): %s", c.Heading, c.File, c.LineStart, c.LineEnd, c.Snippet)
	}
	return b.String()
}

// computeGroundingScore rewards answers that carry an identifiable citation
// marker at all, then adds a per-citation bonus for every cited heading
// that actually shows up in the answer text, case-insensitively. The
// result is clamped to [0, 1].
func computeGroundingScore(answer string, citations []docmodel.Citation) float64 {
	if answer == "" {
		return 0
	}

	var score float64
	if strings.Contains(answer, "[") || strings.Contains(strings.ToLower(answer), "lines") {
		score += groundingCitationMarkerBonus
	}

	lowerAnswer := strings.ToLower(answer)
	for _, c := range citations {
		if c.Heading != "" && strings.Contains(lowerAnswer, strings.ToLower(c.Heading)) {
			score += groundingCitationHeadingBonus
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func truncate(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen]
}
