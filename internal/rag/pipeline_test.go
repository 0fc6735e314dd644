package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/docintel/internal/chunker"
	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/embedding"
	"github.com/turtacn/docintel/internal/rerank"
	"github.com/turtacn/docintel/internal/vectorstore"
)

type stubGenerator struct {
	answer string
	err    error
}

func (s stubGenerator) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	return s.answer, s.err
}

func seedStore(t *testing.T, store vectorstore.Store, emb embedding.Embedder, content, heading, file string) {
	t.Helper()
	vecs, err := emb.Embed(context.Background(), []string{content})
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), []vectorstore.Record{
		{
			ChunkID:   docmodel.NewChunkID(file, 1, 10, 0),
			Vector:    vecs[0],
			File:      file,
			Heading:   heading,
			Release:   "R1",
			Content:   content,
			LineStart: 1,
			LineEnd:   10,
			Tokens:    chunker.EstimateTokens(content),
		},
	}))
}

func TestPipeline_Run_EmptyQueryIsInvalidParam(t *testing.T) {
	p := New(embedding.NewHashEmbedder(16), vectorstore.NewMemoryStore(), rerank.NewHeuristicReranker(), nil, 0)
	_, err := p.Run(context.Background(), Query{Text: "   "})
	assert.Error(t, err)
}

func TestPipeline_Run_NoMatchesReturnsInsufficientEvidence(t *testing.T) {
	p := New(embedding.NewHashEmbedder(16), vectorstore.NewMemoryStore(), rerank.NewHeuristicReranker(), nil, 0)
	resp, err := p.Run(context.Background(), Query{Text: "order service"})
	require.NoError(t, err)
	assert.Equal(t, noResultsAnswer, resp.Answer)
	assert.True(t, resp.InsufficientEvidence)
	assert.Equal(t, 0.0, resp.GroundingScore)
	assert.Equal(t, []string{"order service"}, resp.MissingTopics)
}

func TestPipeline_Run_FallbackAnswerWhenNoGeneratorConfigured(t *testing.T) {
	emb := embedding.NewHashEmbedder(16)
	store := vectorstore.NewMemoryStore()
	seedStore(t, store, emb, "order service retries", "Order Service", "ARCHITECTURE.md")

	p := New(emb, store, rerank.NewHeuristicReranker(), nil, 0)
	resp, err := p.Run(context.Background(), Query{Text: "order service retries"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Citations)
	assert.Contains(t, resp.Answer, "Order Service")
	assert.Contains(t, resp.Answer, "ARCHITECTURE.md")

	c := resp.Citations[0]
	assert.Equal(t, 1, c.LineStart)
	assert.Equal(t, 10, c.LineEnd)
	assert.Equal(t, "order service retries", c.Snippet)
}

func TestPipeline_Run_UsesGeneratorAnswerWhenItSucceeds(t *testing.T) {
	emb := embedding.NewHashEmbedder(16)
	store := vectorstore.NewMemoryStore()
	seedStore(t, store, emb, "order service retries", "Order Service", "ARCHITECTURE.md")

	gen := stubGenerator{answer: "[Order Service] explains retries, see lines 1-10"}
	p := New(emb, store, rerank.NewHeuristicReranker(), gen, 0)
	resp, err := p.Run(context.Background(), Query{Text: "order service retries"})
	require.NoError(t, err)
	assert.Equal(t, gen.answer, resp.Answer)
	assert.False(t, resp.InsufficientEvidence)
}

func TestPipeline_Run_FallsBackWhenGeneratorErrors(t *testing.T) {
	emb := embedding.NewHashEmbedder(16)
	store := vectorstore.NewMemoryStore()
	seedStore(t, store, emb, "order service retries", "Order Service", "ARCHITECTURE.md")

	gen := stubGenerator{err: errors.New("provider unavailable")}
	p := New(emb, store, rerank.NewHeuristicReranker(), gen, 0)
	resp, err := p.Run(context.Background(), Query{Text: "order service retries"})
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "Order Service")
}

func TestFilters_ToExpr_JoinsOnlyNonEmptyPredicates(t *testing.T) {
	f := Filters{Release: "R1", DocType: "ARCHITECTURE"}
	assert.Equal(t, `release == "R1" && doc_type == "ARCHITECTURE"`, f.ToExpr())
}

func TestFilters_ToExpr_EmptyWhenNoPredicatesSet(t *testing.T) {
	assert.Equal(t, "", Filters{}.ToExpr())
}

func TestFilters_ToExpr_IncludesServiceClause(t *testing.T) {
	f := Filters{Service: "ingest-service"}
	assert.Equal(t, `service == "ingest-service"`, f.ToExpr())
}

func TestComputeGroundingScore_EmptyAnswerIsZero(t *testing.T) {
	assert.Equal(t, 0.0, computeGroundingScore("", nil))
}

func TestComputeGroundingScore_MarkerOnlyGivesPartialCredit(t *testing.T) {
	score := computeGroundingScore("According to [Order Service] this is true", nil)
	assert.InDelta(t, 0.3, score, 1e-9)
}

func TestComputeGroundingScore_CitedHeadingAddsBonusPerCitationCaseInsensitive(t *testing.T) {
	citations := []docmodel.Citation{{Heading: "Order Service"}, {Heading: "Payment Service"}}
	answer := "[order service] and [PAYMENT SERVICE] both describe retries"
	score := computeGroundingScore(answer, citations)
	assert.InDelta(t, 0.7, score, 1e-9)
}

func TestComputeGroundingScore_ClampsAtOne(t *testing.T) {
	citations := make([]docmodel.Citation, 10)
	for i := range citations {
		citations[i] = docmodel.Citation{Heading: "Order Service"}
	}
	score := computeGroundingScore("[Order Service] lines 1-10", citations)
	assert.Equal(t, 1.0, score)
}

func TestComputeGroundingScore_BelowThresholdMeansInsufficientEvidence(t *testing.T) {
	score := computeGroundingScore("plain answer with no markers", nil)
	assert.Less(t, score, groundingInsufficientThreshold)
}

func TestFallbackAnswer_LimitsToFallbackCitationCount(t *testing.T) {
	citations := []docmodel.Citation{
		{Heading: "A", File: "a.md", Snippet: "one"},
		{Heading: "B", File: "b.md", Snippet: "two"},
		{Heading: "C", File: "c.md", Snippet: "three"},
		{Heading: "D", File: "d.md", Snippet: "four"},
	}
	answer := fallbackAnswer(citations)
	assert.Contains(t, answer, "A")
	assert.Contains(t, answer, "C")
	assert.NotContains(t, answer, "[D]")
}

func TestBuildContext_LimitsToContextWindow(t *testing.T) {
	reranked := make([]docmodel.RerankedHit, ContextWindow+2)
	for i := range reranked {
		reranked[i] = docmodel.RerankedHit{Hit: docmodel.SearchHit{Chunk: &docmodel.Chunk{
			File: "f.md", Heading: "H", Content: "c",
		}}}
	}
	ctxStr := buildContext(reranked)
	assert.Equal(t, ContextWindow, countOccurrences(ctxStr, "Heading: H"))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
