package lexical

import (
	"context"

	"github.com/turtacn/docintel/internal/domain/docmodel"
)

// openSearchScorer adapts OpenSearchIndex to the Scorer interface. Since a
// caller always hands Score the current corpus's chunks rather than
// maintaining the index itself, each call re-upserts them before searching —
// correct for corpora refreshed at human timescales, not a high-QPS path.
type openSearchScorer struct {
	idx *OpenSearchIndex
}

// NewOpenSearchScorer wraps idx as a Scorer.
func NewOpenSearchScorer(idx *OpenSearchIndex) Scorer {
	return &openSearchScorer{idx: idx}
}

func (s *openSearchScorer) Score(ctx context.Context, query string, chunks []docmodel.Chunk, filters Filters, topK int) ([]docmodel.SearchHit, error) {
	candidates := filterChunks(chunks, filters)
	if err := s.idx.IndexChunks(ctx, candidates); err != nil {
		return nil, err
	}
	return s.idx.Search(ctx, query, topK)
}
