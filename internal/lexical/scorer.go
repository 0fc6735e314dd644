// Package lexical implements keyword-based relevance scoring over Chunks:
// an in-memory heuristic scorer for small/medium corpora, and an
// OpenSearch-backed implementation with the same contract for corpora too
// large to rescan on every query.
package lexical

import (
	"context"
	"sort"
	"strings"

	"github.com/turtacn/docintel/internal/domain/docmodel"
)

// Score weights, applied per matching query term unless noted otherwise.
const (
	ScoreExactHeadingMatch = 100.0
	ScoreExactContentMatch = 50.0
	ScoreTermInHeading     = 10.0
	ScoreTermInContent     = 5.0
	ScoreDomainKeywordOnce = 15.0
)

// domainKeywords are terms that, if present anywhere in the query and the
// chunk, add a one-time relevance bonus regardless of how many of them
// match — they signal a document is about the right subsystem at all,
// not how many times it says so.
var domainKeywords = map[string]bool{
	"architecture":  true,
	"service":       true,
	"config":        true,
	"configuration": true,
	"migration":     true,
	"contract":      true,
	"dependency":    true,
	"api":           true,
}

// Filters restricts Score to a subset of candidate chunks before scoring:
// release is an exact match, service a case-insensitive substring presence
// in heading or content, and docTypes a set-membership test. Every
// non-empty/non-nil field narrows the candidate set further.
type Filters struct {
	Release  string
	Service  string
	DocTypes []string
}

// matches reports whether c passes every predicate set on f.
func (f Filters) matches(c *docmodel.Chunk) bool {
	if f.Release != "" && c.Release != f.Release {
		return false
	}
	if f.Service != "" {
		needle := strings.ToLower(f.Service)
		if !strings.Contains(strings.ToLower(c.Heading), needle) && !strings.Contains(strings.ToLower(c.Content), needle) {
			return false
		}
	}
	if len(f.DocTypes) > 0 {
		found := false
		for _, dt := range f.DocTypes {
			if dt == c.DocType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// filterChunks returns the subset of chunks passing f, preserving order.
func filterChunks(chunks []docmodel.Chunk, f Filters) []docmodel.Chunk {
	if f.Release == "" && f.Service == "" && len(f.DocTypes) == 0 {
		return chunks
	}
	out := make([]docmodel.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if f.matches(&c) {
			out = append(out, c)
		}
	}
	return out
}

// Scorer ranks Chunks against a free-text query.
type Scorer interface {
	Score(ctx context.Context, query string, chunks []docmodel.Chunk, filters Filters, topK int) ([]docmodel.SearchHit, error)
}

// HeuristicScorer scores every candidate chunk in memory using the fixed
// weight table: an exact phrase match in the heading or content earns a
// flat bonus, and each individual query term present earns a smaller
// per-term bonus, plus a one-time domain-keyword bonus.
type HeuristicScorer struct{}

// NewHeuristicScorer constructs an in-memory Scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score implements Scorer. Ties are broken by source order: a stable sort
// over the filtered candidate list, which already preserves the order
// chunks arrived in.
func (s *HeuristicScorer) Score(_ context.Context, query string, chunks []docmodel.Chunk, filters Filters, topK int) ([]docmodel.SearchHit, error) {
	candidates := filterChunks(chunks, filters)

	terms := tokenize(query)
	queryLower := strings.ToLower(strings.TrimSpace(query))

	hits := make([]docmodel.SearchHit, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		score, reasons := scoreChunk(queryLower, terms, c)
		if score <= 0 {
			continue
		}
		hits = append(hits, docmodel.SearchHit{
			Chunk:        c,
			Score:        score,
			MatchReasons: reasons,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func scoreChunk(queryLower string, terms []string, c *docmodel.Chunk) (float64, []string) {
	headingLower := strings.ToLower(c.Heading)
	contentLower := strings.ToLower(c.Content)

	var score float64
	var reasons []string

	if queryLower != "" && strings.Contains(headingLower, queryLower) {
		score += ScoreExactHeadingMatch
		reasons = append(reasons, "exact_heading_match")
	}
	if queryLower != "" && strings.Contains(contentLower, queryLower) {
		score += ScoreExactContentMatch
		reasons = append(reasons, "exact_content_match")
	}

	termHeadingHits, termContentHits := 0, 0
	for _, term := range terms {
		if strings.Contains(headingLower, term) {
			score += ScoreTermInHeading
			termHeadingHits++
		}
		if strings.Contains(contentLower, term) {
			score += ScoreTermInContent
			termContentHits++
		}
	}
	if termHeadingHits > 0 {
		reasons = append(reasons, "term_in_heading")
	}
	if termContentHits > 0 {
		reasons = append(reasons, "term_in_content")
	}

	domainBonusApplied := false
	for _, term := range terms {
		if domainKeywords[term] && (strings.Contains(headingLower, term) || strings.Contains(contentLower, term)) {
			domainBonusApplied = true
			break
		}
	}
	if domainBonusApplied {
		score += ScoreDomainKeywordOnce
		reasons = append(reasons, "domain_keyword")
	}

	return score, reasons
}

// tokenize lowercases and splits on non-alphanumeric runs, dropping empty
// tokens.
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
