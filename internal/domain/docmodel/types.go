// Package docmodel defines the core data types shared across the parser,
// index, chunker, retrieval, and fact-analysis subsystems: Section, Chunk,
// SearchHit, Citation, RAGResponse, Fact, and UpdateSuggestion. No business
// logic lives here beyond trivial derived accessors.
package docmodel

import "fmt"

// Section is a Markdown subtree rooted at one ATX heading, up to but not
// including the next heading. Sections are immutable once produced by the
// parser; callers must not mutate a Section returned from a DocIndex.
type Section struct {
	File      string `json:"file"`
	Release   string `json:"release"`
	DocType   string `json:"doc_type"`
	Heading   string `json:"heading"`
	Content   string `json:"content"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
}

// Chunk is a bounded-size fragment of a Section, prefixed with its heading,
// suitable for embedding and vector storage.
type Chunk struct {
	ID           string  `json:"id"`
	Content      string  `json:"content"`
	File         string  `json:"file"`
	Release      string  `json:"release"`
	DocType      string  `json:"doc_type"`
	Service      string  `json:"service,omitempty"`
	Heading      string  `json:"heading"`
	LineStart    int     `json:"line_start"`
	LineEnd      int     `json:"line_end"`
	ChunkIndex   int     `json:"chunk_index"`
	TotalChunks  int     `json:"total_chunks"`
	Tokens       int     `json:"tokens"`
}

// NewChunkID formats the canonical chunk identifier described by the data
// model: "<file>:<lineStart>-<lineEnd>:<chunkIndex>".
func NewChunkID(file string, lineStart, lineEnd, chunkIndex int) string {
	return fmt.Sprintf("%s:%d-%d:%d", file, lineStart, lineEnd, chunkIndex)
}

// SearchHit is a scored match produced by the lexical scorer or the vector
// store adapter. Exactly one of Chunk or Section is populated depending on
// which retrieval path produced it.
type SearchHit struct {
	Chunk        *Chunk   `json:"chunk,omitempty"`
	Section      *Section `json:"section,omitempty"`
	Score        float64  `json:"score"`
	Distance     float64  `json:"distance,omitempty"`
	MatchReasons []string `json:"match_reasons,omitempty"`
}

// RerankedHit pairs a SearchHit with the score assigned by the reranking
// stage, which may differ from the original retrieval score.
type RerankedHit struct {
	Hit         SearchHit `json:"hit"`
	RerankScore float64   `json:"rerank_score"`
}

// Citation attributes a claim in a synthesized answer back to its source
// section, bounded to a short snippet for display.
type Citation struct {
	File      string  `json:"file"`
	Heading   string  `json:"heading"`
	LineStart int     `json:"line_start"`
	LineEnd   int     `json:"line_end"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// MaxSnippetLen bounds Citation.Snippet per the data model contract.
const MaxSnippetLen = 300

// RAGResponse is the result of the retrieve-rerank-synthesize-assess
// pipeline.
type RAGResponse struct {
	Answer               string     `json:"answer"`
	Citations            []Citation `json:"citations"`
	GroundingScore       float64    `json:"grounding_score"`
	InsufficientEvidence bool       `json:"insufficient_evidence"`
	MissingTopics        []string   `json:"missing_topics,omitempty"`
}

// Fact is a (subject, predicate, object) triple extracted from section text
// or a proposed diff payload.
type Fact struct {
	Subject        string `json:"subject"`
	Predicate      string `json:"predicate"`
	Object         string `json:"object"`
	File           string `json:"file"`
	Heading        string `json:"heading,omitempty"`
	LineStart      int    `json:"line_start,omitempty"`
	LineEnd        int    `json:"line_end,omitempty"`
	NormalizedKey  string `json:"normalized_key"`
	CanonicalObject string `json:"canonical_object"`
	Hash           string `json:"hash"`
}

// FactDuplicate pairs a newly-seen Fact with a previously-indexed Fact that
// agrees on subject, predicate, and canonical object.
type FactDuplicate struct {
	Existing  Fact `json:"existing"`
	Duplicate Fact `json:"duplicate"`
}

// FactConflict pairs a newly-seen Fact with a previously-indexed Fact that
// agrees on (subject, predicate) but disagrees on canonical object.
type FactConflict struct {
	Existing    Fact   `json:"existing"`
	Conflicting Fact   `json:"conflicting"`
	Reason      string `json:"reason"`
}

// UpdateSuggestion is the proposed outcome of an update intent: either a new
// file or an append to an existing one, along with the fact-level preflight
// findings.
type UpdateSuggestion struct {
	Action      string         `json:"action"` // "update" | "create"
	TargetPath  string         `json:"target_path"`
	Diff        string         `json:"diff"`
	Rationale   string         `json:"rationale"`
	Citations   []Citation     `json:"citations,omitempty"`
	Duplicates  []FactDuplicate `json:"duplicates,omitempty"`
	Conflicts   []FactConflict `json:"conflicts,omitempty"`
	Blocked     bool           `json:"blocked"`
}

// UpdateResult is the outcome of applying an UpdateSuggestion.
type UpdateResult struct {
	Status     string `json:"status"` // "success" | "error"
	Path       string `json:"path"`
	Reindexed  bool   `json:"reindexed"`
	Error      string `json:"error,omitempty"`
}
