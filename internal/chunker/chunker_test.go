package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/docintel/internal/domain/docmodel"
)

func TestEstimateTokens_CeilingDivisionByFour(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestChunk_EmptyContentYieldsNoChunks(t *testing.T) {
	section := docmodel.Section{File: "R1-NOTES.md", Heading: "Empty", Content: ""}
	chunks := Chunk(section, nil)
	assert.Empty(t, chunks)
}

func TestChunk_SmallSectionProducesOneChunk(t *testing.T) {
	section := docmodel.Section{
		File:      "R1-NOTES.md",
		Heading:   "Overview",
		Content:   "short body text",
		LineStart: 1,
		LineEnd:   2,
	}
	chunks := Chunk(section, &Config{MaxTokens: 512, OverlapTokens: 0})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[0].TotalChunks)
	assert.Contains(t, chunks[0].Content, "short body text")
}

func TestChunk_LargeSectionSplitsIntoMultipleChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("this is a line of filler content that adds up over time\n")
	}
	section := docmodel.Section{
		File:      "R1-NOTES.md",
		Heading:   "Large",
		Content:   b.String(),
		LineStart: 1,
	}
	chunks := Chunk(section, &Config{MaxTokens: 64, OverlapTokens: 0})
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, len(chunks), c.TotalChunks)
	}
}

func TestChunk_ChunkIDFormat(t *testing.T) {
	section := docmodel.Section{File: "R1-NOTES.md", Heading: "H", Content: "body", LineStart: 5, LineEnd: 6}
	chunks := Chunk(section, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, docmodel.NewChunkID("R1-NOTES.md", chunks[0].LineStart, chunks[0].LineEnd, 0), chunks[0].ID)
}

func TestChunk_FencedCodeBlockNeverSplitAcrossChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("filler line to push past the budget\n")
	}
	b.WriteString("```go\n")
	for i := 0; i < 40; i++ {
		b.WriteString("fmt.Println(\"line inside the fence\")\n")
	}
	b.WriteString("```\n")

	section := docmodel.Section{File: "R1-NOTES.md", Heading: "Code", Content: b.String(), LineStart: 1}
	chunks := Chunk(section, &Config{MaxTokens: 48, OverlapTokens: 0})
	require.NotEmpty(t, chunks)

	fenceChunks := 0
	for _, c := range chunks {
		if strings.Contains(c.Content, "```go") {
			fenceChunks++
			assert.Equal(t, 2, strings.Count(c.Content, "```"), "fence must be fully contained in one chunk")
		}
	}
	assert.Equal(t, 1, fenceChunks)
}

func TestChunk_OverlapBackfillAddsTrailingContextToLaterChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("distinct filler sentence number that keeps growing the body text\n")
	}
	section := docmodel.Section{File: "R1-NOTES.md", Heading: "Overlap", Content: b.String(), LineStart: 1}

	withOverlap := Chunk(section, &Config{MaxTokens: 64, OverlapTokens: 16})
	withoutOverlap := Chunk(section, &Config{MaxTokens: 64, OverlapTokens: 0})

	require.Greater(t, len(withOverlap), 1)
	require.Equal(t, len(withOverlap), len(withoutOverlap))
	assert.Greater(t, len(withOverlap[1].Content), len(withoutOverlap[1].Content))
}

func TestChunk_OverlapNeverCutsIntoMiddleOfFence(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("filler line to push past the budget\n")
	}
	b.WriteString("```go\n")
	for i := 0; i < 10; i++ {
		b.WriteString("fmt.Println(\"line inside the fence\")\n")
	}
	b.WriteString("```\n")
	for i := 0; i < 20; i++ {
		b.WriteString("more filler after the fence\n")
	}

	section := docmodel.Section{File: "R1-NOTES.md", Heading: "Code", Content: b.String(), LineStart: 1}
	chunks := Chunk(section, &Config{MaxTokens: 48, OverlapTokens: 24})
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		if strings.Contains(c.Content, "```go") {
			assert.Equal(t, 2, strings.Count(c.Content, "```"), "fence opener and closer must land in the same chunk")
		}
	}
}

func TestChunk_ConfigDefaultsAppliedWhenNil(t *testing.T) {
	section := docmodel.Section{File: "R1-NOTES.md", Heading: "H", Content: "body", LineStart: 1}
	chunks := Chunk(section, nil)
	require.Len(t, chunks, 1)
}
