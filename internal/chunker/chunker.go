// Package chunker splits a Section into bounded-size Chunks suitable for
// embedding, using goldmark's AST to find fenced code block boundaries so a
// fence is never split across two chunks.
package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/turtacn/docintel/internal/domain/docmodel"
)

// Config bounds chunk assembly. validate replaces a nil Config, a
// non-positive MaxTokens and a negative OverlapTokens with the package
// defaults; an OverlapTokens of zero disables overlap.
type Config struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultMaxTokens and DefaultOverlapTokens mirror internal/config's
// corpus.max_chunk_tokens / corpus.chunk_overlap_tokens defaults so the
// chunker behaves sensibly when used outside the wired CoreContext (tests,
// CLI one-shot commands).
const (
	DefaultMaxTokens     = 512
	DefaultOverlapTokens = 64
)

func (c *Config) validate() Config {
	out := Config{MaxTokens: DefaultMaxTokens, OverlapTokens: DefaultOverlapTokens}
	if c != nil {
		if c.MaxTokens > 0 {
			out.MaxTokens = c.MaxTokens
		}
		if c.OverlapTokens >= 0 {
			out.OverlapTokens = c.OverlapTokens
		}
	}
	if out.OverlapTokens >= out.MaxTokens {
		out.OverlapTokens = out.MaxTokens / 4
	}
	return out
}

// EstimateTokens is the cheap character-based token estimate used
// throughout the pipeline: ceil(len(s)/4).
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}

// segment is a contiguous, never-split span of a Section's lines: either a
// single text line or the full extent of a fenced code block.
type segment struct {
	lines     []string
	lineStart int // 1-based, relative to the Section's own LineStart offset of 1
	lineEnd   int
}

// Chunk splits section.Content into Chunks. Line numbers on the returned
// Chunks are absolute within the original file, derived from
// section.LineStart.
func Chunk(section docmodel.Section, cfg *Config) []docmodel.Chunk {
	c := cfg.validate()

	lines := strings.Split(section.Content, "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}

	fenceRanges := fencedLineRanges(section.Content)
	segments := buildSegments(lines, fenceRanges)
	if len(segments) == 0 {
		return nil
	}

	raw := assembleGreedy(segments, c.MaxTokens)
	raw = backfillOverlap(raw, c.OverlapTokens)

	chunks := make([]docmodel.Chunk, 0, len(raw))
	for i, rc := range raw {
		absStart := section.LineStart + rc.lineStart - 1
		absEnd := section.LineStart + rc.lineEnd - 1
		content := strings.TrimSpace(headingPrefix(section.Heading) + joinSegments(rc.segments))
		chunks = append(chunks, docmodel.Chunk{
			ID:          docmodel.NewChunkID(section.File, absStart, absEnd, i),
			Content:     content,
			File:        section.File,
			Release:     section.Release,
			DocType:     section.DocType,
			Service:     serviceFor(section),
			Heading:     section.Heading,
			LineStart:   absStart,
			LineEnd:     absEnd,
			ChunkIndex:  i,
			TotalChunks: len(raw),
			Tokens:      EstimateTokens(content),
		})
	}
	return chunks
}

// serviceContractsDocType mirrors the convention core.ServiceDependencies
// uses: a SERVICE_CONTRACTS section's heading names the service it
// documents, so chunks carry that name as their Service scalar field for
// the vector store's equality filter.
const serviceContractsDocType = "SERVICE_CONTRACTS"

func serviceFor(section docmodel.Section) string {
	if section.DocType != serviceContractsDocType {
		return ""
	}
	return section.Heading
}

func headingPrefix(heading string) string {
	if heading == "" {
		return ""
	}
	return heading + "\n\n"
}

// fencedLineRanges returns the 1-based, inclusive [start,end] line ranges
// occupied by every fenced code block in content, via goldmark's AST so
// nested/irregular fences are recognized the way a real Markdown renderer
// sees them rather than by counting backtick lines.
var mdParser = goldmark.New()

func fencedLineRanges(content string) [][2]int {
	source := []byte(content)
	doc := mdParser.Parser().Parse(text.NewReader(source))

	var ranges [][2]int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lc := fence.Lines().Len()
		if lc == 0 {
			return ast.WalkContinue, nil
		}
		first := fence.Lines().At(0)
		last := fence.Lines().At(lc - 1)
		// Lines() holds only the fence body: the opening fence is the line
		// above the first body line, the closing fence the line below the
		// last one (buildSegments clamps it for an unclosed fence).
		startLine := lineNumberOf(source, first.Start) - 1
		endLine := lineNumberOf(source, last.Start) + 1
		ranges = append(ranges, [2]int{startLine, endLine})
		return ast.WalkContinue, nil
	})
	return ranges
}

// lineNumberOf returns the 1-based line number containing byte offset off.
func lineNumberOf(source []byte, off int) int {
	if off > len(source) {
		off = len(source)
	}
	return 1 + strings.Count(string(source[:off]), "\n")
}

// buildSegments groups content's lines into atomic segments: a single text
// line each, except fenced code block spans which are kept whole.
func buildSegments(lines []string, fenceRanges [][2]int) []segment {
	inFence := make(map[int]int) // line -> fence end line, for lines starting a fence
	for _, r := range fenceRanges {
		inFence[r[0]] = r[1]
	}

	var segs []segment
	i := 1
	for i <= len(lines) {
		if end, ok := inFence[i]; ok && end >= i {
			if end > len(lines) {
				end = len(lines)
			}
			segs = append(segs, segment{lines: lines[i-1 : end], lineStart: i, lineEnd: end})
			i = end + 1
			continue
		}
		segs = append(segs, segment{lines: lines[i-1 : i], lineStart: i, lineEnd: i})
		i++
	}
	return segs
}

type rawChunk struct {
	segments  []segment
	lineStart int
	lineEnd   int
}

// joinSegments renders a chunk's segments back to text: each segment's
// lines joined by newline, segments themselves separated by a newline too,
// so a fence segment's multiple lines stay contiguous.
func joinSegments(segs []segment) string {
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(s.lines, "\n"))
	}
	return b.String()
}

// assembleGreedy packs segments into chunks up to maxTokens, never splitting
// a segment. A single oversized segment (e.g. a large code fence) still
// becomes its own chunk rather than being dropped or split.
func assembleGreedy(segments []segment, maxTokens int) []rawChunk {
	var chunks []rawChunk
	var cur []segment
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, rawChunk{
			segments:  cur,
			lineStart: cur[0].lineStart,
			lineEnd:   cur[len(cur)-1].lineEnd,
		})
		cur = nil
		curTokens = 0
	}

	for _, seg := range segments {
		segText := strings.Join(seg.lines, "\n")
		segTokens := EstimateTokens(segText)
		if len(cur) > 0 && curTokens+segTokens > maxTokens {
			flush()
		}
		cur = append(cur, seg)
		curTokens += segTokens
	}
	flush()
	return chunks
}

// backfillOverlap seeds each chunk (after the first) with whole segments
// pulled from the tail of the preceding chunk, so overlap never lands
// mid-fence: a fenced code block is always either wholly included in the
// overlap or wholly excluded.
func backfillOverlap(chunks []rawChunk, overlapTokens int) []rawChunk {
	if overlapTokens <= 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]rawChunk, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		overlap := tailSegmentsByTokens(chunks[i-1].segments, overlapTokens)
		merged := make([]segment, 0, len(overlap)+len(chunks[i].segments))
		merged = append(merged, overlap...)
		merged = append(merged, chunks[i].segments...)
		out[i] = rawChunk{
			segments:  merged,
			lineStart: chunks[i].lineStart,
			lineEnd:   chunks[i].lineEnd,
		}
	}
	return out
}

// tailSegmentsByTokens walks segs backwards, pulling whole segments until
// their combined estimate would exceed maxTokens, stopping before it does.
func tailSegmentsByTokens(segs []segment, maxTokens int) []segment {
	var tail []segment
	total := 0
	for i := len(segs) - 1; i >= 0; i-- {
		segTokens := EstimateTokens(strings.Join(segs[i].lines, "\n"))
		if total+segTokens > maxTokens {
			break
		}
		tail = append([]segment{segs[i]}, tail...)
		total += segTokens
	}
	return tail
}
