// Package facts pulls subject/predicate/object triples out of documentation
// text and diff payloads, then groups them by normalized (subject,
// predicate) so duplicates and conflicts can be detected against whatever
// has already been recorded for a corpus root.
package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/turtacn/docintel/internal/domain/docmodel"
)

const extractedPredicate = "is"

// ExtractFromMarkdown scans content line by line and pulls out every
// subject/predicate/object triple it finds. A candidate line is skipped
// when it is empty, starts with "#" (a heading), or starts with "<!--" (a
// comment). Every remaining line is matched against a subject, one of the
// separators ':', '-', '=' (surrounded by optional whitespace), and a
// non-empty object; predicate is always the literal "is".
func ExtractFromMarkdown(content, file, heading string, lineOffset int) []docmodel.Fact {
	if lineOffset <= 0 {
		lineOffset = 1
	}

	var facts []docmodel.Fact
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "<!--") {
			continue
		}

		subject, object, ok := splitTriple(trimmed)
		if !ok {
			continue
		}

		lineNum := lineOffset + i
		facts = append(facts, newFact(subject, extractedPredicate, object, file, heading, lineNum, lineNum))
	}
	return facts
}

// ExtractFromDiff strips unified-diff line prefixes before delegating to
// ExtractFromMarkdown: a leading '+' or ' ' is dropped from every line,
// while lines starting with '-' (removed content) are left untouched so
// they are never mistaken for additions.
func ExtractFromDiff(diff, file string) []docmodel.Fact {
	lines := strings.Split(diff, "\n")
	stripped := make([]string, len(lines))
	for i, line := range lines {
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, " ") {
			stripped[i] = line[1:]
			continue
		}
		stripped[i] = line
	}
	return ExtractFromMarkdown(strings.Join(stripped, "\n"), file, "", 1)
}

// splitTriple attempts to split a line into a subject and an object around
// one of ':', '-', '='. The subject must be 1-200 characters, must not
// start with any of the separator characters, and must not itself contain
// one as part of being accepted — the first valid separator found wins.
func splitTriple(line string) (subject, object string, ok bool) {
	for i, r := range line {
		if r != ':' && r != '-' && r != '=' {
			continue
		}

		candidateSubject := strings.TrimSpace(line[:i])
		candidateObject := strings.TrimSpace(line[i+1:])

		if !validSubject(candidateSubject) || candidateObject == "" {
			continue
		}
		return candidateSubject, candidateObject, true
	}
	return "", "", false
}

func validSubject(s string) bool {
	if s == "" || len(s) > 200 {
		return false
	}
	switch s[0] {
	case ':', '#', '=', '-':
		return false
	}
	return true
}

// newFact fills in the normalized key and canonical object alongside a
// content hash used for cheap equality checks.
func newFact(subject, predicate, object, file, heading string, lineStart, lineEnd int) docmodel.Fact {
	f := docmodel.Fact{
		Subject:         subject,
		Predicate:       predicate,
		Object:          object,
		File:            file,
		Heading:         heading,
		LineStart:       lineStart,
		LineEnd:         lineEnd,
		NormalizedKey:   Key(subject, predicate),
		CanonicalObject: normalize(object),
	}
	f.Hash = hashFact(f)
	return f
}

// Key formats the fact index's grouping key: normalize(subject) + "::" +
// normalize(predicate).
func Key(subject, predicate string) string {
	return normalize(subject) + "::" + normalize(predicate)
}

// normalize lowercases and collapses internal whitespace, the canonical
// form used both for index keys and for object-value comparison.
func normalize(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}

func hashFact(f docmodel.Fact) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", normalize(f.Subject), normalize(f.Predicate), f.CanonicalObject)))
	return hex.EncodeToString(sum[:])
}
