// Package parser implements recursive discovery and heading-based splitting
// of the Markdown documentation corpus (C1 in the retrieval core). It never
// fails on malformed Markdown. A file that cannot be read or is not valid
// UTF-8 is skipped and traversal continues with the remaining files; Parse
// does not return an error for such a file.
package parser

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/pkg/errors"
)

// headingRE matches an ATX-style Markdown heading line: 1-6 leading "#"
// characters, at least one space, then the heading text.
var headingRE = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// filenameRE matches the corpus naming convention "R<digits>-<DOCTYPE>.md".
var filenameRE = regexp.MustCompile(`^R(\d+)-([A-Za-z0-9_]+)\.md$`)

// skippedDirs are directory basenames never descended into during discovery.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"build":        true,
	"dist":         true,
}

// legacyPathSuffix is the backward-compatible subdirectory preferred over
// the corpus root when present and non-empty.
const legacyPathSuffix = "mnt/project"

// Parse recursively discovers Markdown files under root and splits each into
// Sections. Discovery honors .docignore (gitignore-syntax) exclusions and
// skips dot-directories, node_modules, build, and dist. If root/mnt/project
// exists and yields at least one section, its results are returned instead
// of scanning root directly.
func Parse(root string) ([]docmodel.Section, error) {
	legacyRoot := filepath.Join(root, legacyPathSuffix)
	if info, err := os.Stat(legacyRoot); err == nil && info.IsDir() {
		sections, err := parseTree(legacyRoot, root)
		if err != nil {
			return nil, err
		}
		if len(sections) > 0 {
			return sections, nil
		}
	}
	return parseTree(root, root)
}

// parseTree walks walkRoot and returns sections for every selected file,
// with File recorded relative to displayRoot.
func parseTree(walkRoot, displayRoot string) ([]docmodel.Section, error) {
	files, err := selectedFilesUnder(walkRoot, displayRoot)
	if err != nil {
		return nil, err
	}

	var sections []docmodel.Section
	for _, f := range files {
		fileSections, err := parseFile(f.absPath, f.relPath)
		if err != nil {
			// Unreadable UTF-8: skip this file only, per §4.1.
			continue
		}
		sections = append(sections, fileSections...)
	}
	return sections, nil
}

func selectedFilesUnder(walkRoot, displayRoot string) ([]discoveredFile, error) {
	matcher, err := loadIgnoreMatcher(displayRoot)
	if err != nil {
		return nil, err
	}
	return discoverFiles(walkRoot, displayRoot, matcher)
}

// SelectedPaths returns the absolute paths of every file C1's walk of root
// would select: the same legacy-path preference, .docignore exclusions,
// skipped-dir list, and filename convention Parse itself applies. Callers
// that need to fingerprint a corpus without parsing it (index.Fingerprint)
// use this so the fingerprinted file set never drifts from the parsed one.
func SelectedPaths(root string) ([]string, error) {
	legacyRoot := filepath.Join(root, legacyPathSuffix)
	if info, err := os.Stat(legacyRoot); err == nil && info.IsDir() {
		files, err := selectedFilesUnder(legacyRoot, root)
		if err == nil && len(files) > 0 {
			return absPaths(files), nil
		}
	}
	files, err := selectedFilesUnder(root, root)
	if err != nil {
		return nil, err
	}
	return absPaths(files), nil
}

func absPaths(files []discoveredFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.absPath
	}
	return out
}

// loadIgnoreMatcher reads <root>/.docignore when present; absence is not an
// error.
func loadIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	f, err := os.Open(filepath.Join(root, ".docignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return NewEmptyMatcher(), nil
		}
		return nil, errors.IOError("failed to open .docignore").WithCause(err)
	}
	defer f.Close()
	return ParseIgnoreRules(f)
}

type discoveredFile struct {
	absPath string
	relPath string
}

// discoverFiles walks walkRoot and returns every .md file selected per the
// C1 selection rule, with paths reported relative to displayRoot.
func discoverFiles(walkRoot, displayRoot string, matcher *IgnoreMatcher) ([]discoveredFile, error) {
	var out []discoveredFile

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			// Permission/IO errors on a single directory are swallowed;
			// traversal continues with siblings.
			return nil
		}
		for _, entry := range entries {
			name := entry.Name()
			absPath := filepath.Join(dir, name)
			relPath, relErr := filepath.Rel(displayRoot, absPath)
			if relErr != nil {
				continue
			}
			relPath = filepath.ToSlash(relPath)

			if entry.IsDir() {
				if strings.HasPrefix(name, ".") || skippedDirs[name] {
					continue
				}
				if matcher.Match(relPath, true) {
					continue
				}
				if err := walk(absPath); err != nil {
					return err
				}
				continue
			}

			if !strings.HasSuffix(name, ".md") {
				continue
			}
			isRoot := dir == walkRoot
			if !filenameRE.MatchString(name) && !isRoot {
				continue
			}
			if matcher.Match(relPath, false) {
				continue
			}
			out = append(out, discoveredFile{absPath: absPath, relPath: relPath})
		}
		return nil
	}

	if err := walk(walkRoot); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].absPath < out[j].absPath })
	return out, nil
}

// parseFile reads absPath and splits it into Sections. relPath is recorded
// as Section.File.
func parseFile(absPath, relPath string) ([]docmodel.Section, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.IOError("failed to read " + relPath).WithCause(err)
	}
	if !utf8.Valid(data) {
		return nil, errors.ParseError("file " + relPath + " is not valid UTF-8")
	}

	release, docType := filenameParts(filepath.Base(absPath))
	return splitSections(string(data), relPath, release, docType), nil
}

// filenameParts extracts the release and docType tokens from a filename
// matching filenameRE; both are empty when the filename doesn't match.
func filenameParts(name string) (release, docType string) {
	m := filenameRE.FindStringSubmatch(name)
	if m == nil {
		return "", ""
	}
	return "R" + m[1], m[2]
}

// splitSections splits content on ATX heading lines into a disjoint,
// ordered partition of its lines. Content preceding the first heading is
// discarded (it has no heading to attach to).
func splitSections(content, file, release, docType string) []docmodel.Section {
	if release == "" && docType == "" {
		return nil
	}

	lines := strings.Split(content, "\n")

	type boundary struct {
		lineIdx int // zero-based index into lines
		heading string
	}
	var boundaries []boundary
	for i, line := range lines {
		if m := headingRE.FindStringSubmatch(line); m != nil {
			boundaries = append(boundaries, boundary{lineIdx: i, heading: strings.TrimSpace(m[2])})
		}
	}
	if len(boundaries) == 0 {
		return nil
	}

	var sections []docmodel.Section
	for i, b := range boundaries {
		start := b.lineIdx
		end := len(lines) - 1
		if i+1 < len(boundaries) {
			end = boundaries[i+1].lineIdx - 1
		}
		body := strings.Join(lines[start+1:end+1], "\n")
		sections = append(sections, docmodel.Section{
			File:      file,
			Release:   release,
			DocType:   docType,
			Heading:   b.heading,
			Content:   strings.TrimSpace(body),
			LineStart: start + 1, // 1-indexed, heading line
			LineEnd:   end + 1,
		})
	}
	return sections
}
