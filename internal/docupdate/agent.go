// Package docupdate turns a natural-language maintenance intent into a
// concrete documentation change: it infers which file should carry the
// change, drafts a diff, checks the draft against the fact index for
// duplicates and conflicts, and — once a caller accepts the suggestion —
// applies it to disk atomically and triggers reindexing.
package docupdate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/facts"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/pkg/errors"
)

// defaultRelease is used when an Intent does not pin a target release.
const defaultRelease = "R1"

// defaultSuffix is the doc-type suffix used when no keyword in the intent
// text matches a known category.
const defaultSuffix = "NOTES"

// keywordSuffixes maps a case-insensitive keyword found in the intent text
// to the doc-type suffix of the file it should land in. Checked in order;
// the first match wins.
var keywordSuffixes = []struct {
	keyword string
	suffix  string
}{
	{"architecture", "ARCHITECTURE"},
	{"service", "SERVICE_CONTRACTS"},
	{"config", "CONFIGURATION"},
	{"migration", "MIGRATION_NOTES"},
}

// Intent describes a requested documentation change.
type Intent struct {
	// Intent is the short natural-language description of the change,
	// e.g. "document the new retry policy for the ingest service".
	Intent string
	// Context is the body text to fold into the drafted diff.
	Context string
	// TargetFile, if set, overrides keyword inference and is used directly
	// as the doc-type suffix.
	TargetFile string
	// TargetRelease, if set, overrides the default release prefix "R1".
	TargetRelease string
}

// Event is emitted by the Agent as update operations progress.
type Event struct {
	Type string // "doc_created" | "doc_updated" | "reindex_triggered"
	Root string
	Path string
	At   time.Time
}

// Publisher delivers lifecycle Events to an external system. Publish
// failures are logged and otherwise ignored — event delivery is best-effort
// and must never block or fail a document update.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Auditor persists a record of every suggestion and apply outcome.
type Auditor interface {
	RecordSuggestion(ctx context.Context, root string, suggestion docmodel.UpdateSuggestion) error
	RecordApply(ctx context.Context, root string, result docmodel.UpdateResult) error
}

// Archiver stores the full text of an applied diff for later retrieval,
// keyed by an opaque identifier it returns.
type Archiver interface {
	Archive(ctx context.Context, root, path, diff string) (objectKey string, err error)
}

// DocIndex is the subset of the section index (C2) the agent needs:
// invalidation after a successful write so the next read sees fresh content.
type DocIndex interface {
	Invalidate(root string)
}

// Agent implements the suggest/apply workflow described above. Publisher,
// Auditor, and Archiver are all optional; a nil value simply disables that
// side effect.
type Agent struct {
	index     DocIndex
	facts     *facts.Registry
	publisher Publisher
	auditor   Auditor
	archiver  Archiver
	logger    logging.Logger
	now       func() time.Time
}

// NewAgent constructs an Agent. idx and factsRegistry are required; the
// remaining collaborators may be nil.
func NewAgent(idx DocIndex, factsRegistry *facts.Registry, pub Publisher, aud Auditor, arc Archiver, log logging.Logger) *Agent {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Agent{
		index:     idx,
		facts:     factsRegistry,
		publisher: pub,
		auditor:   aud,
		archiver:  arc,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// inferSuffix picks a doc-type suffix from the first matching keyword found
// in intent, case-insensitively, falling back to defaultSuffix.
func inferSuffix(intent string) string {
	lower := strings.ToLower(intent)
	for _, k := range keywordSuffixes {
		if strings.Contains(lower, k.keyword) {
			return k.suffix
		}
	}
	return defaultSuffix
}

// targetPath resolves the release prefix and doc-type suffix for in into a
// full file path under root.
func targetPath(root string, in Intent) string {
	suffix := in.TargetFile
	if suffix == "" {
		suffix = inferSuffix(in.Intent)
	}
	release := in.TargetRelease
	if release == "" {
		release = defaultRelease
	}
	return filepath.Join(root, fmt.Sprintf("%s-%s.md", release, suffix))
}

// draftDiff renders the Markdown fragment that will be appended to (action
// "update") or written as the entirety of (action "create") the target
// file.
func draftDiff(action string, in Intent, at time.Time) string {
	timestamp := at.Format(time.RFC3339)
	if action == "update" {
		return fmt.Sprintf("\n\n## Update: %s\n\n**Added:** %s\n\n%s\n", in.Intent, timestamp, in.Context)
	}
	return fmt.Sprintf("# %s\n\n**Created:** %s\n\n%s\n", in.Intent, timestamp, in.Context)
}

// SuggestUpdate drafts a documentation change for in against root, running
// the draft through the fact index to surface duplicates and conflicts
// before anything is written to disk.
func (a *Agent) SuggestUpdate(ctx context.Context, root string, in Intent) (docmodel.UpdateSuggestion, error) {
	if strings.TrimSpace(in.Intent) == "" {
		return docmodel.UpdateSuggestion{}, errors.InvalidParam("docupdate: intent must not be empty")
	}

	path := targetPath(root, in)
	action := "create"
	if _, err := os.Stat(path); err == nil {
		action = "update"
	}

	diff := draftDiff(action, in, a.now())

	var duplicates []docmodel.FactDuplicate
	var conflicts []docmodel.FactConflict
	if idx, err := a.facts.Get(ctx, root); err != nil {
		a.logger.Warn("docupdate: fact index unavailable, suggesting without preflight", logging.Err(err))
	} else {
		draftFacts := facts.ExtractFromMarkdown(diff, path, "", 1)
		duplicates = idx.FindDuplicates(draftFacts)
		conflicts = idx.FindConflicts(draftFacts)
	}

	suggestion := docmodel.UpdateSuggestion{
		Action:     action,
		TargetPath: path,
		Diff:       diff,
		Rationale:  in.Intent,
		Duplicates: duplicates,
		Conflicts:  conflicts,
		Blocked:    len(conflicts) > 0,
	}

	if a.auditor != nil {
		if err := a.auditor.RecordSuggestion(ctx, root, suggestion); err != nil {
			a.logger.Warn("docupdate: failed to record suggestion audit entry", logging.Err(err))
		}
	}

	return suggestion, nil
}

// ApplyUpdate re-validates suggestion against the current fact index and,
// absent unresolved conflicts (or when force overrides them), writes the
// diff to disk atomically and triggers reindexing.
func (a *Agent) ApplyUpdate(ctx context.Context, root string, suggestion docmodel.UpdateSuggestion, force bool) (docmodel.UpdateResult, error) {
	var conflicts []docmodel.FactConflict
	if idx, err := a.facts.Get(ctx, root); err != nil {
		a.logger.Warn("docupdate: fact index unavailable, applying without conflict check", logging.Err(err))
	} else {
		draftFacts := facts.ExtractFromMarkdown(suggestion.Diff, suggestion.TargetPath, "", 1)
		conflicts = idx.FindConflicts(draftFacts)
	}
	if len(conflicts) > 0 && !force {
		result := docmodel.UpdateResult{
			Status: "error",
			Path:   suggestion.TargetPath,
			Error:  fmt.Sprintf("docupdate: %d unresolved fact conflict(s)", len(conflicts)),
		}
		err := errors.Conflict(result.Error)
		if a.auditor != nil {
			if rerr := a.auditor.RecordApply(ctx, root, result); rerr != nil {
				a.logger.Warn("docupdate: failed to record apply audit entry", logging.Err(rerr))
			}
		}
		return result, err
	}

	if err := a.write(suggestion); err != nil {
		result := docmodel.UpdateResult{Status: "error", Path: suggestion.TargetPath, Error: err.Error()}
		return result, err
	}

	a.index.Invalidate(root)
	a.facts.Invalidate(root)

	result := docmodel.UpdateResult{Status: "success", Path: suggestion.TargetPath, Reindexed: true}

	eventType := "doc_updated"
	if suggestion.Action == "create" {
		eventType = "doc_created"
	}
	a.emit(ctx, Event{Type: eventType, Root: root, Path: suggestion.TargetPath, At: a.now()})
	a.emit(ctx, Event{Type: "reindex_triggered", Root: root, Path: suggestion.TargetPath, At: a.now()})

	if a.archiver != nil {
		if _, err := a.archiver.Archive(ctx, root, suggestion.TargetPath, suggestion.Diff); err != nil {
			a.logger.Warn("docupdate: failed to archive diff", logging.Err(err))
		}
	}
	if a.auditor != nil {
		if err := a.auditor.RecordApply(ctx, root, result); err != nil {
			a.logger.Warn("docupdate: failed to record apply audit entry", logging.Err(err))
		}
	}

	return result, nil
}

func (a *Agent) emit(ctx context.Context, event Event) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Warn("docupdate: failed to publish lifecycle event", logging.String("type", event.Type), logging.Err(err))
	}
}

// write applies suggestion's diff to disk via a temp-file-then-rename swap
// in the same directory as the target, so a crash mid-write never leaves a
// partially-written document in place.
func (a *Agent) write(suggestion docmodel.UpdateSuggestion) error {
	content := []byte(suggestion.Diff)
	if suggestion.Action == "update" {
		existing, err := os.ReadFile(suggestion.TargetPath)
		if err != nil {
			return errors.Wrap(err, errors.CodeIOError, "docupdate: failed to read existing document")
		}
		content = append(append(existing, '\n'), []byte(suggestion.Diff)...)
	}

	dir := filepath.Dir(suggestion.TargetPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CodeIOError, "docupdate: failed to create target directory")
	}

	tmp, err := os.CreateTemp(dir, ".docupdate-*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.CodeIOError, "docupdate: failed to create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.CodeIOError, "docupdate: failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.CodeIOError, "docupdate: failed to close temp file")
	}
	if err := os.Rename(tmpPath, suggestion.TargetPath); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, errors.CodeIOError, "docupdate: failed to rename temp file into place")
	}
	return nil
}
