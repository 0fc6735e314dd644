package facts

import (
	"context"
	"fmt"
	"sync"

	"github.com/turtacn/docintel/internal/domain/docmodel"
)

// SectionSource supplies the sections a fact index is built from —
// satisfied by the doc index (C2).
type SectionSource interface {
	Get(ctx context.Context, root string) ([]docmodel.Section, error)
}

// keyEntry groups every fact seen for one normalized (subject, predicate)
// key by canonical object value. A key never maps to an empty values slice.
type keyEntry struct {
	values map[string][]docmodel.Fact
}

// Index is the in-memory fact index for a single corpus root: a map from
// normalized key to canonical-object buckets of facts. It is the
// authoritative, fast path; any durable mirror is a read-through
// convenience layered on top, never a replacement.
type Index struct {
	mu     sync.RWMutex
	byKey  map[string]*keyEntry
}

// NewIndex constructs an empty Index.
func NewIndex() *Index {
	return &Index{byKey: make(map[string]*keyEntry)}
}

// Build populates the index from every section of root, extracting facts
// from each section's content via ExtractFromMarkdown and inserting them.
func (idx *Index) Build(ctx context.Context, root string, sections SectionSource) error {
	secs, err := sections.Get(ctx, root)
	if err != nil {
		return err
	}
	for _, s := range secs {
		for _, f := range ExtractFromMarkdown(s.Content, s.File, s.Heading, s.LineStart) {
			idx.Insert(f)
		}
	}
	return nil
}

// Insert adds fact into byKey[fact.NormalizedKey].values[fact.CanonicalObject],
// appending rather than replacing so every occurrence is retained.
func (idx *Index) Insert(f docmodel.Fact) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry, ok := idx.byKey[f.NormalizedKey]
	if !ok {
		entry = &keyEntry{values: make(map[string][]docmodel.Fact)}
		idx.byKey[f.NormalizedKey] = entry
	}
	entry.values[f.CanonicalObject] = append(entry.values[f.CanonicalObject], f)
}

// FindDuplicates returns, for every fact in facts, the existing facts
// sharing the same (key, canonical object) — i.e. facts that say the same
// thing about the same subject/predicate.
func (idx *Index) FindDuplicates(facts []docmodel.Fact) []docmodel.FactDuplicate {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var dups []docmodel.FactDuplicate
	for _, f := range facts {
		entry, ok := idx.byKey[f.NormalizedKey]
		if !ok {
			continue
		}
		for _, existing := range entry.values[f.CanonicalObject] {
			dups = append(dups, docmodel.FactDuplicate{Existing: existing, Duplicate: f})
		}
	}
	return dups
}

// FindConflicts returns, for every fact in facts, the existing facts that
// share the same key but disagree on the canonical object value.
func (idx *Index) FindConflicts(facts []docmodel.Fact) []docmodel.FactConflict {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var conflicts []docmodel.FactConflict
	for _, f := range facts {
		entry, ok := idx.byKey[f.NormalizedKey]
		if !ok {
			continue
		}
		for object, existingFacts := range entry.values {
			if object == f.CanonicalObject {
				continue
			}
			for _, existing := range existingFacts {
				conflicts = append(conflicts, docmodel.FactConflict{
					Existing:    existing,
					Conflicting: f,
					Reason:      fmt.Sprintf("existing object %q conflicts with new object %q", existing.CanonicalObject, f.CanonicalObject),
				})
			}
		}
	}
	return conflicts
}

// Registry caches one Index per corpus root, mirroring the doc index's
// per-root cache shape so invalidation is symmetric.
type Registry struct {
	mu      sync.RWMutex
	byRoot  map[string]*Index
	sources SectionSource
}

// NewRegistry constructs a Registry backed by sections for building entries
// on first access.
func NewRegistry(sections SectionSource) *Registry {
	return &Registry{byRoot: make(map[string]*Index), sources: sections}
}

// Get returns the Index for root, building it on first access.
func (r *Registry) Get(ctx context.Context, root string) (*Index, error) {
	r.mu.RLock()
	idx, ok := r.byRoot[root]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.byRoot[root]; ok {
		return idx, nil
	}

	idx = NewIndex()
	if err := idx.Build(ctx, root, r.sources); err != nil {
		return nil, err
	}
	r.byRoot[root] = idx
	return idx, nil
}

// Invalidate drops the cached Index for root, forcing a rebuild on next Get.
func (r *Registry) Invalidate(root string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byRoot, root)
}

// InvalidateAll drops every cached Index.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRoot = make(map[string]*Index)
}
