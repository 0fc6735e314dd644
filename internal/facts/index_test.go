package facts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/docintel/internal/domain/docmodel"
)

type stubSections struct {
	sections []docmodel.Section
	err      error
}

func (s stubSections) Get(_ context.Context, _ string) ([]docmodel.Section, error) {
	return s.sections, s.err
}

func TestIndex_InsertThenFindDuplicates(t *testing.T) {
	idx := NewIndex()
	existing := newFact("Owner", "is", "platform-team", "a.md", "", 1, 1)
	idx.Insert(existing)

	incoming := newFact("owner", "IS", "Platform-Team", "b.md", "", 5, 5)
	dups := idx.FindDuplicates([]docmodel.Fact{incoming})
	require.Len(t, dups, 1)
	assert.Equal(t, existing.Hash, dups[0].Existing.Hash)
	assert.Equal(t, incoming.Hash, dups[0].Duplicate.Hash)
}

func TestIndex_FindConflicts_SameKeyDifferentObject(t *testing.T) {
	idx := NewIndex()
	existing := newFact("Owner", "is", "platform-team", "a.md", "", 1, 1)
	idx.Insert(existing)

	incoming := newFact("Owner", "is", "infra-team", "b.md", "", 5, 5)
	conflicts := idx.FindConflicts([]docmodel.Fact{incoming})
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts[0].Reason, "platform-team")
	assert.Contains(t, conflicts[0].Reason, "infra-team")
}

func TestIndex_NoConflictWhenSameCanonicalObject(t *testing.T) {
	idx := NewIndex()
	idx.Insert(newFact("Owner", "is", "platform-team", "a.md", "", 1, 1))
	incoming := newFact("Owner", "is", "Platform-Team", "b.md", "", 5, 5)
	assert.Empty(t, idx.FindConflicts([]docmodel.Fact{incoming}))
}

func TestIndex_UnknownKeyYieldsNoDuplicatesOrConflicts(t *testing.T) {
	idx := NewIndex()
	f := newFact("Unseen", "is", "value", "a.md", "", 1, 1)
	assert.Empty(t, idx.FindDuplicates([]docmodel.Fact{f}))
	assert.Empty(t, idx.FindConflicts([]docmodel.Fact{f}))
}

func TestIndex_Build_ExtractsFactsFromEverySection(t *testing.T) {
	idx := NewIndex()
	sections := stubSections{sections: []docmodel.Section{
		{File: "a.md", Heading: "H1", Content: "Owner: team-a", LineStart: 1},
		{File: "b.md", Heading: "H2", Content: "Owner: team-b", LineStart: 1},
	}}
	require.NoError(t, idx.Build(context.Background(), "/root", sections))

	conflicts := idx.FindConflicts([]docmodel.Fact{newFact("Owner", "is", "team-c", "c.md", "", 1, 1)})
	assert.Len(t, conflicts, 2)
}

func TestRegistry_Get_CachesPerRoot(t *testing.T) {
	calls := 0
	sections := countingSections{base: stubSections{}, calls: &calls}
	reg := NewRegistry(sections)

	_, err := reg.Get(context.Background(), "/root")
	require.NoError(t, err)
	_, err = reg.Get(context.Background(), "/root")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRegistry_Invalidate_ForcesRebuild(t *testing.T) {
	calls := 0
	sections := countingSections{base: stubSections{}, calls: &calls}
	reg := NewRegistry(sections)

	_, _ = reg.Get(context.Background(), "/root")
	reg.Invalidate("/root")
	_, _ = reg.Get(context.Background(), "/root")
	assert.Equal(t, 2, calls)
}

func TestRegistry_InvalidateAll_ClearsEveryRoot(t *testing.T) {
	calls := 0
	sections := countingSections{base: stubSections{}, calls: &calls}
	reg := NewRegistry(sections)

	_, _ = reg.Get(context.Background(), "/root-a")
	_, _ = reg.Get(context.Background(), "/root-b")
	reg.InvalidateAll()
	_, _ = reg.Get(context.Background(), "/root-a")
	assert.Equal(t, 3, calls)
}

type countingSections struct {
	base  stubSections
	calls *int
}

func (c countingSections) Get(ctx context.Context, root string) ([]docmodel.Section, error) {
	*c.calls++
	return c.base.Get(ctx, root)
}
