package businessflow_test

import (
	"testing"

	"github.com/amirphl/widget-sidebar/models"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentAssembler(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Assemble")
		require.NoError(t, err)

		t.Run("EmptyContainer", func(t *testing.T) {
			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})

		rels := seedRelations(t, f, c.ID, 0, 2, 4)
		divider, err := f.fx.CreateTestComponent(c.ID, models.ComponentTypeDivider, "", 1)
		require.NoError(t, err)
		note, err := f.fx.CreateTestComponent(c.ID, models.ComponentTypeNote, "same slot", 2)
		require.NoError(t, err)
		tag, err := f.fx.CreateTestElementTag(models.ContainerKindArea, "urgent")
		require.NoError(t, err)
		require.NoError(t, f.fx.TagRelation(rels[2].ID, tag.ID))
		require.NoError(t, f.fx.TagComponent(note.ID, tag.ID))

		t.Run("MergesByOrderIndex", func(t *testing.T) {
			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			// relations win ties with components
			assert.Equal(t, []models.EntryRef{
				relRef(rels[0]), compRef(divider), relRef(rels[1]), compRef(note), relRef(rels[2]),
			}, refs(entries))
		})

		t.Run("ResolvesTagSets", func(t *testing.T) {
			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			for _, e := range entries {
				require.NotNil(t, e.TagIDs, "entry %v has unresolved tags", e.Ref())
			}
			assert.Equal(t, []uint{tag.ID}, entries[3].TagIDs)
			assert.Equal(t, []uint{tag.ID}, entries[4].TagIDs)
			assert.Empty(t, entries[0].TagIDs)
		})

		t.Run("NothingDroppedOrSynthesized", func(t *testing.T) {
			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			assert.Len(t, entries, 5)

			other, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Other")
			require.NoError(t, err)
			empty, err := f.assembler.Assemble(ctx, other.ID)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	})
}

func TestTagFilter(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		c, err := f.fx.CreateTestContainer(models.ContainerKindProject, "Filter")
		require.NoError(t, err)
		rels := seedRelations(t, f, c.ID, 0, 1, 2)
		comp, err := f.fx.CreateTestComponent(c.ID, models.ComponentTypeAlert, "heads up", 3)
		require.NoError(t, err)
		bare, err := f.fx.CreateTestComponent(c.ID, models.ComponentTypeDivider, "", 4)
		require.NoError(t, err)

		a, err := f.fx.CreateTestElementTag(models.ContainerKindProject, "a")
		require.NoError(t, err)
		b, err := f.fx.CreateTestElementTag(models.ContainerKindProject, "b")
		require.NoError(t, err)
		require.NoError(t, f.fx.TagRelation(rels[0].ID, a.ID))
		require.NoError(t, f.fx.TagRelation(rels[1].ID, a.ID, b.ID))
		require.NoError(t, f.fx.TagComponent(comp.ID, b.ID))

		entries, err := f.assembler.Assemble(ctx, c.ID)
		require.NoError(t, err)

		t.Run("EmptySelectionKeepsEverything", func(t *testing.T) {
			out, err := f.tagFilter.Filter(ctx, entries, nil, false)
			require.NoError(t, err)
			assert.Equal(t, entries, out)
		})

		t.Run("AnyMatch", func(t *testing.T) {
			out, err := f.tagFilter.Filter(ctx, entries, []uint{b.ID}, false)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{relRef(rels[1]), compRef(comp)}, refs(out))

			out, err = f.tagFilter.Filter(ctx, entries, []uint{a.ID, b.ID}, false)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{relRef(rels[0]), relRef(rels[1]), compRef(comp)}, refs(out))
		})

		t.Run("AllMatch", func(t *testing.T) {
			out, err := f.tagFilter.Filter(ctx, entries, []uint{a.ID, b.ID}, true)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{relRef(rels[1])}, refs(out))
		})

		t.Run("FilteredIsSubsequence", func(t *testing.T) {
			for _, matchAll := range []bool{false, true} {
				out, err := f.tagFilter.Filter(ctx, entries, []uint{a.ID}, matchAll)
				require.NoError(t, err)
				pos := 0
				for _, e := range out {
					for pos < len(entries) && entries[pos].Ref() != e.Ref() {
						pos++
					}
					require.Less(t, pos, len(entries), "entry %v out of order", e.Ref())
				}
			}
		})

		t.Run("AnyMatchContainsAllMatch", func(t *testing.T) {
			selections := [][]uint{{a.ID}, {b.ID}, {a.ID, b.ID}, {b.ID, a.ID}, {a.ID, 9999}}
			for _, sel := range selections {
				anyOf, err := f.tagFilter.Filter(ctx, entries, sel, false)
				require.NoError(t, err)
				allOf, err := f.tagFilter.Filter(ctx, entries, sel, true)
				require.NoError(t, err)
				assert.Subset(t, refs(anyOf), refs(allOf), "selection %v", sel)
				assert.LessOrEqual(t, len(allOf), len(anyOf))
			}
		})

		t.Run("UntaggedComponentsAreFilteredToo", func(t *testing.T) {
			out, err := f.tagFilter.Filter(ctx, entries, []uint{a.ID}, false)
			require.NoError(t, err)
			assert.NotContains(t, refs(out), compRef(bare))
			assert.NotContains(t, refs(out), compRef(comp))
		})

		t.Run("ResolvesUnresolvedEntries", func(t *testing.T) {
			raw, err := f.contentRepo.ContentOrdered(ctx, c.ID)
			require.NoError(t, err)
			out, err := f.tagFilter.Filter(ctx, raw, []uint{a.ID}, true)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{relRef(rels[0]), relRef(rels[1])}, refs(out))
		})

		t.Run("UnknownTagMatchesNothing", func(t *testing.T) {
			out, err := f.tagFilter.Filter(ctx, entries, []uint{9999}, false)
			require.NoError(t, err)
			assert.Empty(t, out)
		})
	})
}
