package businessflow_test

import (
	"errors"
	"testing"

	"github.com/amirphl/widget-sidebar/app/services"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderIndexes(entries []models.ContentEntry) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.OrderIndex)
	}
	return out
}

func TestReorderEngineMoves(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Moves")
		require.NoError(t, err)
		rels := seedRelations(t, f, c.ID, 0, 1, 2)

		t.Run("MoveUpSwapsWithPredecessor", func(t *testing.T) {
			entries, err := f.engine.MoveUp(ctx, relRef(rels[1]))
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{relRef(rels[1]), relRef(rels[0]), relRef(rels[2])}, refs(entries))
			assert.Equal(t, []int{0, 1, 2}, orderIndexes(entries))
			assert.Contains(t, f.events.actions(services.EntityRelation), services.ActionReordered)
		})

		t.Run("MoveUpOnFirstIsNoop", func(t *testing.T) {
			before, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			after, err := f.engine.MoveUp(ctx, before[0].Ref())
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})

		t.Run("MoveDownOnLastIsNoop", func(t *testing.T) {
			before, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			after, err := f.engine.MoveDown(ctx, before[len(before)-1].Ref())
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})

		t.Run("MoveUpThenDownRestoresOrder", func(t *testing.T) {
			before, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			middle := before[1].Ref()

			_, err = f.engine.MoveUp(ctx, middle)
			require.NoError(t, err)
			after, err := f.engine.MoveDown(ctx, middle)
			require.NoError(t, err)
			assert.Equal(t, refs(before), refs(after))
		})

		t.Run("MovesAcrossKinds", func(t *testing.T) {
			comp, err := f.fx.CreateTestComponent(c.ID, models.ComponentTypeDivider, "", 3)
			require.NoError(t, err)

			entries, err := f.engine.MoveUp(ctx, compRef(comp))
			require.NoError(t, err)
			require.Len(t, entries, 4)
			assert.Equal(t, compRef(comp), entries[2].Ref())
			assert.Equal(t, 2, entries[2].OrderIndex)
		})

		t.Run("UnknownEntry", func(t *testing.T) {
			_, err := f.engine.MoveUp(ctx, models.EntryRef{Kind: models.EntryKindRelation, ID: 9999})
			assert.True(t, businessflow.IsRelationNotFound(err))
			_, err = f.engine.MoveDown(ctx, models.EntryRef{Kind: models.EntryKindComponent, ID: 9999})
			assert.True(t, businessflow.IsComponentNotFound(err))
			_, err = f.engine.MoveDown(ctx, models.EntryRef{Kind: "widget", ID: 1})
			assert.True(t, businessflow.IsValidation(err))
		})
	})
}

func TestReorderEngineInsert(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		c, err := f.fx.CreateTestContainer(models.ContainerKindProject, "Insert")
		require.NoError(t, err)

		t.Run("AppendToEmptyStartsAtZero", func(t *testing.T) {
			empty, err := f.fx.CreateTestContainer(models.ContainerKindProject, "Empty")
			require.NoError(t, err)
			rel := &models.Relation{ContainerID: empty.ID, EntityType: models.EntityTypeTag, EntityID: 1}
			idx, err := f.engine.InsertRelationBelow(ctx, nil, rel)
			require.NoError(t, err)
			assert.Equal(t, 0, idx)
			assert.NotZero(t, rel.ID)
		})

		rels := seedRelations(t, f, c.ID, 0, 1, 2)

		t.Run("InsertBelowShiftsFollowers", func(t *testing.T) {
			anchor := relRef(rels[1])
			rel := &models.Relation{ContainerID: c.ID, EntityType: models.EntityTypeList, EntityID: 10}
			idx, err := f.engine.InsertRelationBelow(ctx, &anchor, rel)
			require.NoError(t, err)
			assert.Equal(t, 2, idx)

			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{relRef(rels[0]), relRef(rels[1]), relRef(rel), relRef(rels[2])}, refs(entries))
			assert.Equal(t, []int{0, 1, 2, 3}, orderIndexes(entries))
		})

		t.Run("AppendUsesMaxPlusOne", func(t *testing.T) {
			comp := &models.Component{ContainerID: c.ID, ComponentType: models.ComponentTypeNote, Content: "end"}
			idx, err := f.engine.InsertComponentBelow(ctx, nil, comp)
			require.NoError(t, err)
			assert.Equal(t, 4, idx)
		})

		t.Run("InsertComponentBelowComponent", func(t *testing.T) {
			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			last := entries[len(entries)-1].Ref()
			comp := &models.Component{ContainerID: c.ID, ComponentType: models.ComponentTypeDivider}
			idx, err := f.engine.InsertComponentBelow(ctx, &last, comp)
			require.NoError(t, err)
			assert.Equal(t, 5, idx)
		})

		t.Run("AnchorFromOtherContainer", func(t *testing.T) {
			other, err := f.fx.CreateTestContainer(models.ContainerKindProject, "Other")
			require.NoError(t, err)
			anchor := relRef(rels[0])
			rel := &models.Relation{ContainerID: other.ID, EntityType: models.EntityTypeItem, EntityID: 1}
			_, err = f.engine.InsertRelationBelow(ctx, &anchor, rel)
			assert.True(t, businessflow.IsEntryNotFound(err))
			assert.Zero(t, rel.ID)
		})

		t.Run("TotalOrderHolds", func(t *testing.T) {
			require.NoError(t, f.engine.CheckOrder(ctx, c.ID))
		})
	})
}

func TestReorderEngineDeleteAndNormalize(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Delete")
		require.NoError(t, err)
		rels := seedRelations(t, f, c.ID, 0, 1, 2)
		tag, err := f.fx.CreateTestElementTag(models.ContainerKindArea, "gone")
		require.NoError(t, err)
		require.NoError(t, f.fx.TagRelation(rels[1].ID, tag.ID))

		t.Run("DeleteKeepsIndexes", func(t *testing.T) {
			require.NoError(t, f.engine.Delete(ctx, relRef(rels[1])))
			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 2}, orderIndexes(entries))

			ids, err := f.assocRepo.RelationIDsByTag(ctx, tag.ID)
			require.NoError(t, err)
			assert.Empty(t, ids)
			assert.Contains(t, f.events.actions(services.EntityRelation), services.ActionDeleted)
		})

		t.Run("DeleteUnknown", func(t *testing.T) {
			err := f.engine.Delete(ctx, relRef(rels[1]))
			assert.True(t, businessflow.IsRelationNotFound(err))
		})

		t.Run("NormalizeRenumbers", func(t *testing.T) {
			_, err := f.fx.CreateTestComponent(c.ID, models.ComponentTypeComment, "gap", 9)
			require.NoError(t, err)

			entries, err := f.engine.Normalize(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2}, orderIndexes(entries))
			assert.Equal(t, relRef(rels[0]), entries[0].Ref())
			assert.Equal(t, relRef(rels[2]), entries[1].Ref())
		})

		t.Run("NormalizeResolvesDuplicates", func(t *testing.T) {
			dupe, err := f.fx.CreateTestRelation(c.ID, models.EntityTypeTag, 50, 1)
			require.NoError(t, err)
			require.Error(t, f.engine.CheckOrder(ctx, c.ID))

			entries, err := f.engine.Normalize(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2, 3}, orderIndexes(entries))
			// relations sort before components sharing an index, then by id
			assert.Equal(t, relRef(rels[2]), entries[1].Ref())
			assert.Equal(t, relRef(dupe), entries[2].Ref())
			require.NoError(t, f.engine.CheckOrder(ctx, c.ID))
		})
	})
}

func TestReorderEngineFailures(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		faulty := &faultyContent{ContentRepository: repository.NewContentRepository(testDB.DB)}
		f := newFlowsWithContent(t, testDB, faulty)
		ctx := testingutil.CreateTestContext()

		t.Run("AbortedSwapIsReportedAsInconsistent", func(t *testing.T) {
			c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Swap")
			require.NoError(t, err)
			rels := seedRelations(t, f, c.ID, 0, 1, 2)

			faulty.arm(1)
			defer faulty.disarm()
			_, err = f.engine.MoveUp(ctx, relRef(rels[1]))
			require.Error(t, err)
			assert.True(t, businessflow.IsInconsistentOrder(err))
			assert.True(t, errors.Is(err, errInjected))

			var inconsistent *businessflow.InconsistentOrderError
			require.True(t, errors.As(err, &inconsistent))
			assert.Equal(t, c.ID, inconsistent.ContainerID)
			assert.Equal(t, []int{0}, inconsistent.Duplicates)

			faulty.disarm()
			assert.True(t, businessflow.IsInconsistentOrder(f.engine.CheckOrder(ctx, c.ID)))
		})

		t.Run("FirstWriteFailureLeavesOrderIntact", func(t *testing.T) {
			c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "FirstWrite")
			require.NoError(t, err)
			rels := seedRelations(t, f, c.ID, 0, 1)

			faulty.arm(0)
			_, err = f.engine.MoveDown(ctx, relRef(rels[0]))
			faulty.disarm()
			assert.True(t, businessflow.IsStore(err))
			assert.False(t, businessflow.IsInconsistentOrder(err))
			require.NoError(t, f.engine.CheckOrder(ctx, c.ID))
		})

		t.Run("AbortedShiftLeavesNoDuplicates", func(t *testing.T) {
			c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Shift")
			require.NoError(t, err)
			rels := seedRelations(t, f, c.ID, 0, 1, 2, 3)

			anchor := relRef(rels[0])
			faulty.arm(1)
			_, err = f.engine.InsertRelationBelow(ctx, &anchor, &models.Relation{ContainerID: c.ID, EntityType: models.EntityTypeItem, EntityID: 99})
			faulty.disarm()
			require.Error(t, err)
			assert.True(t, businessflow.IsStore(err))
			assert.False(t, businessflow.IsInconsistentOrder(err))

			entries, err := f.assembler.Assemble(ctx, c.ID)
			require.NoError(t, err)
			assert.Len(t, entries, 4)
			assert.Equal(t, []int{0, 1, 2, 4}, orderIndexes(entries))
			require.NoError(t, f.engine.CheckOrder(ctx, c.ID))
		})

		t.Run("EqualNeighboursAreRejectedWithoutWrites", func(t *testing.T) {
			c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Equal")
			require.NoError(t, err)
			rels := seedRelations(t, f, c.ID, 0, 0)

			faulty.arm(0)
			_, err = f.engine.MoveDown(ctx, relRef(rels[0]))
			faulty.disarm()
			assert.True(t, businessflow.IsInconsistentOrder(err))
			assert.False(t, errors.Is(err, errInjected))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestReorderEngineKeepsTotalOrder(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		c, err := f.fx.CreateTestContainer(models.ContainerKindProject, "Sequence")
		require.NoError(t, err)
		rels := seedRelations(t, f, c.ID, 0, 1, 2, 3)

		anchor := relRef(rels[2])
		comp := &models.Component{ContainerID: c.ID, ComponentType: models.ComponentTypeAlert, Content: "watch"}
		_, err = f.engine.InsertComponentBelow(ctx, &anchor, comp)
		require.NoError(t, err)
		_, err = f.engine.MoveUp(ctx, compRef(comp))
		require.NoError(t, err)
		_, err = f.engine.MoveDown(ctx, relRef(rels[0]))
		require.NoError(t, err)
		require.NoError(t, f.engine.Delete(ctx, relRef(rels[3])))
		first := relRef(rels[1])
		_, err = f.engine.InsertRelationBelow(ctx, &first, &models.Relation{ContainerID: c.ID, EntityType: models.EntityTypeTable, EntityID: 7})
		require.NoError(t, err)
		_, err = f.engine.MoveDown(ctx, compRef(comp))
		require.NoError(t, err)

		entries, err := f.assembler.Assemble(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 5)
		assert.Empty(t, models.DuplicateOrderIndexes(entries))
	})
}
