package businessflow_test

import (
	"testing"

	"github.com/amirphl/widget-sidebar/app/services"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/utils"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containerNames(cs []*models.Container) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestContainerManagerLifecycle(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		cm := f.containers

		t.Run("CreateAppliesDefaults", func(t *testing.T) {
			area, err := cm.Create(ctx, models.ContainerKindArea, "  Work  ", "day job", "", "")
			require.NoError(t, err)
			assert.Equal(t, "Work", area.Name)
			assert.Equal(t, utils.DefaultColor, area.Color)
			assert.Equal(t, utils.DefaultAreaIcon, area.Icon)
			assert.True(t, *area.IsActive)

			project, err := cm.Create(ctx, models.ContainerKindProject, "Launch", "", "#123456", "")
			require.NoError(t, err)
			assert.Equal(t, utils.DefaultProjectIcon, project.Icon)
			assert.Contains(t, f.events.actions(services.EntityContainer), services.ActionCreated)
		})

		t.Run("NamesAreUniquePerKindIgnoringCase", func(t *testing.T) {
			_, err := cm.Create(ctx, models.ContainerKindArea, "work", "", "", "")
			assert.True(t, businessflow.IsDuplicateName(err))

			_, err = cm.Create(ctx, models.ContainerKindProject, "Work", "", "", "")
			assert.NoError(t, err)
		})

		t.Run("RejectsInvalidInput", func(t *testing.T) {
			_, err := cm.Create(ctx, "garden", "Yard", "", "", "")
			assert.True(t, businessflow.IsValidation(err))
			_, err = cm.Create(ctx, models.ContainerKindArea, "   ", "", "", "")
			assert.True(t, businessflow.IsValidation(err))
			_, err = cm.Create(ctx, models.ContainerKindArea, "Colorful", "", "rainbow", "")
			assert.True(t, businessflow.IsValidation(err))
		})

		t.Run("ValidateNameExcludesSelf", func(t *testing.T) {
			areas, err := cm.List(ctx, models.ContainerKindArea, false)
			require.NoError(t, err)
			require.Len(t, areas, 1)

			name, err := cm.ValidateName(ctx, models.ContainerKindArea, " WORK ", areas[0].ID)
			require.NoError(t, err)
			assert.Equal(t, "WORK", name)
		})

		t.Run("UpdateAndDeactivate", func(t *testing.T) {
			home, err := cm.Create(ctx, models.ContainerKindArea, "Home", "", "", "")
			require.NoError(t, err)

			name := "Household"
			updated, err := cm.Update(ctx, home.ID, models.ContainerUpdate{Name: &name, IsActive: utils.ToPtr(false)})
			require.NoError(t, err)
			assert.Equal(t, "Household", updated.Name)
			assert.False(t, *updated.IsActive)

			active, err := cm.List(ctx, models.ContainerKindArea, true)
			require.NoError(t, err)
			assert.Equal(t, []string{"Work"}, containerNames(active))

			all, err := cm.List(ctx, models.ContainerKindArea, false)
			require.NoError(t, err)
			assert.Equal(t, []string{"Household", "Work"}, containerNames(all))

			taken := "work"
			_, err = cm.Update(ctx, home.ID, models.ContainerUpdate{Name: &taken})
			assert.True(t, businessflow.IsDuplicateName(err))

			_, err = cm.Update(ctx, 9999, models.ContainerUpdate{Name: &name})
			assert.True(t, businessflow.IsContainerNotFound(err))
		})

		t.Run("Search", func(t *testing.T) {
			found, err := cm.Search(ctx, models.ContainerKindArea, "HOUSE")
			require.NoError(t, err)
			assert.Equal(t, []string{"Household"}, containerNames(found))

			all, err := cm.Search(ctx, models.ContainerKindArea, "  ")
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})

		t.Run("DeleteCascades", func(t *testing.T) {
			c, err := cm.Create(ctx, models.ContainerKindProject, "Doomed", "", "", "")
			require.NoError(t, err)
			rel, err := cm.AddEntity(ctx, c.ID, models.EntityTypeItem, 1, "", nil)
			require.NoError(t, err)
			_, err = cm.AddComponent(ctx, c.ID, models.ComponentTypeDivider, "", nil)
			require.NoError(t, err)

			require.NoError(t, cm.Delete(ctx, c.ID))
			_, err = cm.Get(ctx, c.ID)
			assert.True(t, businessflow.IsContainerNotFound(err))

			left, err := f.relationRepo.ByID(ctx, rel.ID)
			require.NoError(t, err)
			assert.Nil(t, left)
			assert.True(t, businessflow.IsContainerNotFound(cm.Delete(ctx, c.ID)))
		})
	})
}

func TestContainerManagerContent(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		cm := f.containers
		c, err := cm.Create(ctx, models.ContainerKindArea, "Desk", "", "", "")
		require.NoError(t, err)

		t.Run("AddEntityAppendsAndInserts", func(t *testing.T) {
			first, err := cm.AddEntity(ctx, c.ID, models.EntityTypeList, 5, "groceries", nil)
			require.NoError(t, err)
			assert.Equal(t, 0, first.OrderIndex)
			second, err := cm.AddEntity(ctx, c.ID, models.EntityTypeTable, 6, "", nil)
			require.NoError(t, err)
			assert.Equal(t, 1, second.OrderIndex)

			anchor := relRef(first)
			note, err := cm.AddComponent(ctx, c.ID, models.ComponentTypeNote, "between", &anchor)
			require.NoError(t, err)
			assert.Equal(t, 1, note.OrderIndex)

			entries, err := cm.Content(ctx, c.ID, nil, false)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{relRef(first), compRef(note), relRef(second)}, refs(entries))
		})

		t.Run("RejectsInvalidContent", func(t *testing.T) {
			_, err := cm.AddEntity(ctx, c.ID, "widget", 1, "", nil)
			assert.True(t, businessflow.IsValidation(err))
			_, err = cm.AddComponent(ctx, c.ID, "banner", "x", nil)
			assert.True(t, businessflow.IsValidation(err))
			_, err = cm.AddComponent(ctx, c.ID, models.ComponentTypeComment, "  ", nil)
			assert.True(t, businessflow.IsValidation(err))
			_, err = cm.AddEntity(ctx, 9999, models.EntityTypeItem, 1, "", nil)
			assert.True(t, businessflow.IsContainerNotFound(err))
		})

		t.Run("ContentFiltersByTag", func(t *testing.T) {
			tag, err := f.areaTags.Create(ctx, "pinned", "#ff0000", "")
			require.NoError(t, err)
			entries, err := cm.Content(ctx, c.ID, nil, false)
			require.NoError(t, err)
			require.NoError(t, f.areaTags.AddToComponent(ctx, entries[1].ID, tag.ID))

			filtered, err := cm.Content(ctx, c.ID, []uint{tag.ID}, false)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{entries[1].Ref()}, refs(filtered))
		})

		t.Run("EntitiesGrouped", func(t *testing.T) {
			grouped, err := cm.EntitiesGrouped(ctx, c.ID)
			require.NoError(t, err)
			for _, key := range []string{"tags", "processes", "lists", "tables", "categories", "items"} {
				assert.Contains(t, grouped, key)
			}
			assert.Len(t, grouped["lists"], 1)
			assert.Len(t, grouped["tables"], 1)
			assert.Empty(t, grouped["processes"])
		})

		t.Run("Summary", func(t *testing.T) {
			summary, err := cm.Summary(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, c.ID, summary.Container.ID)
			assert.Equal(t, 2, summary.TotalRelations)
			assert.Equal(t, 1, summary.TotalComponents)
			assert.Equal(t, 1, summary.EntityCounts[models.EntityTypeList])
			assert.Equal(t, 1, summary.ComponentCounts[models.ComponentTypeNote])
			assert.Equal(t, 1, summary.TagCount)
		})

		t.Run("RemoveEntityAndComponent", func(t *testing.T) {
			entries, err := cm.Content(ctx, c.ID, nil, false)
			require.NoError(t, err)
			require.NoError(t, cm.RemoveComponent(ctx, entries[1].ID))
			require.NoError(t, cm.RemoveEntity(ctx, entries[0].ID))
			assert.True(t, businessflow.IsRelationNotFound(cm.RemoveEntity(ctx, entries[0].ID)))

			left, err := cm.Content(ctx, c.ID, nil, false)
			require.NoError(t, err)
			assert.Equal(t, []models.EntryRef{entries[2].Ref()}, refs(left))
		})
	})
}

func TestContainerManagerDuplicate(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		cm := f.containers
		src, err := cm.Create(ctx, models.ContainerKindProject, "Release", "ship it", "#00aa00", "🚀")
		require.NoError(t, err)
		rels := seedRelations(t, f, src.ID, 0, 3)
		comp, err := f.fx.CreateTestComponent(src.ID, models.ComponentTypeAlert, "freeze", 1)
		require.NoError(t, err)
		tag, err := f.projectTags.Create(ctx, "blocker", "#f00", "")
		require.NoError(t, err)
		require.NoError(t, f.projectTags.AssignToRelation(ctx, rels[1].ID, []uint{tag.ID}))
		require.NoError(t, f.projectTags.AssignToComponent(ctx, comp.ID, []uint{tag.ID}))

		t.Run("DefaultName", func(t *testing.T) {
			dup, err := cm.Duplicate(ctx, src.ID, "")
			require.NoError(t, err)
			assert.Equal(t, "Release (Copy)", dup.Name)
			assert.Equal(t, "🚀", dup.Icon)
			assert.Equal(t, "#00aa00", dup.Color)

			original, err := f.assembler.Assemble(ctx, src.ID)
			require.NoError(t, err)
			copied, err := f.assembler.Assemble(ctx, dup.ID)
			require.NoError(t, err)
			require.Len(t, copied, len(original))
			for i := range original {
				assert.Equal(t, original[i].Kind, copied[i].Kind)
				assert.Equal(t, original[i].OrderIndex, copied[i].OrderIndex)
				assert.Equal(t, original[i].EntityID, copied[i].EntityID)
				assert.Equal(t, original[i].TagIDs, copied[i].TagIDs)
				assert.NotEqual(t, original[i].ID, copied[i].ID)
			}
		})

		t.Run("NameClash", func(t *testing.T) {
			_, err := cm.Duplicate(ctx, src.ID, "release (copy)")
			assert.True(t, businessflow.IsDuplicateName(err))

			dup, err := cm.Duplicate(ctx, src.ID, "Hotfix")
			require.NoError(t, err)
			assert.Equal(t, "Hotfix", dup.Name)
		})

		t.Run("UnknownSource", func(t *testing.T) {
			_, err := cm.Duplicate(ctx, 9999, "")
			assert.True(t, businessflow.IsContainerNotFound(err))
		})
	})
}

func TestContainerManagerInlineEdit(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		cm := f.containers
		c, err := cm.Create(ctx, models.ContainerKindProject, "Launch", "", "", "")
		require.NoError(t, err)

		rel, err := cm.AddEntity(ctx, c.ID, models.EntityTypeList, 3, "old", nil)
		require.NoError(t, err)
		note, err := cm.AddComponent(ctx, c.ID, models.ComponentTypeNote, "draft", nil)
		require.NoError(t, err)
		divider, err := cm.AddComponent(ctx, c.ID, models.ComponentTypeDivider, "", nil)
		require.NoError(t, err)

		t.Run("RelationDescription", func(t *testing.T) {
			before := len(f.events.actions(services.EntityRelation))
			updated, err := cm.UpdateRelationDescription(ctx, rel.ID, "  shopping list  ")
			require.NoError(t, err)
			assert.Equal(t, "shopping list", updated.Description)

			stored, err := cm.Relation(ctx, rel.ID)
			require.NoError(t, err)
			assert.Equal(t, "shopping list", stored.Description)
			assert.Equal(t, rel.OrderIndex, stored.OrderIndex)
			assert.Len(t, f.events.actions(services.EntityRelation), before+1)

			_, err = cm.UpdateRelationDescription(ctx, 9999, "x")
			assert.True(t, businessflow.IsRelationNotFound(err))
		})

		t.Run("ComponentContent", func(t *testing.T) {
			before := len(f.events.actions(services.EntityComponent))
			updated, err := cm.UpdateComponentContent(ctx, note.ID, "final text")
			require.NoError(t, err)
			assert.Equal(t, "final text", updated.Content)

			stored, err := cm.Component(ctx, note.ID)
			require.NoError(t, err)
			assert.Equal(t, "final text", stored.Content)
			assert.Equal(t, []string{services.ActionUpdated}, f.events.actions(services.EntityComponent)[before:])
		})

		t.Run("EmptyContentOnlyForDividers", func(t *testing.T) {
			_, err := cm.UpdateComponentContent(ctx, note.ID, "   ")
			assert.True(t, businessflow.IsValidation(err))

			stored, err := cm.Component(ctx, note.ID)
			require.NoError(t, err)
			assert.Equal(t, "final text", stored.Content)

			_, err = cm.UpdateComponentContent(ctx, divider.ID, "")
			require.NoError(t, err)
			_, err = cm.UpdateComponentContent(ctx, divider.ID, "section")
			require.NoError(t, err)

			_, err = cm.UpdateComponentContent(ctx, 9999, "x")
			assert.True(t, businessflow.IsComponentNotFound(err))
		})
	})
}
