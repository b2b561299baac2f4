package businessflow_test

import (
	"strings"
	"testing"

	"github.com/amirphl/widget-sidebar/app/services"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagNames(tags []*models.ElementTag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}

func TestValidateColor(t *testing.T) {
	for _, c := range []string{"#fff", "#FFF", "#3498db", "#A1b2C3"} {
		assert.NoError(t, businessflow.ValidateColor(c), c)
	}
	for _, c := range []string{"", "fff", "#ff", "#ffff", "#12345g", "#1234567", "red"} {
		err := businessflow.ValidateColor(c)
		assert.True(t, businessflow.IsValidation(err), "%q should be rejected", c)
	}
}

func TestValidateTagName(t *testing.T) {
	for _, n := range []string{"Backend", "front-end", "to_do", "v2 api"} {
		assert.NoError(t, businessflow.ValidateTagName(n), n)
	}
	for _, n := range []string{"", "   ", "a/b", "semi;colon", strings.Repeat("x", 51)} {
		assert.True(t, businessflow.IsValidation(businessflow.ValidateTagName(n)), "%q should be rejected", n)
	}
	assert.NoError(t, businessflow.ValidateTagName(strings.Repeat("x", 50)))
}

func TestTagManagerVocabulary(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		tags := f.areaTags

		t.Run("CreateAndSearch", func(t *testing.T) {
			backend, err := tags.Create(ctx, "Backend", "#3498db", "server side")
			require.NoError(t, err)
			assert.NotZero(t, backend.ID)
			assert.Equal(t, models.ContainerKindArea, backend.Kind)

			found, err := tags.Search(ctx, "back")
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, backend.ID, found[0].ID)

			found, err = tags.Search(ctx, "BACK")
			require.NoError(t, err)
			assert.Len(t, found, 1)
			assert.Contains(t, f.events.actions(services.EntityElementTag), services.ActionCreated)
		})

		t.Run("RejectsDuplicateName", func(t *testing.T) {
			_, err := tags.Create(ctx, "Backend", "#000", "")
			assert.True(t, businessflow.IsDuplicateName(err))
		})

		t.Run("SameNameInOtherKind", func(t *testing.T) {
			tag, err := f.projectTags.Create(ctx, "Backend", "#000", "")
			require.NoError(t, err)
			assert.Equal(t, models.ContainerKindProject, tag.Kind)

			_, err = tags.Get(ctx, tag.ID)
			assert.True(t, businessflow.IsTagNotFound(err))
		})

		t.Run("RejectsInvalidInput", func(t *testing.T) {
			_, err := tags.Create(ctx, "", "#000", "")
			assert.True(t, businessflow.IsValidation(err))
			_, err = tags.Create(ctx, "nocolor", "", "")
			assert.True(t, businessflow.IsValidation(err))
			_, err = tags.Create(ctx, "bad", "blue", "")
			assert.True(t, businessflow.IsValidation(err))
		})

		t.Run("GetAllIsSortedAndCached", func(t *testing.T) {
			_, err := tags.Create(ctx, "alpha", "#111", "")
			require.NoError(t, err)
			_, err = tags.Create(ctx, "Zulu", "#222", "")
			require.NoError(t, err)

			all, err := tags.GetAll(ctx, false)
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha", "Backend", "Zulu"}, tagNames(all))

			// a tag written behind the manager's back only shows after refresh
			_, err = f.fx.CreateTestElementTag(models.ContainerKindArea, "middle")
			require.NoError(t, err)
			all, err = tags.GetAll(ctx, false)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			before := len(f.events.actions(services.EntityElementTag))
			all, err = tags.GetAll(ctx, true)
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha", "Backend", "middle", "Zulu"}, tagNames(all))
			assert.Equal(t, []string{services.ActionInvalidated}, f.events.actions(services.EntityElementTag)[before:])

			reversed, err := tags.Sorted(ctx, true)
			require.NoError(t, err)
			assert.Equal(t, []string{"Zulu", "middle", "Backend", "alpha"}, tagNames(reversed))
		})

		t.Run("ReturnedTagsAreCopies", func(t *testing.T) {
			tag, err := tags.GetByName(ctx, "alpha")
			require.NoError(t, err)
			tag.Name = "mutated"

			again, err := tags.Get(ctx, tag.ID)
			require.NoError(t, err)
			assert.Equal(t, "alpha", again.Name)
		})

		t.Run("Update", func(t *testing.T) {
			tag, err := tags.GetByName(ctx, "alpha")
			require.NoError(t, err)

			name, color := "Alpha", "#abcdef"
			updated, err := tags.Update(ctx, tag.ID, models.ElementTagUpdate{Name: &name, Color: &color})
			require.NoError(t, err)
			assert.Equal(t, "Alpha", updated.Name)
			assert.Equal(t, "#abcdef", updated.Color)

			got, err := tags.Get(ctx, tag.ID)
			require.NoError(t, err)
			assert.Equal(t, "Alpha", got.Name)

			taken := "Zulu"
			_, err = tags.Update(ctx, tag.ID, models.ElementTagUpdate{Name: &taken})
			assert.True(t, businessflow.IsDuplicateName(err))

			bad := "nope"
			_, err = tags.Update(ctx, tag.ID, models.ElementTagUpdate{Color: &bad})
			assert.True(t, businessflow.IsValidation(err))

			_, err = tags.Update(ctx, 9999, models.ElementTagUpdate{Color: &color})
			assert.True(t, businessflow.IsTagNotFound(err))
		})

		t.Run("FilterByName", func(t *testing.T) {
			all, err := tags.GetAll(ctx, false)
			require.NoError(t, err)
			assert.Equal(t, []string{"middle"}, tagNames(tags.FilterByName(all, " MID ")))
			assert.Len(t, tags.FilterByName(all, ""), len(all))
		})
	})
}

func TestTagManagerAssociations(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		tags := f.areaTags
		c, err := f.fx.CreateTestContainer(models.ContainerKindArea, "Tagged")
		require.NoError(t, err)
		rels := seedRelations(t, f, c.ID, 0, 1)
		comp, err := f.fx.CreateTestComponent(c.ID, models.ComponentTypeNote, "n", 2)
		require.NoError(t, err)

		red, err := tags.Create(ctx, "red", "#f00", "")
		require.NoError(t, err)
		green, err := tags.Create(ctx, "green", "#0f0", "")
		require.NoError(t, err)
		blue, err := tags.Create(ctx, "blue", "#00f", "")
		require.NoError(t, err)

		t.Run("AssignReplacesTheSet", func(t *testing.T) {
			require.NoError(t, tags.AssignToRelation(ctx, rels[0].ID, []uint{red.ID, green.ID}))
			require.NoError(t, tags.AssignToRelation(ctx, rels[0].ID, []uint{blue.ID}))

			got, err := tags.TagsForRelation(ctx, rels[0].ID)
			require.NoError(t, err)
			assert.Equal(t, []uint{blue.ID}, models.TagIDs(got))
			assert.Contains(t, f.events.actions(services.EntityRelation), services.ActionTagsChanged)
		})

		t.Run("AssignEmptyClears", func(t *testing.T) {
			require.NoError(t, tags.AssignToRelation(ctx, rels[1].ID, []uint{red.ID}))
			require.NoError(t, tags.AssignToRelation(ctx, rels[1].ID, nil))
			got, err := tags.TagsForRelation(ctx, rels[1].ID)
			require.NoError(t, err)
			assert.Empty(t, got)
		})

		t.Run("AssignRejectsUnknownTags", func(t *testing.T) {
			other, err := f.projectTags.Create(ctx, "foreign", "#123", "")
			require.NoError(t, err)
			err = tags.AssignToComponent(ctx, comp.ID, []uint{red.ID, other.ID})
			assert.True(t, businessflow.IsTagNotFound(err))

			got, err := tags.TagsForComponent(ctx, comp.ID)
			require.NoError(t, err)
			assert.Empty(t, got)
		})

		t.Run("AddAndRemove", func(t *testing.T) {
			require.NoError(t, tags.AddToComponent(ctx, comp.ID, red.ID))
			require.NoError(t, tags.AddToComponent(ctx, comp.ID, red.ID))
			require.NoError(t, tags.AddToComponent(ctx, comp.ID, green.ID))
			got, err := tags.TagsForComponent(ctx, comp.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"green", "red"}, tagNames(got))

			require.NoError(t, tags.RemoveFromComponent(ctx, comp.ID, green.ID))
			require.NoError(t, tags.AddToRelation(ctx, rels[1].ID, red.ID))
			require.NoError(t, tags.RemoveFromRelation(ctx, rels[1].ID, blue.ID))

			compIDs, err := tags.ComponentsByTag(ctx, red.ID)
			require.NoError(t, err)
			assert.Equal(t, []uint{comp.ID}, compIDs)
			relIDs, err := tags.RelationsByTag(ctx, red.ID)
			require.NoError(t, err)
			assert.Equal(t, []uint{rels[1].ID}, relIDs)
		})

		t.Run("UsageAndPopular", func(t *testing.T) {
			n, err := tags.UsageCount(ctx, red.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			popular, err := tags.Popular(ctx, 0)
			require.NoError(t, err)
			require.Len(t, popular, 2)
			assert.Equal(t, red.ID, popular[0].Tag.ID)
			assert.Equal(t, int64(2), popular[0].Count)
			assert.Equal(t, blue.ID, popular[1].Tag.ID)

			top, err := tags.Popular(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, top, 1)
		})

		t.Run("TagsForContainer", func(t *testing.T) {
			got, err := tags.TagsForContainer(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"blue", "red"}, tagNames(got))
		})

		t.Run("DeleteRemovesAssociations", func(t *testing.T) {
			require.NoError(t, tags.Delete(ctx, red.ID))

			got, err := tags.TagsForComponent(ctx, comp.ID)
			require.NoError(t, err)
			assert.Empty(t, got)
			_, err = tags.Get(ctx, red.ID)
			assert.True(t, businessflow.IsTagNotFound(err))
			assert.True(t, businessflow.IsTagNotFound(tags.Delete(ctx, red.ID)))
		})
	})
}

func TestTagManagerBatches(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		tags := f.projectTags

		_, err := tags.Create(ctx, "existing", "#000", "")
		require.NoError(t, err)

		created, err := tags.CreateBatch(ctx, []businessflow.TagSpec{
			{Name: " one "},
			{Name: "two", Color: "#3776ab", Description: "second"},
			{Name: ""},
			{Name: "existing"},
			{Name: "bad/name"},
			{Name: "four", Color: "purple"},
			{Name: "three", Color: "#fff"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, tagNames(created))
		assert.Equal(t, "#9b59b6", created[0].Color)
		assert.Equal(t, "#3776ab", created[1].Color)
		assert.Equal(t, "second", created[1].Description)
		assert.Equal(t, "#fff", created[2].Color)

		_, err = tags.GetByName(ctx, "four")
		assert.True(t, businessflow.IsTagNotFound(err))

		ids := models.TagIDs(created)
		deleted, err := tags.DeleteBatch(ctx, append(ids, ids[0], 9999))
		require.NoError(t, err)
		assert.Equal(t, 3, deleted)

		all, err := tags.GetAll(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"existing"}, tagNames(all))
	})
}
