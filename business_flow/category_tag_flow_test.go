package businessflow_test

import (
	"strings"
	"testing"

	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryTagFlow(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		ct := f.categories

		t.Run("CreateNormalizesName", func(t *testing.T) {
			tag, err := ct.Create(ctx, "  Finance ")
			require.NoError(t, err)
			assert.Equal(t, "finance", tag.Name)

			again, err := ct.Create(ctx, "FINANCE")
			require.NoError(t, err)
			assert.Equal(t, tag.ID, again.ID)

			got, err := ct.Get(ctx, tag.ID)
			require.NoError(t, err)
			assert.Equal(t, "finance", got.Name)
		})

		t.Run("CreateRejectsInvalidNames", func(t *testing.T) {
			_, err := ct.Create(ctx, "   ")
			assert.True(t, businessflow.IsValidation(err))
			_, err = ct.Create(ctx, strings.Repeat("a", 51))
			assert.True(t, businessflow.IsValidation(err))
		})

		t.Run("LookupAndSearch", func(t *testing.T) {
			_, err := ct.Create(ctx, "fitness")
			require.NoError(t, err)
			_, err = ct.Create(ctx, "travel")
			require.NoError(t, err)

			byName, err := ct.GetByName(ctx, "Travel")
			require.NoError(t, err)
			assert.Equal(t, "travel", byName.Name)

			_, err = ct.GetByName(ctx, "cooking")
			assert.True(t, businessflow.IsCategoryTagNotFound(err))
			_, err = ct.Get(ctx, 9999)
			assert.True(t, businessflow.IsCategoryTagNotFound(err))

			found, err := ct.Search(ctx, "FI")
			require.NoError(t, err)
			names := make([]string, 0, len(found))
			for _, tag := range found {
				names = append(names, tag.Name)
			}
			assert.Equal(t, []string{"finance", "fitness"}, names)

			all, err := ct.Search(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})

		t.Run("DeleteUnused", func(t *testing.T) {
			cat, err := f.fx.CreateTestCategory("Budget")
			require.NoError(t, err)
			used, err := ct.GetByName(ctx, "finance")
			require.NoError(t, err)
			require.NoError(t, f.db.DB.Create(&models.CategoryTagLink{CategoryID: cat.ID, TagID: used.ID}).Error)

			removed, err := ct.DeleteUnused(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), removed)

			all, err := ct.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "finance", all[0].Name)
		})
	})
}
