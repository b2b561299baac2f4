package businessflow_test

import (
	"testing"

	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterEngine(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		fe := f.filter
		c, err := f.containers.Create(ctx, models.ContainerKindArea, "Focus", "", "", "")
		require.NoError(t, err)
		_, err = f.containers.AddEntity(ctx, c.ID, models.EntityTypeList, 3, "", nil)
		require.NoError(t, err)
		_, err = f.containers.AddEntity(ctx, c.ID, models.EntityTypeList, 7, "", nil)
		require.NoError(t, err)
		_, err = f.containers.AddEntity(ctx, c.ID, models.EntityTypeProcess, 2, "", nil)
		require.NoError(t, err)

		t.Run("InactiveByDefault", func(t *testing.T) {
			assert.False(t, fe.IsActive())
			_, err := fe.Active(ctx)
			assert.True(t, businessflow.IsNoActiveContainer(err))

			ids, err := fe.EntityIDs(ctx, models.EntityTypeList)
			require.NoError(t, err)
			assert.Empty(t, ids)

			passed, err := fe.FilterIDs(ctx, models.EntityTypeList, []uint{1, 2, 3})
			require.NoError(t, err)
			assert.Equal(t, []uint{1, 2, 3}, passed)

			stats, err := fe.Stats(ctx)
			require.NoError(t, err)
			assert.False(t, stats.Active)
		})

		t.Run("SetActive", func(t *testing.T) {
			active, err := fe.SetActive(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, "Focus", active.Name)
			assert.True(t, fe.IsActive())

			_, err = fe.SetActive(ctx, 9999)
			assert.True(t, businessflow.IsContainerNotFound(err))
			got, err := fe.Active(ctx)
			require.NoError(t, err)
			assert.Equal(t, c.ID, got.ID)
		})

		t.Run("RestrictsToLinkedEntities", func(t *testing.T) {
			ids, err := fe.EntityIDs(ctx, models.EntityTypeList)
			require.NoError(t, err)
			assert.ElementsMatch(t, []uint{3, 7}, ids)

			ok, err := fe.ContainsEntity(ctx, models.EntityTypeProcess, 2)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = fe.ContainsEntity(ctx, models.EntityTypeProcess, 3)
			require.NoError(t, err)
			assert.False(t, ok)

			kept, err := fe.FilterIDs(ctx, models.EntityTypeList, []uint{1, 3, 5, 7})
			require.NoError(t, err)
			assert.Equal(t, []uint{3, 7}, kept)

			_, err = fe.EntityIDs(ctx, "widget")
			assert.True(t, businessflow.IsValidation(err))
		})

		t.Run("RefreshesOnContainerChange", func(t *testing.T) {
			_, err := f.containers.AddEntity(ctx, c.ID, models.EntityTypeList, 11, "", nil)
			require.NoError(t, err)
			ids, err := fe.EntityIDs(ctx, models.EntityTypeList)
			require.NoError(t, err)
			assert.ElementsMatch(t, []uint{3, 7, 11}, ids)
		})

		t.Run("Stats", func(t *testing.T) {
			stats, err := fe.Stats(ctx)
			require.NoError(t, err)
			assert.True(t, stats.Active)
			assert.Equal(t, "Focus", stats.ContainerName)
			assert.Equal(t, "area", stats.Kind)
			assert.Equal(t, 3, stats.EntityCounts["lists"])
			assert.Equal(t, 1, stats.EntityCounts["processes"])
			assert.Equal(t, 0, stats.EntityCounts["categories"])
		})

		t.Run("Clear", func(t *testing.T) {
			fe.Clear()
			assert.False(t, fe.IsActive())
			ok, err := fe.ContainsEntity(ctx, models.EntityTypeList, 3)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("DeletingActiveContainerClearsFilter", func(t *testing.T) {
			_, err := fe.SetActive(ctx, c.ID)
			require.NoError(t, err)
			require.NoError(t, f.containers.Delete(ctx, c.ID))
			assert.False(t, fe.IsActive())
		})
	})
}
