package scheduler

import (
	"testing"
	"time"

	"github.com/amirphl/widget-sidebar/app/bootstrap"
	"github.com/amirphl/widget-sidebar/config"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderAuditor(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fx := testingutil.NewTestFixtures(testDB)
		flows := bootstrap.NewFlows(testDB.DB, nil, "", logger.NewNop())
		t.Cleanup(flows.Close)

		clean, err := fx.CreateTestContainer(models.ContainerKindArea, "Clean")
		require.NoError(t, err)
		_, err = fx.CreateTestRelation(clean.ID, models.EntityTypeItem, 1, 0)
		require.NoError(t, err)
		_, err = fx.CreateTestComponent(clean.ID, models.ComponentTypeDivider, "", 1)
		require.NoError(t, err)

		broken, err := fx.CreateTestContainer(models.ContainerKindProject, "Broken")
		require.NoError(t, err)
		_, err = fx.CreateTestRelation(broken.ID, models.EntityTypeItem, 1, 0)
		require.NoError(t, err)
		_, err = fx.CreateTestRelation(broken.ID, models.EntityTypeItem, 2, 0)
		require.NoError(t, err)

		used, err := fx.CreateTestCategory("Used")
		require.NoError(t, err)
		_, err = fx.CreateTestCategoryTag("kept", used.ID)
		require.NoError(t, err)
		_, err = fx.CreateTestCategoryTag("orphan")
		require.NoError(t, err)

		t.Run("ReportsWithoutRepairing", func(t *testing.T) {
			auditor := NewOrderAuditor(flows.Containers, flows.Engine, flows.Categories,
				config.MaintenanceConfig{Enabled: true, Interval: time.Hour}, logger.NewNop())

			report := auditor.RunOnce(ctx)
			assert.Equal(t, 2, report.Checked)
			assert.Equal(t, []uint{broken.ID}, report.Inconsistent)
			assert.Empty(t, report.Normalized)
			assert.Zero(t, report.PrunedTags)
			assert.Zero(t, report.Failures)

			require.Error(t, flows.Engine.CheckOrder(ctx, broken.ID))
		})

		t.Run("NormalizesAndPrunes", func(t *testing.T) {
			auditor := NewOrderAuditor(flows.Containers, flows.Engine, flows.Categories,
				config.MaintenanceConfig{Enabled: true, Interval: time.Hour, AutoNormalize: true, PruneCategoryTags: true}, logger.NewNop())

			report := auditor.RunOnce(ctx)
			assert.Equal(t, []uint{broken.ID}, report.Inconsistent)
			assert.Equal(t, []uint{broken.ID}, report.Normalized)
			assert.Equal(t, int64(1), report.PrunedTags)
			require.NoError(t, flows.Engine.CheckOrder(ctx, broken.ID))

			tags, err := flows.Categories.All(ctx)
			require.NoError(t, err)
			require.Len(t, tags, 1)
			assert.Equal(t, "kept", tags[0].Name)

			again := auditor.RunOnce(ctx)
			assert.Empty(t, again.Inconsistent)
		})
		return nil
	})
	require.NoError(t, err)
}
