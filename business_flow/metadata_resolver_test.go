package businessflow_test

import (
	"testing"

	"github.com/amirphl/widget-sidebar/models"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataResolver(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		item, err := f.fx.CreateTestItem("Passport", "renew by june")
		require.NoError(t, err)
		cat, err := f.fx.CreateTestCategory("Travel")
		require.NoError(t, err)

		t.Run("KnownEntity", func(t *testing.T) {
			meta := f.resolver.Resolve(ctx, models.EntityTypeItem, item.ID)
			assert.Equal(t, "📝", meta.Icon)
			assert.Equal(t, "Item", meta.Label)
			assert.Equal(t, "Passport", meta.Name)
			assert.Equal(t, "renew by june", meta.Content)

			meta = f.resolver.Resolve(ctx, models.EntityTypeCategory, cat.ID)
			assert.Equal(t, "📁", meta.Icon)
			assert.Equal(t, "Travel", meta.Name)
			assert.Empty(t, meta.Content)
		})

		t.Run("MissingEntityKeepsPresentation", func(t *testing.T) {
			meta := f.resolver.Resolve(ctx, models.EntityTypeProcess, 9999)
			assert.Equal(t, "🔄", meta.Icon)
			assert.Equal(t, "Process", meta.Label)
			assert.Empty(t, meta.Name)
		})

		t.Run("UnknownTypeFallsBack", func(t *testing.T) {
			meta := f.resolver.Resolve(ctx, "gadget", 1)
			assert.Equal(t, "📄", meta.Icon)
			assert.Equal(t, "Gadget", meta.Label)
			assert.Equal(t, uint(1), meta.ID)

			assert.Equal(t, "Custom_Type", f.resolver.Resolve(ctx, "custom_type", 2).Label)
		})
	})
}
