package businessflow_test

import (
	"bytes"
	"testing"

	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	testingutil "github.com/amirphl/widget-sidebar/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// seedExportable builds a project with two relations, a component between
// them and one tag on each kind of entry
func seedExportable(t *testing.T, f *flows) *models.Container {
	t.Helper()
	ctx := testingutil.CreateTestContext()
	item, err := f.fx.CreateTestItem("Buy milk", "2 litres")
	require.NoError(t, err)

	c, err := f.containers.Create(ctx, models.ContainerKindProject, "Road Map", "q3 plan", "#336699", "")
	require.NoError(t, err)
	rel, err := f.containers.AddEntity(ctx, c.ID, models.EntityTypeItem, item.ID, "errand", nil)
	require.NoError(t, err)
	comp, err := f.containers.AddComponent(ctx, c.ID, models.ComponentTypeComment, "next up", nil)
	require.NoError(t, err)
	_, err = f.containers.AddEntity(ctx, c.ID, models.EntityTypeList, 42, "", nil)
	require.NoError(t, err)

	tag, err := f.projectTags.Create(ctx, "home", "#00ff00", "")
	require.NoError(t, err)
	require.NoError(t, f.projectTags.AssignToRelation(ctx, rel.ID, []uint{tag.ID}))
	require.NoError(t, f.projectTags.AssignToComponent(ctx, comp.ID, []uint{tag.ID}))
	return c
}

func TestExportFlowDocuments(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()
		c := seedExportable(t, f)

		t.Run("BuildDocument", func(t *testing.T) {
			doc, err := f.exports.BuildDocument(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, "1.0", doc.Version)
			assert.Equal(t, "Road Map", doc.Container.Name)
			assert.Equal(t, models.ContainerKindProject, doc.Container.Kind)
			require.Len(t, doc.Relations, 2)
			require.Len(t, doc.Components, 1)
			assert.Equal(t, []string{"home"}, doc.Relations[0].Tags)
			assert.Empty(t, doc.Relations[1].Tags)
			assert.Equal(t, 1, doc.Components[0].OrderIndex)
			assert.Equal(t, []string{"home"}, doc.Components[0].Tags)
		})

		t.Run("Summary", func(t *testing.T) {
			summary, err := f.exports.ExportSummary(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, summary.TotalRelations)
			assert.Equal(t, 1, summary.TotalComponents)
			assert.Equal(t, 1, summary.RelationsByType[models.EntityTypeList])
			assert.Equal(t, 1, summary.ComponentsByType[models.ComponentTypeComment])
		})

		for _, format := range []string{"json", "yaml", "YML"} {
			t.Run("RoundTrip_"+format, func(t *testing.T) {
				name, data, err := f.exports.Export(ctx, c.ID, format)
				require.NoError(t, err)
				assert.Equal(t, "project_Road_Map."+businessflow.NormalizeFormat(format, ""), name)

				doc, err := f.exports.ParseDocument(data, format)
				require.NoError(t, err)
				doc.Container.Name = "Imported " + format

				imported, err := f.exports.Import(ctx, doc, businessflow.ImportModeNew)
				require.NoError(t, err)
				original, err := f.assembler.Assemble(ctx, c.ID)
				require.NoError(t, err)
				copied, err := f.assembler.Assemble(ctx, imported.ID)
				require.NoError(t, err)
				require.Len(t, copied, len(original))
				for i := range original {
					assert.Equal(t, original[i].Kind, copied[i].Kind)
					assert.Equal(t, original[i].EntityID, copied[i].EntityID)
					assert.Equal(t, original[i].Content, copied[i].Content)
					assert.Equal(t, original[i].TagIDs, copied[i].TagIDs)
				}
			})
		}

		t.Run("Spreadsheet", func(t *testing.T) {
			name, data, err := f.exports.Export(ctx, c.ID, "xlsx")
			require.NoError(t, err)
			assert.Equal(t, "project_Road_Map.xlsx", name)

			xl, err := excelize.OpenReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer func() { _ = xl.Close() }()

			rows, err := xl.GetRows("Road Map")
			require.NoError(t, err)
			require.Len(t, rows, 4)
			assert.Equal(t, "order", rows[0][0])
			assert.Equal(t, []string{"0", "relation", "item"}, rows[1][:3])
			assert.Equal(t, "Buy milk", rows[1][4])
			assert.Equal(t, "2 litres", rows[1][6])
			assert.Equal(t, "home", rows[1][7])
			assert.Equal(t, "component", rows[2][1])
			assert.Equal(t, "next up", rows[2][6])
		})

		t.Run("SpreadsheetQuotedNames", func(t *testing.T) {
			for name, sheet := range map[string]string{"'quoted'": "quoted", "' '": "Sheet"} {
				quoted, err := f.containers.Create(ctx, models.ContainerKindArea, name, "", "", "")
				require.NoError(t, err)
				_, err = f.containers.AddComponent(ctx, quoted.ID, models.ComponentTypeNote, "inside", nil)
				require.NoError(t, err)

				_, data, err := f.exports.Export(ctx, quoted.ID, "xlsx")
				require.NoError(t, err, name)
				require.NotEmpty(t, data)

				xl, err := excelize.OpenReader(bytes.NewReader(data))
				require.NoError(t, err)
				rows, err := xl.GetRows(sheet)
				require.NoError(t, err)
				require.Len(t, rows, 2)
				assert.Equal(t, "inside", rows[1][6])
				_ = xl.Close()
			}
		})

		t.Run("Errors", func(t *testing.T) {
			_, _, err := f.exports.Export(ctx, c.ID, "csv")
			assert.True(t, businessflow.IsUnsupportedFormat(err))
			_, _, err = f.exports.Export(ctx, 9999, "json")
			assert.True(t, businessflow.IsContainerNotFound(err))
			_, err = f.exports.ParseDocument([]byte("{not json"), "json")
			assert.True(t, businessflow.IsInvalidDocument(err))
			_, err = f.exports.ParseDocument([]byte("{}"), "xlsx")
			assert.True(t, businessflow.IsUnsupportedFormat(err))
		})
	})
}

func TestExportFlowImport(t *testing.T) {
	withDB(t, func(f *flows) {
		ctx := testingutil.CreateTestContext()

		doc := &businessflow.ExportDocument{
			Version:   "1.0",
			Container: businessflow.ExportedContainer{Kind: models.ContainerKindArea, Name: "Garden"},
			Relations: []businessflow.ExportedRelation{
				{EntityType: models.EntityTypeItem, EntityID: 9, OrderIndex: 5, Tags: []string{"outdoor"}},
				{EntityType: models.EntityTypeTag, EntityID: 2, OrderIndex: 1},
			},
			Components: []businessflow.ExportedComponent{
				{ComponentType: models.ComponentTypeDivider, OrderIndex: 1},
				{ComponentType: models.ComponentTypeNote, Content: "water daily", OrderIndex: 7, Tags: []string{"outdoor", "bad/tag"}},
			},
		}

		var garden *models.Container
		t.Run("NewKeepsRelativeOrder", func(t *testing.T) {
			var err error
			garden, err = f.exports.Import(ctx, doc, businessflow.ImportModeNew)
			require.NoError(t, err)

			entries, err := f.assembler.Assemble(ctx, garden.ID)
			require.NoError(t, err)
			require.Len(t, entries, 4)
			assert.Equal(t, []int{0, 1, 2, 3}, orderIndexes(entries))
			assert.Equal(t, uint(2), entries[0].EntityID)
			assert.Equal(t, models.ComponentTypeDivider, entries[1].ComponentType)
			assert.Equal(t, uint(9), entries[2].EntityID)
			assert.Equal(t, "water daily", entries[3].Content)

			outdoor, err := f.areaTags.GetByName(ctx, "outdoor")
			require.NoError(t, err)
			assert.Equal(t, []uint{outdoor.ID}, entries[2].TagIDs)
			assert.Equal(t, []uint{outdoor.ID}, entries[3].TagIDs)
		})

		t.Run("NewRejectsExistingName", func(t *testing.T) {
			_, err := f.exports.Import(ctx, doc, businessflow.ImportModeNew)
			assert.True(t, businessflow.IsDuplicateName(err))
		})

		t.Run("MergeAppends", func(t *testing.T) {
			extra := &businessflow.ExportDocument{
				Container: businessflow.ExportedContainer{Kind: models.ContainerKindArea, Name: "garden"},
				Relations: []businessflow.ExportedRelation{{EntityType: models.EntityTypeProcess, EntityID: 4}},
			}
			merged, err := f.exports.Import(ctx, extra, businessflow.ImportModeMerge)
			require.NoError(t, err)
			assert.Equal(t, garden.ID, merged.ID)

			entries, err := f.assembler.Assemble(ctx, garden.ID)
			require.NoError(t, err)
			require.Len(t, entries, 5)
			assert.Equal(t, 4, entries[4].OrderIndex)
			assert.Equal(t, models.EntityTypeProcess, entries[4].EntityType)
		})

		t.Run("MergeCreatesMissingContainer", func(t *testing.T) {
			fresh := &businessflow.ExportDocument{Container: businessflow.ExportedContainer{Name: "Attic"}}
			c, err := f.exports.Import(ctx, fresh, businessflow.ImportModeMerge)
			require.NoError(t, err)
			assert.Equal(t, models.ContainerKindArea, c.Kind)
		})

		t.Run("RejectsInvalidDocuments", func(t *testing.T) {
			_, err := f.exports.Import(ctx, nil, "")
			assert.True(t, businessflow.IsInvalidDocument(err))
			_, err = f.exports.Import(ctx, &businessflow.ExportDocument{}, "")
			assert.True(t, businessflow.IsInvalidDocument(err))

			bad := &businessflow.ExportDocument{
				Container: businessflow.ExportedContainer{Name: "Broken"},
				Relations: []businessflow.ExportedRelation{{EntityType: "widget", EntityID: 1}},
			}
			_, err = f.exports.Import(ctx, bad, "")
			assert.True(t, businessflow.IsInvalidDocument(err))

			_, err = f.exports.Import(ctx, &businessflow.ExportDocument{Container: businessflow.ExportedContainer{Name: "Modes"}}, "replace")
			assert.True(t, businessflow.IsValidation(err))
		})

		t.Run("FailedImportRemovesCreatedContainer", func(t *testing.T) {
			broken := &businessflow.ExportDocument{
				Container:  businessflow.ExportedContainer{Name: "Half Done"},
				Relations:  []businessflow.ExportedRelation{{EntityType: models.EntityTypeItem, EntityID: 1}},
				Components: []businessflow.ExportedComponent{{ComponentType: models.ComponentTypeAlert, Content: "  ", OrderIndex: 1}},
			}
			_, err := f.exports.Import(ctx, broken, businessflow.ImportModeNew)
			assert.True(t, businessflow.IsValidation(err))

			found, err := f.containers.Search(ctx, models.ContainerKindArea, "half done")
			require.NoError(t, err)
			assert.Empty(t, found)
		})
	})
}
