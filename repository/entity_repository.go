package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/widget-sidebar/models"
	"gorm.io/gorm"
)

// entityTables maps an entity type to its table and the columns read as name
// and content
var entityTables = map[string]struct {
	table   string
	name    string
	content string
}{
	models.EntityTypeTag:      {table: "tags", name: "name"},
	models.EntityTypeItem:     {table: "items", name: "label", content: "content"},
	models.EntityTypeList:     {table: "listas", name: "name"},
	models.EntityTypeProcess:  {table: "processes", name: "name"},
	models.EntityTypeTable:    {table: "tables", name: "name"},
	models.EntityTypeCategory: {table: "categories", name: "name"},
}

// EntityRepositoryImpl implements EntityRepository interface
type EntityRepositoryImpl struct {
	*BaseRepository[models.EntityRecord, struct{}]
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *gorm.DB) EntityRepository {
	return &EntityRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EntityRecord, struct{}](db),
	}
}

// Lookup reads the display fields of one entity. Unknown types and missing
// rows yield nil, nil.
func (r *EntityRepositoryImpl) Lookup(ctx context.Context, entityType string, id uint) (*models.EntityRecord, error) {
	tbl, ok := entityTables[entityType]
	if !ok {
		return nil, nil
	}

	columns := tbl.name + " AS name"
	if tbl.content != "" {
		columns += ", " + tbl.content + " AS content"
	}

	var rec models.EntityRecord
	res := r.getDB(ctx).Table(tbl.table).Select(columns).Where("id = ?", id).Limit(1).Scan(&rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s %d: %w", entityType, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &rec, nil
}
