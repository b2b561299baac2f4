package models

import (
	"fmt"
	"time"
)

// Entity types a relation may point to
const (
	EntityTypeTag      = "tag"
	EntityTypeProcess  = "process"
	EntityTypeList     = "list"
	EntityTypeTable    = "table"
	EntityTypeCategory = "category"
	EntityTypeItem     = "item"
)

// EntityTypes lists the recognized entity types in display order
var EntityTypes = []string{
	EntityTypeTag,
	EntityTypeProcess,
	EntityTypeList,
	EntityTypeTable,
	EntityTypeCategory,
	EntityTypeItem,
}

// IsValidEntityType reports whether t is one of the recognized entity types
func IsValidEntityType(t string) bool {
	for _, et := range EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// EntityTypeGroupKey returns the plural key used when grouping relations by type
func EntityTypeGroupKey(t string) string {
	switch t {
	case EntityTypeProcess:
		return "processes"
	case EntityTypeCategory:
		return "categories"
	default:
		return t + "s"
	}
}

// Relation links an existing entity to a container
type Relation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContainerID uint      `gorm:"not null;index:idx_relations_container_order,priority:1" json:"container_id"`
	EntityType  string    `gorm:"size:16;not null;index:idx_relations_entity,priority:1" json:"entity_type"`
	EntityID    uint      `gorm:"not null;index:idx_relations_entity,priority:2" json:"entity_id"`
	Description string    `gorm:"type:text" json:"description"`
	OrderIndex  int       `gorm:"not null;default:0;index:idx_relations_container_order,priority:2" json:"order_index"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`

	Tags []ElementTag `gorm:"-" json:"tags,omitempty"`
}

func (Relation) TableName() string { return "container_relations" }

// NewRelation builds a relation after checking its entity type
func NewRelation(containerID uint, entityType string, entityID uint, description string, orderIndex int) (*Relation, error) {
	if !IsValidEntityType(entityType) {
		return nil, fmt.Errorf("invalid entity type %q", entityType)
	}
	return &Relation{
		ContainerID: containerID,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		OrderIndex:  orderIndex,
	}, nil
}

// TagIDs returns the ids of the loaded tags
func (r *Relation) TagIDs() []uint {
	ids := make([]uint, 0, len(r.Tags))
	for _, t := range r.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// RelationFilter represents filter criteria for relation queries
type RelationFilter struct {
	ID          *uint
	ContainerID *uint
	EntityType  *string
	EntityID    *uint
}
