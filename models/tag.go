package models

import (
	"strings"
	"time"
)

// ElementTag is a user-defined label attachable to relations and components
// of one container kind
type ElementTag struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Kind        ContainerKind `gorm:"type:varchar(16);not null;uniqueIndex:uk_element_tags_kind_name,priority:1" json:"kind"`
	Name        string        `gorm:"size:50;not null;uniqueIndex:uk_element_tags_kind_name,priority:2" json:"name"`
	Color       string        `gorm:"size:7;not null" json:"color"`
	Description string        `gorm:"type:text" json:"description"`
	CreatedAt   time.Time     `gorm:"not null;index:idx_element_tags_created_at" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (ElementTag) TableName() string { return "element_tags" }

// Equal compares tags by identity only
func (t ElementTag) Equal(other ElementTag) bool {
	return t.ID == other.ID
}

// ElementTagFilter represents filter criteria for element tag queries
type ElementTagFilter struct {
	ID            *uint
	Kind          *ContainerKind
	Name          *string
	IDs           []uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ElementTagUpdate carries the optional fields of a tag update
type ElementTagUpdate struct {
	Name        *string
	Color       *string
	Description *string
}

// IsEmpty reports whether no field is set
func (u ElementTagUpdate) IsEmpty() bool {
	return u.Name == nil && u.Color == nil && u.Description == nil
}

// TagIDs returns the ids of tags in order
func TagIDs(tags []*ElementTag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// FilterTagsByName keeps tags whose name contains query, ignoring case
func FilterTagsByName(tags []*ElementTag, query string) []*ElementTag {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return tags
	}
	out := make([]*ElementTag, 0, len(tags))
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t.Name), query) {
			out = append(out, t)
		}
	}
	return out
}

// RelationTag associates an element tag with a relation
type RelationTag struct {
	RelationID uint      `gorm:"primaryKey;autoIncrement:false" json:"relation_id"`
	TagID      uint      `gorm:"primaryKey;autoIncrement:false;index:idx_relation_tags_tag_id" json:"tag_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (RelationTag) TableName() string { return "relation_tags" }

// ComponentTag associates an element tag with a component
type ComponentTag struct {
	ComponentID uint      `gorm:"primaryKey;autoIncrement:false" json:"component_id"`
	TagID       uint      `gorm:"primaryKey;autoIncrement:false;index:idx_component_tags_tag_id" json:"tag_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (ComponentTag) TableName() string { return "component_tags" }
