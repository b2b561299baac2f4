// Package models contains the persistent domain types and their filters
package models

import (
	"time"
)

// ContainerKind distinguishes the two container flavours that share one model
type ContainerKind string

const (
	ContainerKindArea    ContainerKind = "area"
	ContainerKindProject ContainerKind = "project"
)

// ContainerKinds lists every supported kind
var ContainerKinds = []ContainerKind{ContainerKindArea, ContainerKindProject}

// Valid reports whether k is a known container kind
func (k ContainerKind) Valid() bool {
	return k == ContainerKindArea || k == ContainerKindProject
}

func (k ContainerKind) String() string {
	return string(k)
}

// Container is an area or project grouping relations and components
type Container struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Kind        ContainerKind `gorm:"type:varchar(16);not null;index:idx_containers_kind_name,priority:1" json:"kind"`
	Name        string        `gorm:"size:100;not null;index:idx_containers_kind_name,priority:2" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Color       string        `gorm:"size:7;not null" json:"color"`
	Icon        string        `gorm:"size:16;not null" json:"icon"`
	IsActive    *bool         `gorm:"not null;default:true;index:idx_containers_is_active" json:"is_active"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`

	Relations  []Relation  `gorm:"foreignKey:ContainerID" json:"-"`
	Components []Component `gorm:"foreignKey:ContainerID" json:"-"`
}

func (Container) TableName() string { return "containers" }

// ContainerFilter represents filter criteria for container queries
type ContainerFilter struct {
	ID            *uint
	Kind          *ContainerKind
	Name          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ContainerUpdate carries the optional fields of a container update
type ContainerUpdate struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
	IsActive    *bool
}

// IsEmpty reports whether no field is set
func (u ContainerUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Color == nil && u.Icon == nil && u.IsActive == nil
}
