package models

import (
	"fmt"
	"strings"
	"time"
)

// Structural component types
const (
	ComponentTypeDivider = "divider"
	ComponentTypeComment = "comment"
	ComponentTypeAlert   = "alert"
	ComponentTypeNote    = "note"
)

// ComponentTypes lists the recognized component types
var ComponentTypes = []string{
	ComponentTypeDivider,
	ComponentTypeComment,
	ComponentTypeAlert,
	ComponentTypeNote,
}

// dividerWidth is the number of rule characters a divider renders as
const dividerWidth = 50

var componentIcons = map[string]string{
	ComponentTypeDivider: "─",
	ComponentTypeComment: "💬",
	ComponentTypeAlert:   "⚠️",
	ComponentTypeNote:    "📌",
}

// IsValidComponentType reports whether t is one of the recognized component types
func IsValidComponentType(t string) bool {
	_, ok := componentIcons[t]
	return ok
}

// Component is a structural block interleaved with relations
type Component struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ContainerID   uint      `gorm:"not null;index:idx_components_container_order,priority:1" json:"container_id"`
	ComponentType string    `gorm:"size:16;not null" json:"component_type"`
	Content       string    `gorm:"type:text" json:"content"`
	OrderIndex    int       `gorm:"not null;default:0;index:idx_components_container_order,priority:2" json:"order_index"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`

	Tags []ElementTag `gorm:"-" json:"tags,omitempty"`
}

func (Component) TableName() string { return "container_components" }

// NewComponent builds a component after checking its type and content
func NewComponent(containerID uint, componentType, content string, orderIndex int) (*Component, error) {
	if !IsValidComponentType(componentType) {
		return nil, fmt.Errorf("invalid component type %q", componentType)
	}
	if componentType != ComponentTypeDivider && strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required for %s components", componentType)
	}
	return &Component{
		ContainerID:   containerID,
		ComponentType: componentType,
		Content:       content,
		OrderIndex:    orderIndex,
	}, nil
}

// Icon returns the display icon of the component type
func (c *Component) Icon() string {
	if icon, ok := componentIcons[c.ComponentType]; ok {
		return icon
	}
	return "•"
}

// DisplayText returns the text shown for the component
func (c *Component) DisplayText() string {
	if c.ComponentType == ComponentTypeDivider {
		return strings.Repeat("─", dividerWidth)
	}
	return c.Content
}

// TagIDs returns the ids of the loaded tags
func (c *Component) TagIDs() []uint {
	ids := make([]uint, 0, len(c.Tags))
	for _, t := range c.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// ComponentFilter represents filter criteria for component queries
type ComponentFilter struct {
	ID            *uint
	ContainerID   *uint
	ComponentType *string
}
