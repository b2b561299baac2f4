package models

import (
	"time"
)

// The tables below belong to the wider application; containers only link to
// them and read display fields.

// Tag is a global entity tag referenced by relations of type "tag"
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:uk_tags_name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Tag) TableName() string { return "tags" }

// Item is a clipboard item
type Item struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Label     string    `gorm:"size:255;not null" json:"label"`
	Content   string    `gorm:"type:text" json:"content"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Item) TableName() string { return "items" }

// List is a named list of items
type List struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (List) TableName() string { return "listas" }

// Process is a saved multi-step process
type Process struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Process) TableName() string { return "processes" }

// Table is a user-defined data table
type Table struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Table) TableName() string { return "tables" }

// Category groups items
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Category) TableName() string { return "categories" }

// EntityRecord is the display projection read from an entity table
type EntityRecord struct {
	Name    string
	Content string
}

// EntityMetadata is the display-oriented view of a relation's target
type EntityMetadata struct {
	Type    string `json:"type"`
	ID      uint   `json:"id"`
	Icon    string `json:"icon"`
	Label   string `json:"label"`
	Name    string `json:"name"`
	Content string `json:"content"`
}
