package models

import (
	"time"
)

// CategoryTag is a name-only label attached to categories
type CategoryTag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex:uk_category_tags_name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CategoryTag) TableName() string { return "category_tags" }

// CategoryTagLink associates a category tag with a category
type CategoryTagLink struct {
	CategoryID uint `gorm:"primaryKey;autoIncrement:false" json:"category_id"`
	TagID      uint `gorm:"primaryKey;autoIncrement:false;index:idx_category_tag_links_tag_id" json:"tag_id"`
}

func (CategoryTagLink) TableName() string { return "category_tag_links" }
