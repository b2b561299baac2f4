// Package testing provides test utilities and database setup for testing the sidebar store and flows
package testing

import (
	"fmt"

	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestContainer creates an active container with default color and icon
func (tf *TestFixtures) CreateTestContainer(kind models.ContainerKind, name string) (*models.Container, error) {
	icon := utils.DefaultAreaIcon
	if kind == models.ContainerKindProject {
		icon = utils.DefaultProjectIcon
	}
	now := utils.UTCNow()
	c := &models.Container{
		Kind:      kind,
		Name:      name,
		Color:     utils.DefaultColor,
		Icon:      icon,
		IsActive:  utils.ToPtr(true),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tf.DB.DB.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create test container: %w", err)
	}
	return c, nil
}

// CreateTestRelation links an entity to a container at the given order index
func (tf *TestFixtures) CreateTestRelation(containerID uint, entityType string, entityID uint, orderIndex int) (*models.Relation, error) {
	r := &models.Relation{
		ContainerID: containerID,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: fmt.Sprintf("%s #%d", entityType, entityID),
		OrderIndex:  orderIndex,
		CreatedAt:   utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(r).Error; err != nil {
		return nil, fmt.Errorf("failed to create test relation: %w", err)
	}
	return r, nil
}

// CreateTestComponent adds a component to a container at the given order index
func (tf *TestFixtures) CreateTestComponent(containerID uint, componentType, content string, orderIndex int) (*models.Component, error) {
	c := &models.Component{
		ContainerID:   containerID,
		ComponentType: componentType,
		Content:       content,
		OrderIndex:    orderIndex,
		CreatedAt:     utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create test component: %w", err)
	}
	return c, nil
}

// CreateTestElementTag creates an element tag of a container kind
func (tf *TestFixtures) CreateTestElementTag(kind models.ContainerKind, name string) (*models.ElementTag, error) {
	now := utils.UTCNow()
	t := &models.ElementTag{
		Kind:      kind,
		Name:      name,
		Color:     utils.DefaultColor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tf.DB.DB.Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to create test element tag: %w", err)
	}
	return t, nil
}

// TagRelation attaches tags to a relation
func (tf *TestFixtures) TagRelation(relationID uint, tagIDs ...uint) error {
	for _, id := range tagIDs {
		row := &models.RelationTag{RelationID: relationID, TagID: id, CreatedAt: utils.UTCNow()}
		if err := tf.DB.DB.Create(row).Error; err != nil {
			return fmt.Errorf("failed to tag relation: %w", err)
		}
	}
	return nil
}

// TagComponent attaches tags to a component
func (tf *TestFixtures) TagComponent(componentID uint, tagIDs ...uint) error {
	for _, id := range tagIDs {
		row := &models.ComponentTag{ComponentID: componentID, TagID: id, CreatedAt: utils.UTCNow()}
		if err := tf.DB.DB.Create(row).Error; err != nil {
			return fmt.Errorf("failed to tag component: %w", err)
		}
	}
	return nil
}

// CreateTestItem creates a backing item entity
func (tf *TestFixtures) CreateTestItem(label, content string) (*models.Item, error) {
	item := &models.Item{Label: label, Content: content, IsActive: utils.ToPtr(true), CreatedAt: utils.UTCNow()}
	if err := tf.DB.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create test item: %w", err)
	}
	return item, nil
}

// CreateTestCategory creates a backing category entity
func (tf *TestFixtures) CreateTestCategory(name string) (*models.Category, error) {
	c := &models.Category{Name: name, IsActive: utils.ToPtr(true), CreatedAt: utils.UTCNow()}
	if err := tf.DB.DB.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create test category: %w", err)
	}
	return c, nil
}

// CreateTestCategoryTag creates a category tag, optionally linked to categories
func (tf *TestFixtures) CreateTestCategoryTag(name string, categoryIDs ...uint) (*models.CategoryTag, error) {
	t := &models.CategoryTag{Name: name, CreatedAt: utils.UTCNow()}
	if err := tf.DB.DB.Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to create test category tag: %w", err)
	}
	for _, id := range categoryIDs {
		link := &models.CategoryTagLink{CategoryID: id, TagID: t.ID}
		if err := tf.DB.DB.Create(link).Error; err != nil {
			return nil, fmt.Errorf("failed to link category tag: %w", err)
		}
	}
	return t, nil
}
