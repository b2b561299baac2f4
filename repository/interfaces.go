// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/widget-sidebar/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ContainerRepository defines operations for areas and projects
type ContainerRepository interface {
	Repository[models.Container, models.ContainerFilter]
	ByNameFold(ctx context.Context, kind models.ContainerKind, name string) ([]*models.Container, error)
	Search(ctx context.Context, kind models.ContainerKind, query string) ([]*models.Container, error)
	Update(ctx context.Context, id uint, update models.ContainerUpdate) error
	Delete(ctx context.Context, id uint) error
}

// OrderWriter is the subset of content writes the reordering engine performs
type OrderWriter interface {
	UpdateRelationOrder(ctx context.Context, id uint, orderIndex int) error
	UpdateComponentOrder(ctx context.Context, id uint, orderIndex int) error
}

// RelationRepository defines operations for container relations
type RelationRepository interface {
	Repository[models.Relation, models.RelationFilter]
	ListByContainer(ctx context.Context, containerID uint, entityType *string) ([]*models.Relation, error)
	UpdateOrder(ctx context.Context, id uint, orderIndex int) error
	UpdateDescription(ctx context.Context, id uint, description string) error
	Delete(ctx context.Context, id uint) error
}

// ComponentRepository defines operations for container components
type ComponentRepository interface {
	Repository[models.Component, models.ComponentFilter]
	ListByContainer(ctx context.Context, containerID uint) ([]*models.Component, error)
	UpdateOrder(ctx context.Context, id uint, orderIndex int) error
	UpdateContent(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) error
}

// ContentRepository reads a container's merged content and writes order indexes
type ContentRepository interface {
	OrderWriter
	ContentOrdered(ctx context.Context, containerID uint) ([]models.ContentEntry, error)
	MaxOrder(ctx context.Context, containerID uint) (int, error)
}

// ElementTagRepository defines operations for element tags
type ElementTagRepository interface {
	Repository[models.ElementTag, models.ElementTagFilter]
	ByName(ctx context.Context, kind models.ContainerKind, name string) (*models.ElementTag, error)
	ListByKind(ctx context.Context, kind models.ContainerKind) ([]*models.ElementTag, error)
	Search(ctx context.Context, kind models.ContainerKind, query string) ([]*models.ElementTag, error)
	Update(ctx context.Context, id uint, update models.ElementTagUpdate) error
	Delete(ctx context.Context, id uint) error
	UsageCount(ctx context.Context, id uint) (int64, error)
	UsageCounts(ctx context.Context, kind models.ContainerKind) (map[uint]int64, error)
}

// TagAssociationRepository manages the relation/component tag index
type TagAssociationRepository interface {
	TagsForRelation(ctx context.Context, relationID uint) ([]*models.ElementTag, error)
	TagsForComponent(ctx context.Context, componentID uint) ([]*models.ElementTag, error)
	TagIDsForRelations(ctx context.Context, relationIDs []uint) (map[uint][]uint, error)
	TagIDsForComponents(ctx context.Context, componentIDs []uint) (map[uint][]uint, error)
	ReplaceRelationTags(ctx context.Context, relationID uint, tagIDs []uint) error
	ReplaceComponentTags(ctx context.Context, componentID uint, tagIDs []uint) error
	AddRelationTag(ctx context.Context, relationID, tagID uint) error
	AddComponentTag(ctx context.Context, componentID, tagID uint) error
	RemoveRelationTag(ctx context.Context, relationID, tagID uint) error
	RemoveComponentTag(ctx context.Context, componentID, tagID uint) error
	RelationIDsByTag(ctx context.Context, tagID uint) ([]uint, error)
	ComponentIDsByTag(ctx context.Context, tagID uint) ([]uint, error)
}

// EntityRepository reads display fields of the entities relations point to
type EntityRepository interface {
	Lookup(ctx context.Context, entityType string, id uint) (*models.EntityRecord, error)
}

// CategoryTagRepository defines operations for category tags
type CategoryTagRepository interface {
	ByID(ctx context.Context, id uint) (*models.CategoryTag, error)
	All(ctx context.Context) ([]*models.CategoryTag, error)
	ByNameFold(ctx context.Context, name string) (*models.CategoryTag, error)
	Search(ctx context.Context, query string) ([]*models.CategoryTag, error)
	Save(ctx context.Context, tag *models.CategoryTag) error
	DeleteUnused(ctx context.Context) (int64, error)
}
