package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amirphl/widget-sidebar/models"
	"gorm.io/gorm"
)

// ContentRepositoryImpl reads and reorders the merged content of a container
type ContentRepositoryImpl struct {
	*BaseRepository[models.ContentEntry, struct{}]
	relations  RelationRepository
	components ComponentRepository
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &ContentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ContentEntry, struct{}](db),
		relations:      NewRelationRepository(db),
		components:     NewComponentRepository(db),
	}
}

// ContentOrdered returns relations and components of a container as entries
// sorted by order_index; tag sets are left unresolved
func (r *ContentRepositoryImpl) ContentOrdered(ctx context.Context, containerID uint) ([]models.ContentEntry, error) {
	relations, err := r.relations.ListByContainer(ctx, containerID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	components, err := r.components.ListByContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}

	entries := make([]models.ContentEntry, 0, len(relations)+len(components))
	for _, rel := range relations {
		entries = append(entries, models.EntryFromRelation(rel))
	}
	for _, comp := range components {
		entries = append(entries, models.EntryFromComponent(comp))
	}
	models.SortEntries(entries)
	return entries, nil
}

// MaxOrder returns the highest order_index across relations and components,
// or -1 for an empty container
func (r *ContentRepositoryImpl) MaxOrder(ctx context.Context, containerID uint) (int, error) {
	db := r.getDB(ctx)

	var relMax, compMax sql.NullInt64
	if err := db.Model(&models.Relation{}).Where("container_id = ?", containerID).
		Select("MAX(order_index)").Row().Scan(&relMax); err != nil {
		return 0, fmt.Errorf("failed to read relation max order: %w", err)
	}
	if err := db.Model(&models.Component{}).Where("container_id = ?", containerID).
		Select("MAX(order_index)").Row().Scan(&compMax); err != nil {
		return 0, fmt.Errorf("failed to read component max order: %w", err)
	}

	highest := -1
	if relMax.Valid && int(relMax.Int64) > highest {
		highest = int(relMax.Int64)
	}
	if compMax.Valid && int(compMax.Int64) > highest {
		highest = int(compMax.Int64)
	}
	return highest, nil
}

// UpdateRelationOrder sets the order_index of one relation
func (r *ContentRepositoryImpl) UpdateRelationOrder(ctx context.Context, id uint, orderIndex int) error {
	return r.relations.UpdateOrder(ctx, id, orderIndex)
}

// UpdateComponentOrder sets the order_index of one component
func (r *ContentRepositoryImpl) UpdateComponentOrder(ctx context.Context, id uint, orderIndex int) error {
	return r.components.UpdateOrder(ctx, id, orderIndex)
}
