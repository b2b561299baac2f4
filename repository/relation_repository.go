package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/widget-sidebar/models"
	"gorm.io/gorm"
)

// RelationRepositoryImpl implements RelationRepository interface
type RelationRepositoryImpl struct {
	*BaseRepository[models.Relation, models.RelationFilter]
}

// NewRelationRepository creates a new relation repository
func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &RelationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Relation, models.RelationFilter](db),
	}
}

// ListByContainer returns the relations of a container ordered by order_index,
// optionally restricted to one entity type
func (r *RelationRepositoryImpl) ListByContainer(ctx context.Context, containerID uint, entityType *string) ([]*models.Relation, error) {
	filter := models.RelationFilter{ContainerID: &containerID, EntityType: entityType}
	return r.ByFilter(ctx, filter, "order_index ASC, id ASC", 0, 0)
}

// UpdateOrder sets the order_index of one relation
func (r *RelationRepositoryImpl) UpdateOrder(ctx context.Context, id uint, orderIndex int) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Relation{}).Where("id = ?", id).Update("order_index", orderIndex)
		if res.Error != nil {
			return fmt.Errorf("failed to update relation order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateDescription sets the container-scoped description of a relation
func (r *RelationRepositoryImpl) UpdateDescription(ctx context.Context, id uint, description string) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Relation{}).Where("id = ?", id).Update("description", description)
		if res.Error != nil {
			return fmt.Errorf("failed to update relation description: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes a relation and its tag associations
func (r *RelationRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		if err := db.Where("relation_id = ?", id).Delete(&models.RelationTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete relation tags: %w", err)
		}
		res := db.Delete(&models.Relation{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete relation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// applyFilter applies filter criteria to a GORM query
func (r *RelationRepositoryImpl) applyFilter(query *gorm.DB, filter models.RelationFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ContainerID != nil {
		query = query.Where("container_id = ?", *filter.ContainerID)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	return query
}

// ByFilter retrieves relations based on filter criteria
func (r *RelationRepositoryImpl) ByFilter(ctx context.Context, filter models.RelationFilter, orderBy string, limit, offset int) ([]*models.Relation, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Relation{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Relation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of relations matching the filter
func (r *RelationRepositoryImpl) Count(ctx context.Context, filter models.RelationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Relation{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any relation matching the filter exists
func (r *RelationRepositoryImpl) Exists(ctx context.Context, filter models.RelationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
