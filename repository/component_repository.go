package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/widget-sidebar/models"
	"gorm.io/gorm"
)

// ComponentRepositoryImpl implements ComponentRepository interface
type ComponentRepositoryImpl struct {
	*BaseRepository[models.Component, models.ComponentFilter]
}

// NewComponentRepository creates a new component repository
func NewComponentRepository(db *gorm.DB) ComponentRepository {
	return &ComponentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Component, models.ComponentFilter](db),
	}
}

// ListByContainer returns the components of a container ordered by order_index
func (r *ComponentRepositoryImpl) ListByContainer(ctx context.Context, containerID uint) ([]*models.Component, error) {
	return r.ByFilter(ctx, models.ComponentFilter{ContainerID: &containerID}, "order_index ASC, id ASC", 0, 0)
}

// UpdateOrder sets the order_index of one component
func (r *ComponentRepositoryImpl) UpdateOrder(ctx context.Context, id uint, orderIndex int) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Component{}).Where("id = ?", id).Update("order_index", orderIndex)
		if res.Error != nil {
			return fmt.Errorf("failed to update component order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateContent sets the content of one component
func (r *ComponentRepositoryImpl) UpdateContent(ctx context.Context, id uint, content string) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Component{}).Where("id = ?", id).Update("content", content)
		if res.Error != nil {
			return fmt.Errorf("failed to update component content: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes a component and its tag associations
func (r *ComponentRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		if err := db.Where("component_id = ?", id).Delete(&models.ComponentTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete component tags: %w", err)
		}
		res := db.Delete(&models.Component{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete component: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// applyFilter applies filter criteria to a GORM query
func (r *ComponentRepositoryImpl) applyFilter(query *gorm.DB, filter models.ComponentFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ContainerID != nil {
		query = query.Where("container_id = ?", *filter.ContainerID)
	}
	if filter.ComponentType != nil {
		query = query.Where("component_type = ?", *filter.ComponentType)
	}
	return query
}

// ByFilter retrieves components based on filter criteria
func (r *ComponentRepositoryImpl) ByFilter(ctx context.Context, filter models.ComponentFilter, orderBy string, limit, offset int) ([]*models.Component, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Component{}), filter)

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

	var rows []*models.Component
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of components matching the filter
func (r *ComponentRepositoryImpl) Count(ctx context.Context, filter models.ComponentFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Component{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any component matching the filter exists
func (r *ComponentRepositoryImpl) Exists(ctx context.Context, filter models.ComponentFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
