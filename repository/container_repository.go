package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/utils"
	"gorm.io/gorm"
)

// ContainerRepositoryImpl implements ContainerRepository interface
type ContainerRepositoryImpl struct {
	*BaseRepository[models.Container, models.ContainerFilter]
}

// NewContainerRepository creates a new container repository
func NewContainerRepository(db *gorm.DB) ContainerRepository {
	return &ContainerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Container, models.ContainerFilter](db),
	}
}

// ByNameFold returns containers of kind whose name equals name ignoring case
func (r *ContainerRepositoryImpl) ByNameFold(ctx context.Context, kind models.ContainerKind, name string) ([]*models.Container, error) {
	db := r.getDB(ctx)
	var rows []*models.Container
	err := db.Model(&models.Container{}).
		Where("kind = ? AND LOWER(name) = ?", kind, strings.ToLower(name)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find containers by name: %w", err)
	}
	return rows, nil
}

// Search matches name or description, ignoring case
func (r *ContainerRepositoryImpl) Search(ctx context.Context, kind models.ContainerKind, query string) ([]*models.Container, error) {
	db := r.getDB(ctx)
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var rows []*models.Container
	err := db.Model(&models.Container{}).
		Where("kind = ?", kind).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search containers: %w", err)
	}
	return rows, nil
}

// Update applies the set fields of update to the container
func (r *ContainerRepositoryImpl) Update(ctx context.Context, id uint, update models.ContainerUpdate) error {
	updates := map[string]any{"updated_at": utils.UTCNow()}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Color != nil {
		updates["color"] = *update.Color
	}
	if update.Icon != nil {
		updates["icon"] = *update.Icon
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}

	return r.runWrite(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Container{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return wrapWriteError("failed to update container", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes the container together with its relations, components and
// their tag associations
func (r *ContainerRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		relationIDs := db.Model(&models.Relation{}).Select("id").Where("container_id = ?", id)
		if err := db.Where("relation_id IN (?)", relationIDs).Delete(&models.RelationTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete relation tags: %w", err)
		}
		componentIDs := db.Model(&models.Component{}).Select("id").Where("container_id = ?", id)
		if err := db.Where("component_id IN (?)", componentIDs).Delete(&models.ComponentTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete component tags: %w", err)
		}
		if err := db.Where("container_id = ?", id).Delete(&models.Relation{}).Error; err != nil {
			return fmt.Errorf("failed to delete relations: %w", err)
		}
		if err := db.Where("container_id = ?", id).Delete(&models.Component{}).Error; err != nil {
			return fmt.Errorf("failed to delete components: %w", err)
		}
		res := db.Delete(&models.Container{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete container: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// applyFilter applies filter criteria to a GORM query
func (r *ContainerRepositoryImpl) applyFilter(query *gorm.DB, filter models.ContainerFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves containers based on filter criteria
func (r *ContainerRepositoryImpl) ByFilter(ctx context.Context, filter models.ContainerFilter, orderBy string, limit, offset int) ([]*models.Container, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Container{}), filter)

	if orderBy == "" {
		orderBy = "name ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Container
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of containers matching the filter
func (r *ContainerRepositoryImpl) Count(ctx context.Context, filter models.ContainerFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Container{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any container matching the filter exists
func (r *ContainerRepositoryImpl) Exists(ctx context.Context, filter models.ContainerFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
