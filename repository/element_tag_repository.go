package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/utils"
	"gorm.io/gorm"
)

// ElementTagRepositoryImpl implements ElementTagRepository interface
type ElementTagRepositoryImpl struct {
	*BaseRepository[models.ElementTag, models.ElementTagFilter]
}

// NewElementTagRepository creates a new element tag repository
func NewElementTagRepository(db *gorm.DB) ElementTagRepository {
	return &ElementTagRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ElementTag, models.ElementTagFilter](db),
	}
}

// ByID retrieves a tag by its ID
func (r *ElementTagRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ElementTag, error) {
	db := r.getDB(ctx)
	var row models.ElementTag
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByName retrieves a tag by its exact name within a kind
func (r *ElementTagRepositoryImpl) ByName(ctx context.Context, kind models.ContainerKind, name string) (*models.ElementTag, error) {
	filter := models.ElementTagFilter{Kind: &kind, Name: &name}
	rows, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListByKind returns every tag of a kind ordered by name
func (r *ElementTagRepositoryImpl) ListByKind(ctx context.Context, kind models.ContainerKind) ([]*models.ElementTag, error) {
	return r.ByFilter(ctx, models.ElementTagFilter{Kind: &kind}, "name ASC", 0, 0)
}

// Search returns tags of a kind whose name contains query, ignoring case
func (r *ElementTagRepositoryImpl) Search(ctx context.Context, kind models.ContainerKind, query string) ([]*models.ElementTag, error) {
	db := r.getDB(ctx)
	var rows []*models.ElementTag
	err := db.Model(&models.ElementTag{}).
		Where("kind = ? AND LOWER(name) LIKE ?", kind, "%"+strings.ToLower(strings.TrimSpace(query))+"%").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search tags: %w", err)
	}
	return rows, nil
}

// Update applies the set fields of update to the tag
func (r *ElementTagRepositoryImpl) Update(ctx context.Context, id uint, update models.ElementTagUpdate) error {
	updates := map[string]any{"updated_at": utils.UTCNow()}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Color != nil {
		updates["color"] = *update.Color
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}

	return r.runWrite(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.ElementTag{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return wrapWriteError("failed to update tag", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes a tag and every association that references it
func (r *ElementTagRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		if err := db.Where("tag_id = ?", id).Delete(&models.RelationTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete relation associations: %w", err)
		}
		if err := db.Where("tag_id = ?", id).Delete(&models.ComponentTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete component associations: %w", err)
		}
		res := db.Delete(&models.ElementTag{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete tag: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UsageCount returns how many relations and components carry the tag
func (r *ElementTagRepositoryImpl) UsageCount(ctx context.Context, id uint) (int64, error) {
	db := r.getDB(ctx)
	var relCount, compCount int64
	if err := db.Model(&models.RelationTag{}).Where("tag_id = ?", id).Count(&relCount).Error; err != nil {
		return 0, fmt.Errorf("failed to count relation usage: %w", err)
	}
	if err := db.Model(&models.ComponentTag{}).Where("tag_id = ?", id).Count(&compCount).Error; err != nil {
		return 0, fmt.Errorf("failed to count component usage: %w", err)
	}
	return relCount + compCount, nil
}

type tagUsageRow struct {
	TagID uint
	Total int64
}

// UsageCounts returns usage per tag id for every tag of a kind that is in use
func (r *ElementTagRepositoryImpl) UsageCounts(ctx context.Context, kind models.ContainerKind) (map[uint]int64, error) {
	db := r.getDB(ctx)
	counts := make(map[uint]int64)

	tagIDs := db.Model(&models.ElementTag{}).Select("id").Where("kind = ?", kind)
	for _, assoc := range []any{&models.RelationTag{}, &models.ComponentTag{}} {
		var rows []tagUsageRow
		err := db.Model(assoc).
			Select("tag_id, COUNT(*) AS total").
			Where("tag_id IN (?)", tagIDs).
			Group("tag_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate tag usage: %w", err)
		}
		for _, row := range rows {
			counts[row.TagID] += row.Total
		}
	}
	return counts, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *ElementTagRepositoryImpl) applyFilter(query *gorm.DB, filter models.ElementTagFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves tags based on filter criteria
func (r *ElementTagRepositoryImpl) ByFilter(ctx context.Context, filter models.ElementTagFilter, orderBy string, limit, offset int) ([]*models.ElementTag, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ElementTag{}), filter)

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

	var rows []*models.ElementTag
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of tags matching the filter
func (r *ElementTagRepositoryImpl) Count(ctx context.Context, filter models.ElementTagFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ElementTag{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any tag matching the filter exists
func (r *ElementTagRepositoryImpl) Exists(ctx context.Context, filter models.ElementTagFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
