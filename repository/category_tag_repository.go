package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/widget-sidebar/models"
	"gorm.io/gorm"
)

// CategoryTagRepositoryImpl implements CategoryTagRepository interface
type CategoryTagRepositoryImpl struct {
	*BaseRepository[models.CategoryTag, struct{}]
}

// NewCategoryTagRepository creates a new category tag repository
func NewCategoryTagRepository(db *gorm.DB) CategoryTagRepository {
	return &CategoryTagRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CategoryTag, struct{}](db),
	}
}

// All returns every category tag ordered by name
func (r *CategoryTagRepositoryImpl) All(ctx context.Context) ([]*models.CategoryTag, error) {
	var rows []*models.CategoryTag
	if err := r.getDB(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list category tags: %w", err)
	}
	return rows, nil
}

// ByNameFold returns the tag whose name equals name ignoring case
func (r *CategoryTagRepositoryImpl) ByNameFold(ctx context.Context, name string) (*models.CategoryTag, error) {
	var row models.CategoryTag
	err := r.getDB(ctx).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find category tag: %w", err)
	}
	return &row, nil
}

// Search returns tags whose name contains query, ignoring case
func (r *CategoryTagRepositoryImpl) Search(ctx context.Context, query string) ([]*models.CategoryTag, error) {
	var rows []*models.CategoryTag
	err := r.getDB(ctx).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(query))+"%").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search category tags: %w", err)
	}
	return rows, nil
}

// DeleteUnused removes category tags that no category references
func (r *CategoryTagRepositoryImpl) DeleteUnused(ctx context.Context) (int64, error) {
	var removed int64
	err := r.runWrite(ctx, func(db *gorm.DB) error {
		used := db.Model(&models.CategoryTagLink{}).Select("tag_id")
		res := db.Where("id NOT IN (?)", used).Delete(&models.CategoryTag{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete unused category tags: %w", res.Error)
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}
