package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagAssociationRepositoryImpl implements TagAssociationRepository interface
type TagAssociationRepositoryImpl struct {
	*BaseRepository[models.RelationTag, struct{}]
}

// NewTagAssociationRepository creates a new tag association repository
func NewTagAssociationRepository(db *gorm.DB) TagAssociationRepository {
	return &TagAssociationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RelationTag, struct{}](db),
	}
}

// TagsForRelation returns the tags assigned to a relation ordered by name
func (r *TagAssociationRepositoryImpl) TagsForRelation(ctx context.Context, relationID uint) ([]*models.ElementTag, error) {
	db := r.getDB(ctx)
	var tags []*models.ElementTag
	err := db.Model(&models.ElementTag{}).
		Joins("JOIN relation_tags ON relation_tags.tag_id = element_tags.id").
		Where("relation_tags.relation_id = ?", relationID).
		Order("element_tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load relation tags: %w", err)
	}
	return tags, nil
}

// TagsForComponent returns the tags assigned to a component ordered by name
func (r *TagAssociationRepositoryImpl) TagsForComponent(ctx context.Context, componentID uint) ([]*models.ElementTag, error) {
	db := r.getDB(ctx)
	var tags []*models.ElementTag
	err := db.Model(&models.ElementTag{}).
		Joins("JOIN component_tags ON component_tags.tag_id = element_tags.id").
		Where("component_tags.component_id = ?", componentID).
		Order("element_tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load component tags: %w", err)
	}
	return tags, nil
}

// TagIDsForRelations returns the tag ids of each relation. Every requested id
// is present in the result, with an empty slice when it has no tags.
func (r *TagAssociationRepositoryImpl) TagIDsForRelations(ctx context.Context, relationIDs []uint) (map[uint][]uint, error) {
	out := make(map[uint][]uint, len(relationIDs))
	if len(relationIDs) == 0 {
		return out, nil
	}
	for _, id := range relationIDs {
		out[id] = []uint{}
	}

	var rows []models.RelationTag
	err := r.getDB(ctx).Where("relation_id IN ?", relationIDs).Order("tag_id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load relation tag ids: %w", err)
	}
	for _, row := range rows {
		out[row.RelationID] = append(out[row.RelationID], row.TagID)
	}
	return out, nil
}

// TagIDsForComponents returns the tag ids of each component
func (r *TagAssociationRepositoryImpl) TagIDsForComponents(ctx context.Context, componentIDs []uint) (map[uint][]uint, error) {
	out := make(map[uint][]uint, len(componentIDs))
	if len(componentIDs) == 0 {
		return out, nil
	}
	for _, id := range componentIDs {
		out[id] = []uint{}
	}

	var rows []models.ComponentTag
	err := r.getDB(ctx).Where("component_id IN ?", componentIDs).Order("tag_id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load component tag ids: %w", err)
	}
	for _, row := range rows {
		out[row.ComponentID] = append(out[row.ComponentID], row.TagID)
	}
	return out, nil
}

// ReplaceRelationTags makes tagIDs the exact tag set of a relation
func (r *TagAssociationRepositoryImpl) ReplaceRelationTags(ctx context.Context, relationID uint, tagIDs []uint) error {
	tagIDs = utils.UniqueUints(tagIDs)
	return r.runWrite(ctx, func(db *gorm.DB) error {
		if err := db.Where("relation_id = ?", relationID).Delete(&models.RelationTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear relation tags: %w", err)
		}
		if len(tagIDs) == 0 {
			return nil
		}
		now := utils.UTCNow()
		rows := make([]models.RelationTag, 0, len(tagIDs))
		for _, tagID := range tagIDs {
			rows = append(rows, models.RelationTag{RelationID: relationID, TagID: tagID, CreatedAt: now})
		}
		if err := db.Create(&rows).Error; err != nil {
			return wrapWriteError("failed to assign relation tags", err)
		}
		return nil
	})
}

// ReplaceComponentTags makes tagIDs the exact tag set of a component
func (r *TagAssociationRepositoryImpl) ReplaceComponentTags(ctx context.Context, componentID uint, tagIDs []uint) error {
	tagIDs = utils.UniqueUints(tagIDs)
	return r.runWrite(ctx, func(db *gorm.DB) error {
		if err := db.Where("component_id = ?", componentID).Delete(&models.ComponentTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear component tags: %w", err)
		}
		if len(tagIDs) == 0 {
			return nil
		}
		now := utils.UTCNow()
		rows := make([]models.ComponentTag, 0, len(tagIDs))
		for _, tagID := range tagIDs {
			rows = append(rows, models.ComponentTag{ComponentID: componentID, TagID: tagID, CreatedAt: now})
		}
		if err := db.Create(&rows).Error; err != nil {
			return wrapWriteError("failed to assign component tags", err)
		}
		return nil
	})
}

// AddRelationTag attaches one tag to a relation; attaching twice is a no-op
func (r *TagAssociationRepositoryImpl) AddRelationTag(ctx context.Context, relationID, tagID uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		row := models.RelationTag{RelationID: relationID, TagID: tagID, CreatedAt: utils.UTCNow()}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add relation tag: %w", err)
		}
		return nil
	})
}

// AddComponentTag attaches one tag to a component; attaching twice is a no-op
func (r *TagAssociationRepositoryImpl) AddComponentTag(ctx context.Context, componentID, tagID uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		row := models.ComponentTag{ComponentID: componentID, TagID: tagID, CreatedAt: utils.UTCNow()}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add component tag: %w", err)
		}
		return nil
	})
}

// RemoveRelationTag detaches one tag from a relation
func (r *TagAssociationRepositoryImpl) RemoveRelationTag(ctx context.Context, relationID, tagID uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		err := db.Where("relation_id = ? AND tag_id = ?", relationID, tagID).Delete(&models.RelationTag{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove relation tag: %w", err)
		}
		return nil
	})
}

// RemoveComponentTag detaches one tag from a component
func (r *TagAssociationRepositoryImpl) RemoveComponentTag(ctx context.Context, componentID, tagID uint) error {
	return r.runWrite(ctx, func(db *gorm.DB) error {
		err := db.Where("component_id = ? AND tag_id = ?", componentID, tagID).Delete(&models.ComponentTag{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove component tag: %w", err)
		}
		return nil
	})
}

// RelationIDsByTag returns ids of relations carrying the tag
func (r *TagAssociationRepositoryImpl) RelationIDsByTag(ctx context.Context, tagID uint) ([]uint, error) {
	var ids []uint
	err := r.getDB(ctx).Model(&models.RelationTag{}).
		Where("tag_id = ?", tagID).
		Order("relation_id ASC").
		Pluck("relation_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list relations by tag: %w", err)
	}
	return ids, nil
}

// ComponentIDsByTag returns ids of components carrying the tag
func (r *TagAssociationRepositoryImpl) ComponentIDsByTag(ctx context.Context, tagID uint) ([]uint, error) {
	var ids []uint
	err := r.getDB(ctx).Model(&models.ComponentTag{}).
		Where("tag_id = ?", tagID).
		Order("component_id ASC").
		Pluck("component_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list components by tag: %w", err)
	}
	return ids, nil
}
