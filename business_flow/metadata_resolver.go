package businessflow

import (
	"context"

	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"github.com/amirphl/widget-sidebar/utils"
)

type entityPresentation struct {
	icon  string
	label string
}

var entityPresentations = map[string]entityPresentation{
	models.EntityTypeTag:      {icon: "🏷️", label: "Tag"},
	models.EntityTypeProcess:  {icon: "🔄", label: "Process"},
	models.EntityTypeList:     {icon: "📋", label: "List"},
	models.EntityTypeTable:    {icon: "📊", label: "Table"},
	models.EntityTypeCategory: {icon: "📁", label: "Category"},
	models.EntityTypeItem:     {icon: "📝", label: "Item"},
}

// MetadataResolver derives display metadata for the entity a relation points to
type MetadataResolver interface {
	Resolve(ctx context.Context, entityType string, entityID uint) models.EntityMetadata
}

// MetadataResolverImpl implements MetadataResolver. Results are not cached.
type MetadataResolverImpl struct {
	entityRepo repository.EntityRepository
	log        *logger.Logger
}

func NewMetadataResolver(entityRepo repository.EntityRepository, log *logger.Logger) MetadataResolver {
	return &MetadataResolverImpl{entityRepo: entityRepo, log: log.With("component", "MetadataResolver")}
}

// Resolve never fails: unknown types and lookup misses fall back to a generic
// icon and a label derived from the type, and read errors are only logged
func (m *MetadataResolverImpl) Resolve(ctx context.Context, entityType string, entityID uint) models.EntityMetadata {
	meta := models.EntityMetadata{
		Type:  entityType,
		ID:    entityID,
		Icon:  utils.DefaultEntityIcon,
		Label: utils.TitleCase(entityType),
	}
	if p, ok := entityPresentations[entityType]; ok {
		meta.Icon = p.icon
		meta.Label = p.label
	}

	rec, err := m.entityRepo.Lookup(ctx, entityType, entityID)
	if err != nil {
		m.log.Warn("entity lookup failed", "entity_type", entityType, "entity_id", entityID, "error", err)
		return meta
	}
	if rec != nil {
		meta.Name = rec.Name
		meta.Content = rec.Content
	}
	return meta
}
