package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"github.com/amirphl/widget-sidebar/utils"
	"gorm.io/gorm"
)

// ContainerSummary aggregates the content of one container
type ContainerSummary struct {
	Container       *models.Container `json:"container"`
	TotalRelations  int               `json:"total_relations"`
	TotalComponents int               `json:"total_components"`
	EntityCounts    map[string]int    `json:"entity_counts"`
	ComponentCounts map[string]int    `json:"component_counts"`
	TagCount        int               `json:"tag_count"`
}

// ContainerManager handles areas and projects and their content
type ContainerManager interface {
	Create(ctx context.Context, kind models.ContainerKind, name, description, color, icon string) (*models.Container, error)
	ValidateName(ctx context.Context, kind models.ContainerKind, name string, excludeID uint) (string, error)
	Get(ctx context.Context, id uint) (*models.Container, error)
	List(ctx context.Context, kind models.ContainerKind, activeOnly bool) ([]*models.Container, error)
	Update(ctx context.Context, id uint, update models.ContainerUpdate) (*models.Container, error)
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, kind models.ContainerKind, query string) ([]*models.Container, error)

	// Content returns the assembled content, narrowed to the selected tags
	// when any are given
	Content(ctx context.Context, containerID uint, tagIDs []uint, matchAll bool) ([]models.ContentEntry, error)
	AddEntity(ctx context.Context, containerID uint, entityType string, entityID uint, description string, anchor *models.EntryRef) (*models.Relation, error)
	AddComponent(ctx context.Context, containerID uint, componentType, content string, anchor *models.EntryRef) (*models.Component, error)
	Relation(ctx context.Context, relationID uint) (*models.Relation, error)
	Component(ctx context.Context, componentID uint) (*models.Component, error)
	UpdateRelationDescription(ctx context.Context, relationID uint, description string) (*models.Relation, error)
	UpdateComponentContent(ctx context.Context, componentID uint, content string) (*models.Component, error)
	RemoveEntity(ctx context.Context, relationID uint) error
	RemoveComponent(ctx context.Context, componentID uint) error
	EntitiesGrouped(ctx context.Context, containerID uint) (map[string][]*models.Relation, error)
	Duplicate(ctx context.Context, containerID uint, newName string) (*models.Container, error)
	Summary(ctx context.Context, containerID uint) (*ContainerSummary, error)
}

// ContainerManagerImpl implements ContainerManager
type ContainerManagerImpl struct {
	containerRepo repository.ContainerRepository
	relationRepo  repository.RelationRepository
	componentRepo repository.ComponentRepository
	assocRepo     repository.TagAssociationRepository
	assembler     ContentAssembler
	tagFilter     TagFilter
	engine        ReorderEngine
	cache         services.Cache[models.Container]
	notifier      services.ChangeNotifier
	db            *gorm.DB
	log           *logger.Logger
}

func NewContainerManager(
	containerRepo repository.ContainerRepository,
	relationRepo repository.RelationRepository,
	componentRepo repository.ComponentRepository,
	assocRepo repository.TagAssociationRepository,
	assembler ContentAssembler,
	tagFilter TagFilter,
	engine ReorderEngine,
	cache services.Cache[models.Container],
	notifier services.ChangeNotifier,
	db *gorm.DB,
	log *logger.Logger,
) ContainerManager {
	return &ContainerManagerImpl{
		containerRepo: containerRepo,
		relationRepo:  relationRepo,
		componentRepo: componentRepo,
		assocRepo:     assocRepo,
		assembler:     assembler,
		tagFilter:     tagFilter,
		engine:        engine,
		cache:         cache,
		notifier:      notifier,
		db:            db,
		log:           log.With("component", "ContainerManager"),
	}
}

func (m *ContainerManagerImpl) Create(ctx context.Context, kind models.ContainerKind, name, description, color, icon string) (*models.Container, error) {
	if !kind.Valid() {
		return nil, validationError("INVALID_CONTAINER_KIND", fmt.Sprintf("unknown container kind %q", kind))
	}
	name, err := m.ValidateName(ctx, kind, name, 0)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = utils.DefaultColor
	}
	if err := ValidateColor(color); err != nil {
		return nil, err
	}
	if icon == "" {
		icon = defaultIcon(kind)
	}

	now := utils.UTCNow()
	c := &models.Container{
		Kind:        kind,
		Name:        name,
		Description: description,
		Color:       color,
		Icon:        icon,
		IsActive:    utils.ToPtr(true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.containerRepo.Save(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, NewBusinessErrorf("CONTAINER_NAME_EXISTS", "%s %q already exists", ErrDuplicateName, kind, name)
		}
		m.log.Error("failed to save container", "kind", kind, "name", name, "error", err)
		return nil, storeError("CONTAINER_CREATE_FAILED", "failed to create container", err)
	}

	m.cache.Set(ctx, c.ID, c)
	m.log.Info("container created", "container_id", c.ID, "kind", kind, "name", name)
	m.publish(ctx, services.ActionCreated, c)
	return cloneContainer(c), nil
}

// ValidateName checks a container name and returns it trimmed. Names are
// unique per kind ignoring case, across active and inactive containers;
// excludeID skips the container being renamed.
func (m *ContainerManagerImpl) ValidateName(ctx context.Context, kind models.ContainerKind, name string, excludeID uint) (string, error) {
	name, err := validateContainerName(name)
	if err != nil {
		return "", err
	}
	existing, err := m.containerRepo.ByNameFold(ctx, kind, name)
	if err != nil {
		m.log.Error("failed to check container name", "kind", kind, "name", name, "error", err)
		return "", storeError("CONTAINER_LOOKUP_FAILED", "failed to check container name", err)
	}
	for _, c := range existing {
		if c.ID != excludeID {
			return "", NewBusinessErrorf("CONTAINER_NAME_EXISTS", "%s %q already exists", ErrDuplicateName, kind, name)
		}
	}
	return name, nil
}

func (m *ContainerManagerImpl) Get(ctx context.Context, id uint) (*models.Container, error) {
	if c, ok := m.cache.Get(ctx, id); ok {
		return cloneContainer(c), nil
	}
	c, err := m.containerRepo.ByID(ctx, id)
	if err != nil {
		m.log.Error("failed to load container", "container_id", id, "error", err)
		return nil, storeError("CONTAINER_LOOKUP_FAILED", "failed to load container", err)
	}
	if c == nil {
		return nil, NewBusinessErrorf("CONTAINER_NOT_FOUND", "container %d not found", ErrContainerNotFound, id)
	}
	m.cache.Set(ctx, id, c)
	return cloneContainer(c), nil
}

func (m *ContainerManagerImpl) List(ctx context.Context, kind models.ContainerKind, activeOnly bool) ([]*models.Container, error) {
	filter := models.ContainerFilter{Kind: &kind}
	if activeOnly {
		filter.IsActive = utils.ToPtr(true)
	}
	rows, err := m.containerRepo.ByFilter(ctx, filter, "name ASC", 0, 0)
	if err != nil {
		m.log.Error("failed to list containers", "kind", kind, "error", err)
		return nil, storeError("CONTAINER_LIST_FAILED", "failed to list containers", err)
	}
	return rows, nil
}

func (m *ContainerManagerImpl) Update(ctx context.Context, id uint, update models.ContainerUpdate) (*models.Container, error) {
	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return current, nil
	}

	if update.Name != nil {
		name, err := m.ValidateName(ctx, current.Kind, *update.Name, id)
		if err != nil {
			return nil, err
		}
		update.Name = &name
	}
	if update.Color != nil {
		if err := ValidateColor(*update.Color); err != nil {
			return nil, err
		}
	}

	if err := m.containerRepo.Update(ctx, id, update); err != nil {
		m.cache.Delete(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, NewBusinessErrorf("CONTAINER_NOT_FOUND", "container %d not found", ErrContainerNotFound, id)
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, NewBusinessError("CONTAINER_NAME_EXISTS", "container name already exists", ErrDuplicateName)
		}
		m.log.Error("failed to update container", "container_id", id, "error", err)
		return nil, storeError("CONTAINER_UPDATE_FAILED", "failed to update container", err)
	}

	m.cache.Delete(ctx, id)
	fresh, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, services.ActionUpdated, fresh)
	return fresh, nil
}

// Delete removes the container with all of its relations and components
func (m *ContainerManagerImpl) Delete(ctx context.Context, id uint) error {
	current, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.containerRepo.Delete(ctx, id); err != nil {
		m.cache.Delete(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return NewBusinessErrorf("CONTAINER_NOT_FOUND", "container %d not found", ErrContainerNotFound, id)
		}
		m.log.Error("failed to delete container", "container_id", id, "error", err)
		return storeError("CONTAINER_DELETE_FAILED", "failed to delete container", err)
	}

	m.cache.Delete(ctx, id)
	m.log.Info("container deleted", "container_id", id, "name", current.Name)
	m.publish(ctx, services.ActionDeleted, current)
	return nil
}

func (m *ContainerManagerImpl) Search(ctx context.Context, kind models.ContainerKind, query string) ([]*models.Container, error) {
	if strings.TrimSpace(query) == "" {
		return m.List(ctx, kind, false)
	}
	rows, err := m.containerRepo.Search(ctx, kind, query)
	if err != nil {
		m.log.Error("failed to search containers", "kind", kind, "query", query, "error", err)
		return nil, storeError("CONTAINER_SEARCH_FAILED", "failed to search containers", err)
	}
	return rows, nil
}

func (m *ContainerManagerImpl) Content(ctx context.Context, containerID uint, tagIDs []uint, matchAll bool) ([]models.ContentEntry, error) {
	if _, err := m.Get(ctx, containerID); err != nil {
		return nil, err
	}
	entries, err := m.assembler.Assemble(ctx, containerID)
	if err != nil {
		return nil, err
	}
	return m.tagFilter.Filter(ctx, entries, tagIDs, matchAll)
}

func (m *ContainerManagerImpl) AddEntity(ctx context.Context, containerID uint, entityType string, entityID uint, description string, anchor *models.EntryRef) (*models.Relation, error) {
	if _, err := m.Get(ctx, containerID); err != nil {
		return nil, err
	}
	rel, err := models.NewRelation(containerID, entityType, entityID, description, 0)
	if err != nil {
		return nil, validationError("INVALID_ENTITY_TYPE", err.Error())
	}
	rel.CreatedAt = utils.UTCNow()

	if _, err := m.engine.InsertRelationBelow(ctx, anchor, rel); err != nil {
		return nil, err
	}
	m.log.Info("entity added", "container_id", containerID, "entity_type", entityType, "entity_id", entityID, "order_index", rel.OrderIndex)
	return rel, nil
}

func (m *ContainerManagerImpl) AddComponent(ctx context.Context, containerID uint, componentType, content string, anchor *models.EntryRef) (*models.Component, error) {
	if _, err := m.Get(ctx, containerID); err != nil {
		return nil, err
	}
	comp, err := models.NewComponent(containerID, componentType, content, 0)
	if err != nil {
		return nil, validationError("INVALID_COMPONENT", err.Error())
	}
	comp.CreatedAt = utils.UTCNow()

	if _, err := m.engine.InsertComponentBelow(ctx, anchor, comp); err != nil {
		return nil, err
	}
	m.log.Info("component added", "container_id", containerID, "component_type", componentType, "order_index", comp.OrderIndex)
	return comp, nil
}

func (m *ContainerManagerImpl) Relation(ctx context.Context, relationID uint) (*models.Relation, error) {
	rel, err := m.relationRepo.ByID(ctx, relationID)
	if err != nil {
		m.log.Error("failed to load relation", "relation_id", relationID, "error", err)
		return nil, storeError("LOOKUP_FAILED", "failed to load relation", err)
	}
	if rel == nil {
		return nil, NewBusinessErrorf("RELATION_NOT_FOUND", "relation %d not found", ErrRelationNotFound, relationID)
	}
	return rel, nil
}

func (m *ContainerManagerImpl) Component(ctx context.Context, componentID uint) (*models.Component, error) {
	comp, err := m.componentRepo.ByID(ctx, componentID)
	if err != nil {
		m.log.Error("failed to load component", "component_id", componentID, "error", err)
		return nil, storeError("LOOKUP_FAILED", "failed to load component", err)
	}
	if comp == nil {
		return nil, NewBusinessErrorf("COMPONENT_NOT_FOUND", "component %d not found", ErrComponentNotFound, componentID)
	}
	return comp, nil
}

// UpdateRelationDescription replaces the container-scoped note of a relation
func (m *ContainerManagerImpl) UpdateRelationDescription(ctx context.Context, relationID uint, description string) (*models.Relation, error) {
	rel, err := m.Relation(ctx, relationID)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == rel.Description {
		return rel, nil
	}

	if err := m.relationRepo.UpdateDescription(ctx, relationID, description); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewBusinessErrorf("RELATION_NOT_FOUND", "relation %d not found", ErrRelationNotFound, relationID)
		}
		m.log.Error("failed to update relation description", "relation_id", relationID, "error", err)
		return nil, storeError("RELATION_UPDATE_FAILED", "failed to update relation", err)
	}

	rel.Description = description
	m.publishEntry(ctx, services.EntityRelation, relationID, rel.ContainerID)
	return rel, nil
}

// UpdateComponentContent replaces the text of a component; only dividers may
// be left empty
func (m *ContainerManagerImpl) UpdateComponentContent(ctx context.Context, componentID uint, content string) (*models.Component, error) {
	comp, err := m.Component(ctx, componentID)
	if err != nil {
		return nil, err
	}
	if comp.ComponentType != models.ComponentTypeDivider && strings.TrimSpace(content) == "" {
		return nil, validationError("INVALID_COMPONENT", fmt.Sprintf("content is required for %s components", comp.ComponentType))
	}
	if content == comp.Content {
		return comp, nil
	}

	if err := m.componentRepo.UpdateContent(ctx, componentID, content); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewBusinessErrorf("COMPONENT_NOT_FOUND", "component %d not found", ErrComponentNotFound, componentID)
		}
		m.log.Error("failed to update component content", "component_id", componentID, "error", err)
		return nil, storeError("COMPONENT_UPDATE_FAILED", "failed to update component", err)
	}

	comp.Content = content
	m.publishEntry(ctx, services.EntityComponent, componentID, comp.ContainerID)
	return comp, nil
}

func (m *ContainerManagerImpl) RemoveEntity(ctx context.Context, relationID uint) error {
	return m.engine.Delete(ctx, models.EntryRef{Kind: models.EntryKindRelation, ID: relationID})
}

func (m *ContainerManagerImpl) RemoveComponent(ctx context.Context, componentID uint) error {
	return m.engine.Delete(ctx, models.EntryRef{Kind: models.EntryKindComponent, ID: componentID})
}

// EntitiesGrouped returns the relations of a container keyed by the plural of
// their entity type; every known type has a key
func (m *ContainerManagerImpl) EntitiesGrouped(ctx context.Context, containerID uint) (map[string][]*models.Relation, error) {
	if _, err := m.Get(ctx, containerID); err != nil {
		return nil, err
	}
	relations, err := m.relationRepo.ListByContainer(ctx, containerID, nil)
	if err != nil {
		m.log.Error("failed to list relations", "container_id", containerID, "error", err)
		return nil, storeError("CONTAINER_CONTENT_FAILED", "failed to list relations", err)
	}

	grouped := make(map[string][]*models.Relation, len(models.EntityTypes))
	for _, t := range models.EntityTypes {
		grouped[models.EntityTypeGroupKey(t)] = []*models.Relation{}
	}
	for _, rel := range relations {
		key := models.EntityTypeGroupKey(rel.EntityType)
		if _, ok := grouped[key]; ok {
			grouped[key] = append(grouped[key], rel)
		}
	}
	return grouped, nil
}

// Duplicate copies a container with its relations, components and their tag
// sets; order indexes are kept as they are
func (m *ContainerManagerImpl) Duplicate(ctx context.Context, containerID uint, newName string) (*models.Container, error) {
	source, err := m.Get(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(newName) == "" {
		newName = source.Name + utils.DuplicateNameSuffix
	}
	name, err := m.ValidateName(ctx, source.Kind, newName, 0)
	if err != nil {
		return nil, err
	}

	var copied *models.Container
	err = repository.WithTransaction(ctx, m.db, func(txCtx context.Context) error {
		now := utils.UTCNow()
		copied = &models.Container{
			Kind:        source.Kind,
			Name:        name,
			Description: source.Description,
			Color:       source.Color,
			Icon:        source.Icon,
			IsActive:    utils.ToPtr(true),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := m.containerRepo.Save(txCtx, copied); err != nil {
			return fmt.Errorf("save container: %w", err)
		}
		if err := m.copyRelations(txCtx, containerID, copied.ID); err != nil {
			return err
		}
		return m.copyComponents(txCtx, containerID, copied.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, NewBusinessErrorf("CONTAINER_NAME_EXISTS", "%s %q already exists", ErrDuplicateName, source.Kind, name)
		}
		m.log.Error("failed to duplicate container", "container_id", containerID, "error", err)
		return nil, storeError("CONTAINER_DUPLICATE_FAILED", "failed to duplicate container", err)
	}

	m.cache.Set(ctx, copied.ID, copied)
	m.log.Info("container duplicated", "source_id", containerID, "container_id", copied.ID, "name", name)
	m.publish(ctx, services.ActionCreated, copied)
	return cloneContainer(copied), nil
}

func (m *ContainerManagerImpl) copyRelations(ctx context.Context, fromID, toID uint) error {
	relations, err := m.relationRepo.ListByContainer(ctx, fromID, nil)
	if err != nil {
		return fmt.Errorf("list relations: %w", err)
	}
	ids := make([]uint, 0, len(relations))
	for _, r := range relations {
		ids = append(ids, r.ID)
	}
	tags, err := m.assocRepo.TagIDsForRelations(ctx, ids)
	if err != nil {
		return fmt.Errorf("load relation tags: %w", err)
	}

	for _, r := range relations {
		dup := &models.Relation{
			ContainerID: toID,
			EntityType:  r.EntityType,
			EntityID:    r.EntityID,
			Description: r.Description,
			OrderIndex:  r.OrderIndex,
			CreatedAt:   utils.UTCNow(),
		}
		if err := m.relationRepo.Save(ctx, dup); err != nil {
			return fmt.Errorf("copy relation %d: %w", r.ID, err)
		}
		if len(tags[r.ID]) > 0 {
			if err := m.assocRepo.ReplaceRelationTags(ctx, dup.ID, tags[r.ID]); err != nil {
				return fmt.Errorf("copy tags of relation %d: %w", r.ID, err)
			}
		}
	}
	return nil
}

func (m *ContainerManagerImpl) copyComponents(ctx context.Context, fromID, toID uint) error {
	components, err := m.componentRepo.ListByContainer(ctx, fromID)
	if err != nil {
		return fmt.Errorf("list components: %w", err)
	}
	ids := make([]uint, 0, len(components))
	for _, c := range components {
		ids = append(ids, c.ID)
	}
	tags, err := m.assocRepo.TagIDsForComponents(ctx, ids)
	if err != nil {
		return fmt.Errorf("load component tags: %w", err)
	}

	for _, c := range components {
		dup := &models.Component{
			ContainerID:   toID,
			ComponentType: c.ComponentType,
			Content:       c.Content,
			OrderIndex:    c.OrderIndex,
			CreatedAt:     utils.UTCNow(),
		}
		if err := m.componentRepo.Save(ctx, dup); err != nil {
			return fmt.Errorf("copy component %d: %w", c.ID, err)
		}
		if len(tags[c.ID]) > 0 {
			if err := m.assocRepo.ReplaceComponentTags(ctx, dup.ID, tags[c.ID]); err != nil {
				return fmt.Errorf("copy tags of component %d: %w", c.ID, err)
			}
		}
	}
	return nil
}

func (m *ContainerManagerImpl) Summary(ctx context.Context, containerID uint) (*ContainerSummary, error) {
	c, err := m.Get(ctx, containerID)
	if err != nil {
		return nil, err
	}

	entries, err := m.assembler.Assemble(ctx, containerID)
	if err != nil {
		m.log.Error("failed to build container summary", "container_id", containerID, "error", err)
		if IsStore(err) {
			return nil, err
		}
		return nil, storeError("CONTAINER_SUMMARY_FAILED", "failed to build summary", err)
	}

	summary := &ContainerSummary{
		Container:       c,
		EntityCounts:    make(map[string]int),
		ComponentCounts: make(map[string]int),
	}
	tags := make(map[uint]struct{})
	for _, e := range entries {
		switch e.Kind {
		case models.EntryKindRelation:
			summary.TotalRelations++
			summary.EntityCounts[e.EntityType]++
		case models.EntryKindComponent:
			summary.TotalComponents++
			summary.ComponentCounts[e.ComponentType]++
		}
		for _, id := range e.TagIDs {
			tags[id] = struct{}{}
		}
	}
	summary.TagCount = len(tags)
	return summary, nil
}

func (m *ContainerManagerImpl) publish(ctx context.Context, action string, c *models.Container) {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(ctx, services.ChangeEvent{
		Entity:      services.EntityContainer,
		Action:      action,
		Kind:        string(c.Kind),
		EntityID:    c.ID,
		ContainerID: c.ID,
	})
}

func (m *ContainerManagerImpl) publishEntry(ctx context.Context, entity string, id, containerID uint) {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(ctx, services.ChangeEvent{
		Entity:      entity,
		Action:      services.ActionUpdated,
		EntityID:    id,
		ContainerID: containerID,
	})
}

func defaultIcon(kind models.ContainerKind) string {
	if kind == models.ContainerKindProject {
		return utils.DefaultProjectIcon
	}
	return utils.DefaultAreaIcon
}

func cloneContainer(c *models.Container) *models.Container {
	out := *c
	out.Relations = nil
	out.Components = nil
	return &out
}
