package businessflow

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"github.com/amirphl/widget-sidebar/utils"
)

// TagUsage pairs a tag with the number of relations and components carrying it
type TagUsage struct {
	Tag   *models.ElementTag
	Count int64
}

// TagSpec describes one tag of a batch create
type TagSpec struct {
	Name        string
	Color       string
	Description string
}

// TagManager handles the element tag vocabulary of one container kind and the
// tag sets of relations and components
type TagManager interface {
	Kind() models.ContainerKind

	Create(ctx context.Context, name, color, description string) (*models.ElementTag, error)
	Get(ctx context.Context, id uint) (*models.ElementTag, error)
	GetByName(ctx context.Context, name string) (*models.ElementTag, error)
	GetAll(ctx context.Context, refresh bool) ([]*models.ElementTag, error)
	Update(ctx context.Context, id uint, update models.ElementTagUpdate) (*models.ElementTag, error)
	Delete(ctx context.Context, id uint) error

	AssignToRelation(ctx context.Context, relationID uint, tagIDs []uint) error
	AssignToComponent(ctx context.Context, componentID uint, tagIDs []uint) error
	AddToRelation(ctx context.Context, relationID, tagID uint) error
	AddToComponent(ctx context.Context, componentID, tagID uint) error
	RemoveFromRelation(ctx context.Context, relationID, tagID uint) error
	RemoveFromComponent(ctx context.Context, componentID, tagID uint) error
	TagsForRelation(ctx context.Context, relationID uint) ([]*models.ElementTag, error)
	TagsForComponent(ctx context.Context, componentID uint) ([]*models.ElementTag, error)

	Search(ctx context.Context, query string) ([]*models.ElementTag, error)
	FilterByName(tags []*models.ElementTag, query string) []*models.ElementTag
	UsageCount(ctx context.Context, id uint) (int64, error)
	Popular(ctx context.Context, limit int) ([]TagUsage, error)
	Sorted(ctx context.Context, reverse bool) ([]*models.ElementTag, error)
	TagsForContainer(ctx context.Context, containerID uint) ([]*models.ElementTag, error)
	RelationsByTag(ctx context.Context, tagID uint) ([]uint, error)
	ComponentsByTag(ctx context.Context, tagID uint) ([]uint, error)
	CreateBatch(ctx context.Context, specs []TagSpec) ([]*models.ElementTag, error)
	DeleteBatch(ctx context.Context, ids []uint) (int, error)
}

// TagManagerImpl implements TagManager
type TagManagerImpl struct {
	kind      models.ContainerKind
	tagRepo   repository.ElementTagRepository
	assocRepo repository.TagAssociationRepository
	assembler ContentAssembler
	cache     services.Cache[models.ElementTag]
	notifier  services.ChangeNotifier
	log       *logger.Logger
}

// NewTagManager creates the tag manager of one container kind
func NewTagManager(
	kind models.ContainerKind,
	tagRepo repository.ElementTagRepository,
	assocRepo repository.TagAssociationRepository,
	assembler ContentAssembler,
	cache services.Cache[models.ElementTag],
	notifier services.ChangeNotifier,
	log *logger.Logger,
) TagManager {
	return &TagManagerImpl{
		kind:      kind,
		tagRepo:   tagRepo,
		assocRepo: assocRepo,
		assembler: assembler,
		cache:     cache,
		notifier:  notifier,
		log:       log.With("component", "TagManager", "kind", kind),
	}
}

func (m *TagManagerImpl) Kind() models.ContainerKind {
	return m.kind
}

func (m *TagManagerImpl) Create(ctx context.Context, name, color, description string) (*models.ElementTag, error) {
	if err := ValidateTagName(name); err != nil {
		return nil, err
	}
	if err := ValidateColor(color); err != nil {
		return nil, err
	}

	existing, err := m.tagRepo.ByName(ctx, m.kind, name)
	if err != nil {
		m.log.Error("failed to check tag name", "name", name, "error", err)
		return nil, storeError("TAG_CREATE_FAILED", "failed to create tag", err)
	}
	if existing != nil {
		return nil, NewBusinessErrorf("TAG_NAME_EXISTS", "tag %q already exists", ErrDuplicateName, name)
	}

	now := utils.UTCNow()
	tag := &models.ElementTag{
		Kind:        m.kind,
		Name:        name,
		Color:       color,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.tagRepo.Save(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, NewBusinessErrorf("TAG_NAME_EXISTS", "tag %q already exists", ErrDuplicateName, name)
		}
		m.log.Error("failed to save tag", "name", name, "error", err)
		return nil, storeError("TAG_CREATE_FAILED", "failed to create tag", err)
	}

	m.cache.Set(ctx, tag.ID, tag)
	m.log.Info("tag created", "tag_id", tag.ID, "name", tag.Name)
	m.publish(ctx, services.ActionCreated, tag.ID)
	return cloneTag(tag), nil
}

func (m *TagManagerImpl) Get(ctx context.Context, id uint) (*models.ElementTag, error) {
	if tag, ok := m.cache.Get(ctx, id); ok {
		return cloneTag(tag), nil
	}

	tag, err := m.tagRepo.ByID(ctx, id)
	if err != nil {
		m.log.Error("failed to load tag", "tag_id", id, "error", err)
		return nil, storeError("TAG_LOOKUP_FAILED", "failed to load tag", err)
	}
	if tag == nil || tag.Kind != m.kind {
		return nil, NewBusinessErrorf("TAG_NOT_FOUND", "tag %d not found", ErrTagNotFound, id)
	}
	m.cache.Set(ctx, tag.ID, tag)
	return cloneTag(tag), nil
}

func (m *TagManagerImpl) GetByName(ctx context.Context, name string) (*models.ElementTag, error) {
	if all, ok := m.cache.All(ctx); ok {
		for _, t := range all {
			if t.Name == name {
				return cloneTag(t), nil
			}
		}
		return nil, NewBusinessErrorf("TAG_NOT_FOUND", "tag %q not found", ErrTagNotFound, name)
	}

	tag, err := m.tagRepo.ByName(ctx, m.kind, name)
	if err != nil {
		m.log.Error("failed to load tag by name", "name", name, "error", err)
		return nil, storeError("TAG_LOOKUP_FAILED", "failed to load tag", err)
	}
	if tag == nil {
		return nil, NewBusinessErrorf("TAG_NOT_FOUND", "tag %q not found", ErrTagNotFound, name)
	}
	m.cache.Set(ctx, tag.ID, tag)
	return cloneTag(tag), nil
}

// GetAll returns the whole vocabulary sorted by name, loading the cache on
// first use or when refresh is set
func (m *TagManagerImpl) GetAll(ctx context.Context, refresh bool) ([]*models.ElementTag, error) {
	if !refresh {
		if all, ok := m.cache.All(ctx); ok {
			return sortTagsByName(cloneTags(all), false), nil
		}
	}

	tags, err := m.tagRepo.ListByKind(ctx, m.kind)
	if err != nil {
		m.log.Error("failed to list tags", "error", err)
		return nil, storeError("TAG_LIST_FAILED", "failed to list tags", err)
	}
	values := make(map[uint]*models.ElementTag, len(tags))
	for _, t := range tags {
		values[t.ID] = t
	}
	m.cache.Fill(ctx, values)
	if refresh {
		m.publish(ctx, services.ActionInvalidated, 0)
	}
	return sortTagsByName(cloneTags(tags), false), nil
}

func (m *TagManagerImpl) Update(ctx context.Context, id uint, update models.ElementTagUpdate) (*models.ElementTag, error) {
	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return current, nil
	}

	if update.Name != nil {
		if err := ValidateTagName(*update.Name); err != nil {
			return nil, err
		}
		if *update.Name != current.Name {
			other, err := m.tagRepo.ByName(ctx, m.kind, *update.Name)
			if err != nil {
				m.log.Error("failed to check tag name", "name", *update.Name, "error", err)
				return nil, storeError("TAG_UPDATE_FAILED", "failed to update tag", err)
			}
			if other != nil && other.ID != id {
				return nil, NewBusinessErrorf("TAG_NAME_EXISTS", "tag %q already exists", ErrDuplicateName, *update.Name)
			}
		}
	}
	if update.Color != nil {
		if err := ValidateColor(*update.Color); err != nil {
			return nil, err
		}
	}

	if err := m.tagRepo.Update(ctx, id, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			m.cache.Delete(ctx, id)
			return nil, NewBusinessErrorf("TAG_NOT_FOUND", "tag %d not found", ErrTagNotFound, id)
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, NewBusinessError("TAG_NAME_EXISTS", "tag name already exists", ErrDuplicateName)
		}
		m.log.Error("failed to update tag", "tag_id", id, "error", err)
		return nil, storeError("TAG_UPDATE_FAILED", "failed to update tag", err)
	}

	m.cache.Delete(ctx, id)
	fresh, err := m.tagRepo.ByID(ctx, id)
	if err != nil || fresh == nil {
		// the cached vocabulary can no longer be trusted to be complete
		m.cache.Clear(ctx)
		m.publish(ctx, services.ActionInvalidated, 0)
		if err != nil {
			m.log.Error("failed to reload tag after update", "tag_id", id, "error", err)
			return nil, storeError("TAG_UPDATE_FAILED", "failed to reload tag", err)
		}
		return nil, NewBusinessErrorf("TAG_NOT_FOUND", "tag %d not found", ErrTagNotFound, id)
	}
	m.cache.Set(ctx, id, fresh)
	m.publish(ctx, services.ActionUpdated, id)
	return cloneTag(fresh), nil
}

// Delete removes the tag even when relations or components still carry it;
// their associations are removed with it
func (m *TagManagerImpl) Delete(ctx context.Context, id uint) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}

	usage, err := m.tagRepo.UsageCount(ctx, id)
	if err != nil {
		m.log.Warn("failed to read tag usage before delete", "tag_id", id, "error", err)
	} else if usage > 0 {
		m.log.Warn("deleting tag still in use", "tag_id", id, "usage", usage)
	}

	if err := m.tagRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.cache.Delete(ctx, id)
			return NewBusinessErrorf("TAG_NOT_FOUND", "tag %d not found", ErrTagNotFound, id)
		}
		m.log.Error("failed to delete tag", "tag_id", id, "error", err)
		return storeError("TAG_DELETE_FAILED", "failed to delete tag", err)
	}

	m.cache.Delete(ctx, id)
	m.log.Info("tag deleted", "tag_id", id)
	m.publish(ctx, services.ActionDeleted, id)
	return nil
}

func (m *TagManagerImpl) AssignToRelation(ctx context.Context, relationID uint, tagIDs []uint) error {
	if err := m.requireTags(ctx, tagIDs); err != nil {
		return err
	}
	if err := m.assocRepo.ReplaceRelationTags(ctx, relationID, tagIDs); err != nil {
		m.log.Error("failed to assign relation tags", "relation_id", relationID, "error", err)
		return storeError("TAG_ASSIGN_FAILED", "failed to assign tags", err)
	}
	m.publishAssociation(ctx, services.EntityRelation, relationID)
	return nil
}

func (m *TagManagerImpl) AssignToComponent(ctx context.Context, componentID uint, tagIDs []uint) error {
	if err := m.requireTags(ctx, tagIDs); err != nil {
		return err
	}
	if err := m.assocRepo.ReplaceComponentTags(ctx, componentID, tagIDs); err != nil {
		m.log.Error("failed to assign component tags", "component_id", componentID, "error", err)
		return storeError("TAG_ASSIGN_FAILED", "failed to assign tags", err)
	}
	m.publishAssociation(ctx, services.EntityComponent, componentID)
	return nil
}

func (m *TagManagerImpl) AddToRelation(ctx context.Context, relationID, tagID uint) error {
	if err := m.requireTags(ctx, []uint{tagID}); err != nil {
		return err
	}
	if err := m.assocRepo.AddRelationTag(ctx, relationID, tagID); err != nil {
		m.log.Error("failed to add relation tag", "relation_id", relationID, "tag_id", tagID, "error", err)
		return storeError("TAG_ASSIGN_FAILED", "failed to add tag", err)
	}
	m.publishAssociation(ctx, services.EntityRelation, relationID)
	return nil
}

func (m *TagManagerImpl) AddToComponent(ctx context.Context, componentID, tagID uint) error {
	if err := m.requireTags(ctx, []uint{tagID}); err != nil {
		return err
	}
	if err := m.assocRepo.AddComponentTag(ctx, componentID, tagID); err != nil {
		m.log.Error("failed to add component tag", "component_id", componentID, "tag_id", tagID, "error", err)
		return storeError("TAG_ASSIGN_FAILED", "failed to add tag", err)
	}
	m.publishAssociation(ctx, services.EntityComponent, componentID)
	return nil
}

func (m *TagManagerImpl) RemoveFromRelation(ctx context.Context, relationID, tagID uint) error {
	if err := m.assocRepo.RemoveRelationTag(ctx, relationID, tagID); err != nil {
		m.log.Error("failed to remove relation tag", "relation_id", relationID, "tag_id", tagID, "error", err)
		return storeError("TAG_REMOVE_FAILED", "failed to remove tag", err)
	}
	m.publishAssociation(ctx, services.EntityRelation, relationID)
	return nil
}

func (m *TagManagerImpl) RemoveFromComponent(ctx context.Context, componentID, tagID uint) error {
	if err := m.assocRepo.RemoveComponentTag(ctx, componentID, tagID); err != nil {
		m.log.Error("failed to remove component tag", "component_id", componentID, "tag_id", tagID, "error", err)
		return storeError("TAG_REMOVE_FAILED", "failed to remove tag", err)
	}
	m.publishAssociation(ctx, services.EntityComponent, componentID)
	return nil
}

func (m *TagManagerImpl) TagsForRelation(ctx context.Context, relationID uint) ([]*models.ElementTag, error) {
	tags, err := m.assocRepo.TagsForRelation(ctx, relationID)
	if err != nil {
		m.log.Error("failed to load relation tags", "relation_id", relationID, "error", err)
		return nil, storeError("TAG_LOOKUP_FAILED", "failed to load tags", err)
	}
	return tags, nil
}

func (m *TagManagerImpl) TagsForComponent(ctx context.Context, componentID uint) ([]*models.ElementTag, error) {
	tags, err := m.assocRepo.TagsForComponent(ctx, componentID)
	if err != nil {
		m.log.Error("failed to load component tags", "component_id", componentID, "error", err)
		return nil, storeError("TAG_LOOKUP_FAILED", "failed to load tags", err)
	}
	return tags, nil
}

// Search matches query as a case-insensitive substring of tag names; an empty
// query returns every tag
func (m *TagManagerImpl) Search(ctx context.Context, query string) ([]*models.ElementTag, error) {
	all, err := m.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	return models.FilterTagsByName(all, query), nil
}

func (m *TagManagerImpl) FilterByName(tags []*models.ElementTag, query string) []*models.ElementTag {
	return models.FilterTagsByName(tags, query)
}

func (m *TagManagerImpl) UsageCount(ctx context.Context, id uint) (int64, error) {
	n, err := m.tagRepo.UsageCount(ctx, id)
	if err != nil {
		m.log.Error("failed to count tag usage", "tag_id", id, "error", err)
		return 0, storeError("TAG_USAGE_FAILED", "failed to count tag usage", err)
	}
	return n, nil
}

// Popular returns the most used tags, most used first; unused tags are left out
func (m *TagManagerImpl) Popular(ctx context.Context, limit int) ([]TagUsage, error) {
	if limit <= 0 {
		limit = utils.PopularTagsLimit
	}
	counts, err := m.tagRepo.UsageCounts(ctx, m.kind)
	if err != nil {
		m.log.Error("failed to aggregate tag usage", "error", err)
		return nil, storeError("TAG_USAGE_FAILED", "failed to count tag usage", err)
	}
	all, err := m.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}

	out := make([]TagUsage, 0, len(counts))
	for _, t := range all {
		if n := counts[t.ID]; n > 0 {
			out = append(out, TagUsage{Tag: t, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *TagManagerImpl) Sorted(ctx context.Context, reverse bool) ([]*models.ElementTag, error) {
	all, err := m.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	return sortTagsByName(all, reverse), nil
}

// TagsForContainer returns the distinct tags used anywhere in a container
func (m *TagManagerImpl) TagsForContainer(ctx context.Context, containerID uint) ([]*models.ElementTag, error) {
	entries, err := m.assembler.Assemble(ctx, containerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	out := make([]*models.ElementTag, 0)
	for _, e := range entries {
		for _, id := range e.TagIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			tag, err := m.Get(ctx, id)
			if err != nil {
				if IsTagNotFound(err) {
					continue
				}
				return nil, err
			}
			out = append(out, tag)
		}
	}
	return sortTagsByName(out, false), nil
}

func (m *TagManagerImpl) RelationsByTag(ctx context.Context, tagID uint) ([]uint, error) {
	ids, err := m.assocRepo.RelationIDsByTag(ctx, tagID)
	if err != nil {
		m.log.Error("failed to list relations by tag", "tag_id", tagID, "error", err)
		return nil, storeError("TAG_LOOKUP_FAILED", "failed to list relations", err)
	}
	return ids, nil
}

func (m *TagManagerImpl) ComponentsByTag(ctx context.Context, tagID uint) ([]uint, error) {
	ids, err := m.assocRepo.ComponentIDsByTag(ctx, tagID)
	if err != nil {
		m.log.Error("failed to list components by tag", "tag_id", tagID, "error", err)
		return nil, storeError("TAG_LOOKUP_FAILED", "failed to list components", err)
	}
	return ids, nil
}

// CreateBatch creates one tag per entry; a blank color means the default.
// Entries with an invalid name or color and already existing names are skipped.
func (m *TagManagerImpl) CreateBatch(ctx context.Context, specs []TagSpec) ([]*models.ElementTag, error) {
	created := make([]*models.ElementTag, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		color := spec.Color
		if color == "" {
			color = utils.DefaultColor
		}
		tag, err := m.Create(ctx, name, color, spec.Description)
		if err != nil {
			if IsValidation(err) || IsDuplicateName(err) {
				m.log.Debug("skipping tag in batch", "name", name, "error", err)
				continue
			}
			return created, err
		}
		created = append(created, tag)
	}
	m.log.Info("tag batch created", "created", len(created), "requested", len(specs))
	return created, nil
}

// DeleteBatch deletes the given tags and returns how many were removed;
// unknown ids are skipped
func (m *TagManagerImpl) DeleteBatch(ctx context.Context, ids []uint) (int, error) {
	deleted := 0
	for _, id := range utils.UniqueUints(ids) {
		if err := m.Delete(ctx, id); err != nil {
			if IsTagNotFound(err) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// requireTags checks that every id names a tag of this kind
func (m *TagManagerImpl) requireTags(ctx context.Context, tagIDs []uint) error {
	for _, id := range utils.UniqueUints(tagIDs) {
		if _, err := m.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *TagManagerImpl) publish(ctx context.Context, action string, tagID uint) {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(ctx, services.ChangeEvent{
		Entity:   services.EntityElementTag,
		Action:   action,
		Kind:     string(m.kind),
		EntityID: tagID,
	})
}

func (m *TagManagerImpl) publishAssociation(ctx context.Context, entity string, id uint) {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(ctx, services.ChangeEvent{
		Entity:   entity,
		Action:   services.ActionTagsChanged,
		Kind:     string(m.kind),
		EntityID: id,
	})
}

func cloneTag(t *models.ElementTag) *models.ElementTag {
	c := *t
	return &c
}

func cloneTags(tags []*models.ElementTag) []*models.ElementTag {
	out := make([]*models.ElementTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, cloneTag(t))
	}
	return out
}

// sortTagsByName sorts in place by lower-cased name, then id
func sortTagsByName(tags []*models.ElementTag, reverse bool) []*models.ElementTag {
	sort.SliceStable(tags, func(i, j int) bool {
		a, b := strings.ToLower(tags[i].Name), strings.ToLower(tags[j].Name)
		if a == b {
			if reverse {
				return tags[i].ID > tags[j].ID
			}
			return tags[i].ID < tags[j].ID
		}
		if reverse {
			return a > b
		}
		return a < b
	})
	return tags
}
