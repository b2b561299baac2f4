package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/amirphl/widget-sidebar/app/dto"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/gofiber/fiber/v3"
)

// TagHandlerInterface defines the contract for element tag handlers
type TagHandlerInterface interface {
	Create(c fiber.Ctx) error
	CreateBatch(c fiber.Ctx) error
	DeleteBatch(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Popular(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	ContainerTags(c fiber.Ctx) error

	RelationTags(c fiber.Ctx) error
	AssignRelationTags(c fiber.Ctx) error
	AddRelationTag(c fiber.Ctx) error
	RemoveRelationTag(c fiber.Ctx) error
	ComponentTags(c fiber.Ctx) error
	AssignComponentTags(c fiber.Ctx) error
	AddComponentTag(c fiber.Ctx) error
	RemoveComponentTag(c fiber.Ctx) error
}

// TagHandler serves the area and project tag vocabularies and the tag sets
// of relations and components
type TagHandler struct {
	baseHandler
	tags       map[models.ContainerKind]businessflow.TagManager
	containers businessflow.ContainerManager
}

// NewTagHandler creates a new tag handler over one manager per container kind
func NewTagHandler(containers businessflow.ContainerManager, managers ...businessflow.TagManager) *TagHandler {
	tags := make(map[models.ContainerKind]businessflow.TagManager, len(managers))
	for _, m := range managers {
		tags[m.Kind()] = m
	}
	return &TagHandler{
		baseHandler: newBaseHandler(),
		tags:        tags,
		containers:  containers,
	}
}

// manager resolves the :kind path parameter, writing a 400 response for an
// unknown kind
func (h *TagHandler) manager(c fiber.Ctx) (businessflow.TagManager, bool, error) {
	kind := models.ContainerKind(c.Params("kind"))
	m, ok := h.tags[kind]
	if !ok {
		return nil, false, h.ErrorResponse(c, fiber.StatusBadRequest, "kind must be area or project", "INVALID_CONTAINER_KIND", c.Params("kind"))
	}
	return m, true, nil
}

// managerForContainer returns the tag manager of the container's kind
func (h *TagHandler) managerForContainer(ctx context.Context, containerID uint) (businessflow.TagManager, error) {
	container, err := h.containers.Get(ctx, containerID)
	if err != nil {
		return nil, err
	}
	m, ok := h.tags[container.Kind]
	if !ok {
		return nil, businessflow.NewBusinessErrorf("INVALID_CONTAINER_KIND", "no tags for container kind %q", businessflow.ErrValidation, container.Kind)
	}
	return m, nil
}

// Create Tag
// @Summary Create element tag
// @Description Creates a tag in the vocabulary of one container kind. Names are unique per kind.
// @Tags Tags
// @Accept json
// @Produce json
// @Param kind path string true "area or project"
// @Param request body dto.CreateTagRequest true "Tag"
// @Success 201 {object} dto.APIResponse{data=dto.TagResponse} "Tag created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Name already exists"
// @Security BearerAuth
// @Router /api/v1/tags/{kind} [post]
func (h *TagHandler) Create(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}
	var req dto.CreateTagRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind")
	defer cancel()

	tag, err := m.Create(ctx, req.Name, req.Color, req.Description)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to create tag")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Tag created successfully", dto.ToTagResponse(tag))
}

// CreateBatch Tag
// @Summary Create several tags
// @Description Invalid and already taken names are skipped; the created tags are returned.
// @Tags Tags
// @Accept json
// @Produce json
// @Param kind path string true "area or project"
// @Param request body dto.BatchCreateTagsRequest true "Tags"
// @Success 201 {object} dto.APIResponse{data=[]dto.TagResponse} "Tags created"
// @Security BearerAuth
// @Router /api/v1/tags/{kind}/batch [post]
func (h *TagHandler) CreateBatch(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}
	var req dto.BatchCreateTagsRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind/batch")
	defer cancel()

	created, err := m.CreateBatch(ctx, req.ToSpecs())
	if err != nil {
		return h.handleFlowError(c, err, "Failed to create tags")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Tags created successfully", dto.ToTagResponses(created))
}

// DeleteBatch Tag
// @Summary Delete several tags
// @Tags Tags
// @Accept json
// @Produce json
// @Param kind path string true "area or project"
// @Param request body dto.BatchDeleteTagsRequest true "IDs"
// @Success 200 {object} dto.APIResponse{data=dto.BatchDeleteTagsResponse} "Number of deleted tags"
// @Security BearerAuth
// @Router /api/v1/tags/{kind}/batch [delete]
func (h *TagHandler) DeleteBatch(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}
	var req dto.BatchDeleteTagsRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind/batch")
	defer cancel()

	deleted, err := m.DeleteBatch(ctx, req.IDs)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to delete tags")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tags deleted successfully", dto.BatchDeleteTagsResponse{Deleted: deleted})
}

// List Tag
// @Summary List tags of a kind
// @Tags Tags
// @Produce json
// @Param kind path string true "area or project"
// @Param q query string false "Name search, ignoring case"
// @Param reverse query bool false "Sort names descending"
// @Param refresh query bool false "Reload the cached vocabulary"
// @Success 200 {object} dto.APIResponse{data=[]dto.TagResponse} "Tags"
// @Security BearerAuth
// @Router /api/v1/tags/{kind} [get]
func (h *TagHandler) List(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind")
	defer cancel()

	var tags []*models.ElementTag
	switch {
	case strings.TrimSpace(c.Query("q")) != "":
		tags, err = m.Search(ctx, c.Query("q"))
	case queryBool(c, "reverse", false):
		tags, err = m.Sorted(ctx, true)
	default:
		tags, err = m.GetAll(ctx, queryBool(c, "refresh", false))
	}
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list tags")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tags retrieved successfully", dto.ToTagResponses(tags))
}

// Popular Tag
// @Summary Most used tags
// @Tags Tags
// @Produce json
// @Param kind path string true "area or project"
// @Param limit query int false "Maximum number of tags (default 10)"
// @Success 200 {object} dto.APIResponse{data=[]dto.PopularTagResponse} "Tags by usage"
// @Security BearerAuth
// @Router /api/v1/tags/{kind}/popular [get]
func (h *TagHandler) Popular(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind/popular")
	defer cancel()

	usage, err := m.Popular(ctx, limit)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load popular tags")
	}
	out := make([]dto.PopularTagResponse, 0, len(usage))
	for _, u := range usage {
		out = append(out, dto.PopularTagResponse{Tag: dto.ToTagResponse(u.Tag), UsageCount: u.Count})
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Popular tags retrieved successfully", out)
}

// Get Tag
// @Summary Get tag with usage
// @Tags Tags
// @Produce json
// @Param kind path string true "area or project"
// @Param id path int true "Tag ID"
// @Success 200 {object} dto.APIResponse{data=dto.TagDetailResponse} "Tag"
// @Failure 404 {object} dto.APIResponse "Tag not found"
// @Security BearerAuth
// @Router /api/v1/tags/{kind}/{id} [get]
func (h *TagHandler) Get(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind/:id")
	defer cancel()

	tag, err := m.Get(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get tag")
	}
	usage, err := m.UsageCount(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get tag")
	}
	relationIDs, err := m.RelationsByTag(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get tag")
	}
	componentIDs, err := m.ComponentsByTag(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get tag")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tag retrieved successfully", dto.TagDetailResponse{
		TagResponse:  dto.ToTagResponse(tag),
		UsageCount:   usage,
		RelationIDs:  relationIDs,
		ComponentIDs: componentIDs,
	})
}

// Update Tag
// @Summary Update tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param kind path string true "area or project"
// @Param id path int true "Tag ID"
// @Param request body dto.UpdateTagRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.TagResponse} "Tag updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Tag not found"
// @Failure 409 {object} dto.APIResponse "Name already exists"
// @Security BearerAuth
// @Router /api/v1/tags/{kind}/{id} [put]
func (h *TagHandler) Update(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateTagRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind/:id")
	defer cancel()

	tag, err := m.Update(ctx, id, req.ToModel())
	if err != nil {
		return h.handleFlowError(c, err, "Failed to update tag")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tag updated successfully", dto.ToTagResponse(tag))
}

// Delete Tag
// @Summary Delete tag
// @Description Removes the tag and detaches it from every relation and component.
// @Tags Tags
// @Produce json
// @Param kind path string true "area or project"
// @Param id path int true "Tag ID"
// @Success 200 {object} dto.APIResponse "Tag deleted"
// @Failure 404 {object} dto.APIResponse "Tag not found"
// @Security BearerAuth
// @Router /api/v1/tags/{kind}/{id} [delete]
func (h *TagHandler) Delete(c fiber.Ctx) error {
	m, ok, err := h.manager(c)
	if !ok {
		return err
	}
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tags/:kind/:id")
	defer cancel()

	if err := m.Delete(ctx, id); err != nil {
		return h.handleFlowError(c, err, "Failed to delete tag")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tag deleted successfully", nil)
}

// ContainerTags Tag
// @Summary Tags used in a container
// @Tags Tags
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.TagResponse} "Distinct tags of the container content"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/tags [get]
func (h *TagHandler) ContainerTags(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/tags")
	defer cancel()

	m, err := h.managerForContainer(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load container tags")
	}
	tags, err := m.TagsForContainer(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load container tags")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tags retrieved successfully", dto.ToTagResponses(tags))
}

// RelationTags Tag
// @Summary Tags of a relation
// @Tags Tags
// @Produce json
// @Param id path int true "Relation ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.TagResponse} "Tags"
// @Failure 404 {object} dto.APIResponse "Relation not found"
// @Security BearerAuth
// @Router /api/v1/relations/{id}/tags [get]
func (h *TagHandler) RelationTags(c fiber.Ctx) error {
	return h.withRelation(c, "/api/v1/relations/:id/tags", func(ctx context.Context, m businessflow.TagManager, relationID uint) error {
		tags, err := m.TagsForRelation(ctx, relationID)
		if err != nil {
			return h.handleFlowError(c, err, "Failed to load relation tags")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tags retrieved successfully", dto.ToTagResponses(tags))
	})
}

// AssignRelationTags Tag
// @Summary Replace the tags of a relation
// @Description The relation ends up carrying exactly the given tags; an empty list clears them. Tags must belong to the kind of the relation's container.
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path int true "Relation ID"
// @Param request body dto.AssignTagsRequest true "Tag IDs"
// @Success 200 {object} dto.APIResponse{data=[]dto.TagResponse} "Tags after the change"
// @Failure 400 {object} dto.APIResponse "Unknown tag"
// @Failure 404 {object} dto.APIResponse "Relation not found"
// @Security BearerAuth
// @Router /api/v1/relations/{id}/tags [put]
func (h *TagHandler) AssignRelationTags(c fiber.Ctx) error {
	var req dto.AssignTagsRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	return h.withRelation(c, "/api/v1/relations/:id/tags", func(ctx context.Context, m businessflow.TagManager, relationID uint) error {
		if err := m.AssignToRelation(ctx, relationID, req.TagIDs); err != nil {
			return h.handleFlowError(c, err, "Failed to assign tags")
		}
		tags, err := m.TagsForRelation(ctx, relationID)
		if err != nil {
			return h.handleFlowError(c, err, "Failed to assign tags")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tags assigned successfully", dto.ToTagResponses(tags))
	})
}

// AddRelationTag Tag
// @Summary Attach one tag to a relation
// @Tags Tags
// @Produce json
// @Param id path int true "Relation ID"
// @Param tagId path int true "Tag ID"
// @Success 200 {object} dto.APIResponse "Tag attached"
// @Failure 404 {object} dto.APIResponse "Relation or tag not found"
// @Security BearerAuth
// @Router /api/v1/relations/{id}/tags/{tagId} [post]
func (h *TagHandler) AddRelationTag(c fiber.Ctx) error {
	tagID, ok, err := h.paramID(c, "tagId")
	if !ok {
		return err
	}
	return h.withRelation(c, "/api/v1/relations/:id/tags/:tagId", func(ctx context.Context, m businessflow.TagManager, relationID uint) error {
		if err := m.AddToRelation(ctx, relationID, tagID); err != nil {
			return h.handleFlowError(c, err, "Failed to attach tag")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tag attached successfully", nil)
	})
}

// RemoveRelationTag Tag
// @Summary Detach one tag from a relation
// @Tags Tags
// @Produce json
// @Param id path int true "Relation ID"
// @Param tagId path int true "Tag ID"
// @Success 200 {object} dto.APIResponse "Tag detached"
// @Failure 404 {object} dto.APIResponse "Relation not found"
// @Security BearerAuth
// @Router /api/v1/relations/{id}/tags/{tagId} [delete]
func (h *TagHandler) RemoveRelationTag(c fiber.Ctx) error {
	tagID, ok, err := h.paramID(c, "tagId")
	if !ok {
		return err
	}
	return h.withRelation(c, "/api/v1/relations/:id/tags/:tagId", func(ctx context.Context, m businessflow.TagManager, relationID uint) error {
		if err := m.RemoveFromRelation(ctx, relationID, tagID); err != nil {
			return h.handleFlowError(c, err, "Failed to detach tag")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tag detached successfully", nil)
	})
}

// ComponentTags Tag
// @Summary Tags of a component
// @Tags Tags
// @Produce json
// @Param id path int true "Component ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.TagResponse} "Tags"
// @Failure 404 {object} dto.APIResponse "Component not found"
// @Security BearerAuth
// @Router /api/v1/components/{id}/tags [get]
func (h *TagHandler) ComponentTags(c fiber.Ctx) error {
	return h.withComponent(c, "/api/v1/components/:id/tags", func(ctx context.Context, m businessflow.TagManager, componentID uint) error {
		tags, err := m.TagsForComponent(ctx, componentID)
		if err != nil {
			return h.handleFlowError(c, err, "Failed to load component tags")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tags retrieved successfully", dto.ToTagResponses(tags))
	})
}

// AssignComponentTags Tag
// @Summary Replace the tags of a component
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path int true "Component ID"
// @Param request body dto.AssignTagsRequest true "Tag IDs"
// @Success 200 {object} dto.APIResponse{data=[]dto.TagResponse} "Tags after the change"
// @Failure 400 {object} dto.APIResponse "Unknown tag"
// @Failure 404 {object} dto.APIResponse "Component not found"
// @Security BearerAuth
// @Router /api/v1/components/{id}/tags [put]
func (h *TagHandler) AssignComponentTags(c fiber.Ctx) error {
	var req dto.AssignTagsRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}
	return h.withComponent(c, "/api/v1/components/:id/tags", func(ctx context.Context, m businessflow.TagManager, componentID uint) error {
		if err := m.AssignToComponent(ctx, componentID, req.TagIDs); err != nil {
			return h.handleFlowError(c, err, "Failed to assign tags")
		}
		tags, err := m.TagsForComponent(ctx, componentID)
		if err != nil {
			return h.handleFlowError(c, err, "Failed to assign tags")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tags assigned successfully", dto.ToTagResponses(tags))
	})
}

// AddComponentTag Tag
// @Summary Attach one tag to a component
// @Tags Tags
// @Produce json
// @Param id path int true "Component ID"
// @Param tagId path int true "Tag ID"
// @Success 200 {object} dto.APIResponse "Tag attached"
// @Failure 404 {object} dto.APIResponse "Component or tag not found"
// @Security BearerAuth
// @Router /api/v1/components/{id}/tags/{tagId} [post]
func (h *TagHandler) AddComponentTag(c fiber.Ctx) error {
	tagID, ok, err := h.paramID(c, "tagId")
	if !ok {
		return err
	}
	return h.withComponent(c, "/api/v1/components/:id/tags/:tagId", func(ctx context.Context, m businessflow.TagManager, componentID uint) error {
		if err := m.AddToComponent(ctx, componentID, tagID); err != nil {
			return h.handleFlowError(c, err, "Failed to attach tag")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tag attached successfully", nil)
	})
}

// RemoveComponentTag Tag
// @Summary Detach one tag from a component
// @Tags Tags
// @Produce json
// @Param id path int true "Component ID"
// @Param tagId path int true "Tag ID"
// @Success 200 {object} dto.APIResponse "Tag detached"
// @Failure 404 {object} dto.APIResponse "Component not found"
// @Security BearerAuth
// @Router /api/v1/components/{id}/tags/{tagId} [delete]
func (h *TagHandler) RemoveComponentTag(c fiber.Ctx) error {
	tagID, ok, err := h.paramID(c, "tagId")
	if !ok {
		return err
	}
	return h.withComponent(c, "/api/v1/components/:id/tags/:tagId", func(ctx context.Context, m businessflow.TagManager, componentID uint) error {
		if err := m.RemoveFromComponent(ctx, componentID, tagID); err != nil {
			return h.handleFlowError(c, err, "Failed to detach tag")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Tag detached successfully", nil)
	})
}

// withRelation loads the relation named by :id and runs fn with the tag
// manager of its container's kind
func (h *TagHandler) withRelation(c fiber.Ctx, endpoint string, fn func(context.Context, businessflow.TagManager, uint) error) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	rel, err := h.containers.Relation(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load relation")
	}
	m, err := h.managerForContainer(ctx, rel.ContainerID)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load relation")
	}
	return fn(ctx, m, rel.ID)
}

func (h *TagHandler) withComponent(c fiber.Ctx, endpoint string, fn func(context.Context, businessflow.TagManager, uint) error) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	comp, err := h.containers.Component(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load component")
	}
	m, err := h.managerForContainer(ctx, comp.ContainerID)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load component")
	}
	return fn(ctx, m, comp.ID)
}
