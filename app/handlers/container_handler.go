package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/widget-sidebar/app/dto"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/gofiber/fiber/v3"
)

// ContainerHandlerInterface defines the contract for area and project handlers
type ContainerHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Duplicate(c fiber.Ctx) error
	Summary(c fiber.Ctx) error
	Content(c fiber.Ctx) error
	Grouped(c fiber.Ctx) error
	OrderCheck(c fiber.Ctx) error
	Normalize(c fiber.Ctx) error
	AddRelation(c fiber.Ctx) error
	AddComponent(c fiber.Ctx) error
}

// ContainerHandler handles container HTTP requests
type ContainerHandler struct {
	baseHandler
	containers businessflow.ContainerManager
	engine     businessflow.ReorderEngine
}

// NewContainerHandler creates a new container handler
func NewContainerHandler(containers businessflow.ContainerManager, engine businessflow.ReorderEngine) *ContainerHandler {
	return &ContainerHandler{
		baseHandler: newBaseHandler(),
		containers:  containers,
		engine:      engine,
	}
}

// Create Container
// @Summary Create area or project
// @Description Create a container. Names are unique per kind ignoring case; color defaults to #9b59b6.
// @Tags Containers
// @Accept json
// @Produce json
// @Param request body dto.CreateContainerRequest true "Container"
// @Success 201 {object} dto.APIResponse{data=dto.ContainerResponse} "Container created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Name already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /api/v1/containers [post]
func (h *ContainerHandler) Create(c fiber.Ctx) error {
	var req dto.CreateContainerRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers")
	defer cancel()

	container, err := h.containers.Create(ctx, models.ContainerKind(req.Kind), req.Name, req.Description, req.Color, req.Icon)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to create container")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Container created successfully", dto.ToContainerResponse(container))
}

// List Containers
// @Summary List containers of a kind
// @Tags Containers
// @Produce json
// @Param kind query string true "area or project"
// @Param active_only query bool false "Only active containers"
// @Param q query string false "Name search, ignoring case"
// @Success 200 {object} dto.APIResponse{data=[]dto.ContainerResponse} "Containers"
// @Failure 400 {object} dto.APIResponse "Unknown kind"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Security BearerAuth
// @Router /api/v1/containers [get]
func (h *ContainerHandler) List(c fiber.Ctx) error {
	kind := models.ContainerKind(c.Query("kind"))
	if !kind.Valid() {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "kind must be area or project", "INVALID_CONTAINER_KIND", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers")
	defer cancel()

	var (
		rows []*models.Container
		err  error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		rows, err = h.containers.Search(ctx, kind, q)
	} else {
		rows, err = h.containers.List(ctx, kind, queryBool(c, "active_only", false))
	}
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list containers")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Containers retrieved successfully", dto.ToContainerResponses(rows))
}

// Get Container
// @Summary Get container
// @Tags Containers
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse{data=dto.ContainerResponse} "Container"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id} [get]
func (h *ContainerHandler) Get(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id")
	defer cancel()

	container, err := h.containers.Get(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to get container")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Container retrieved successfully", dto.ToContainerResponse(container))
}

// Update Container
// @Summary Update container
// @Description Partial update; omitted fields are kept. Setting is_active to false hides the container from active listings.
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path int true "Container ID"
// @Param request body dto.UpdateContainerRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ContainerResponse} "Container updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Failure 409 {object} dto.APIResponse "Name already exists"
// @Security BearerAuth
// @Router /api/v1/containers/{id} [put]
func (h *ContainerHandler) Update(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateContainerRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id")
	defer cancel()

	container, err := h.containers.Update(ctx, id, req.ToModel())
	if err != nil {
		return h.handleFlowError(c, err, "Failed to update container")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Container updated successfully", dto.ToContainerResponse(container))
}

// Delete Container
// @Summary Delete container
// @Description Deletes the container with its relations, components and their tag associations.
// @Tags Containers
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse "Container deleted"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id} [delete]
func (h *ContainerHandler) Delete(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id")
	defer cancel()

	if err := h.containers.Delete(ctx, id); err != nil {
		return h.handleFlowError(c, err, "Failed to delete container")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Container deleted successfully", nil)
}

// Duplicate Container
// @Summary Duplicate container
// @Description Copies the container with its content, order and tag sets. The name defaults to "<name> (Copy)".
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path int true "Container ID"
// @Param request body dto.DuplicateContainerRequest false "New name"
// @Success 201 {object} dto.APIResponse{data=dto.ContainerResponse} "Container duplicated"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Failure 409 {object} dto.APIResponse "Name already exists"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/duplicate [post]
func (h *ContainerHandler) Duplicate(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.DuplicateContainerRequest
	if len(c.Body()) > 0 {
		if ok, err := h.bindAndValidate(c, &req); !ok {
			return err
		}
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/duplicate")
	defer cancel()

	container, err := h.containers.Duplicate(ctx, id, req.Name)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to duplicate container")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Container duplicated successfully", dto.ToContainerResponse(container))
}

// Summary Container
// @Summary Container summary
// @Tags Containers
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse{data=businessflow.ContainerSummary} "Summary"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/summary [get]
func (h *ContainerHandler) Summary(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/summary")
	defer cancel()

	summary, err := h.containers.Summary(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to summarize container")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Summary retrieved successfully", summary)
}

// Content Container
// @Summary Ordered content
// @Description Relations and components merged by order_index. With tag_ids only entries carrying any (or all, with match_all) of the tags are returned.
// @Tags Containers
// @Produce json
// @Param id path int true "Container ID"
// @Param tag_ids query string false "Comma separated tag ids"
// @Param match_all query bool false "Require every selected tag"
// @Success 200 {object} dto.APIResponse{data=dto.ContainerContentResponse} "Content"
// @Failure 400 {object} dto.APIResponse "Malformed tag_ids"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/content [get]
func (h *ContainerHandler) Content(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	tagIDs, err := utils.ParseUintList(c.Query("tag_ids"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "tag_ids must be a comma separated list of ids", "INVALID_TAG_IDS", err.Error())
	}
	matchAll := queryBool(c, "match_all", false)

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/content")
	defer cancel()

	entries, err := h.containers.Content(ctx, id, tagIDs, matchAll)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load content")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Content retrieved successfully", dto.ContainerContentResponse{
		ContainerID: id,
		TagIDs:      tagIDs,
		MatchAll:    matchAll,
		Entries:     dto.ToContentEntryResponses(entries),
	})
}

// Grouped Container
// @Summary Relations grouped by entity type
// @Tags Containers
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse{data=dto.GroupedEntitiesResponse} "Groups keyed by plural type"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/grouped [get]
func (h *ContainerHandler) Grouped(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/grouped")
	defer cancel()

	groups, err := h.containers.EntitiesGrouped(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to group relations")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Relations retrieved successfully", dto.ToGroupedEntitiesResponse(id, groups))
}

// OrderCheck Container
// @Summary Check order indexes
// @Description Reports order_index values shared by more than one entry, left behind by an interrupted reorder.
// @Tags Containers
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse{data=dto.OrderCheckResponse} "Order state"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/order-check [get]
func (h *ContainerHandler) OrderCheck(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/order-check")
	defer cancel()

	if _, err := h.containers.Get(ctx, id); err != nil {
		return h.handleFlowError(c, err, "Failed to check order")
	}
	resp := dto.OrderCheckResponse{ContainerID: id, Consistent: true}
	if err := h.engine.CheckOrder(ctx, id); err != nil {
		var inconsistent *businessflow.InconsistentOrderError
		if !errors.As(err, &inconsistent) {
			return h.handleFlowError(c, err, "Failed to check order")
		}
		resp.Consistent = false
		resp.Duplicates = inconsistent.Duplicates
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Order checked successfully", resp)
}

// Normalize Container
// @Summary Renumber order indexes
// @Description Rewrites the indexes of the container to 0..n-1 keeping the current display order.
// @Tags Containers
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.ContentEntryResponse} "Renumbered content"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/normalize [post]
func (h *ContainerHandler) Normalize(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/normalize")
	defer cancel()

	if _, err := h.containers.Get(ctx, id); err != nil {
		return h.handleFlowError(c, err, "Failed to normalize order")
	}
	entries, err := h.engine.Normalize(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to normalize order")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Order normalized successfully", dto.ToContentEntryResponses(entries))
}

// AddRelation Container
// @Summary Link an entity
// @Description Appends the relation, or inserts it right below insert_below shifting later entries down by one.
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path int true "Container ID"
// @Param request body dto.AddRelationRequest true "Relation"
// @Success 201 {object} dto.APIResponse{data=dto.RelationResponse} "Relation added"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Container or anchor not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/relations [post]
func (h *ContainerHandler) AddRelation(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.AddRelationRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/relations")
	defer cancel()

	rel, err := h.containers.AddEntity(ctx, id, req.EntityType, req.EntityID, req.Description, req.InsertBelow.ToModel())
	if err != nil {
		return h.handleFlowError(c, err, "Failed to add relation")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, fmt.Sprintf("%s linked successfully", utils.TitleCase(req.EntityType)), dto.ToRelationResponse(rel))
}

// AddComponent Container
// @Summary Add a structural component
// @Tags Containers
// @Accept json
// @Produce json
// @Param id path int true "Container ID"
// @Param request body dto.AddComponentRequest true "Component"
// @Success 201 {object} dto.APIResponse{data=dto.ComponentResponse} "Component added"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Container or anchor not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/components [post]
func (h *ContainerHandler) AddComponent(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.AddComponentRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/components")
	defer cancel()

	comp, err := h.containers.AddComponent(ctx, id, req.ComponentType, req.Content, req.InsertBelow.ToModel())
	if err != nil {
		return h.handleFlowError(c, err, "Failed to add component")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Component added successfully", dto.ToComponentResponse(comp))
}
