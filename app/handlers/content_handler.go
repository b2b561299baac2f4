package handlers

import (
	"github.com/amirphl/widget-sidebar/app/dto"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/gofiber/fiber/v3"
)

// ContentHandlerInterface defines the contract for relation and component handlers
type ContentHandlerInterface interface {
	MoveRelation(c fiber.Ctx) error
	MoveComponent(c fiber.Ctx) error
	UpdateRelation(c fiber.Ctx) error
	UpdateComponent(c fiber.Ctx) error
	DeleteRelation(c fiber.Ctx) error
	DeleteComponent(c fiber.Ctx) error
	RelationMetadata(c fiber.Ctx) error
}

// ContentHandler handles requests on single entries of a container
type ContentHandler struct {
	baseHandler
	containers businessflow.ContainerManager
	engine     businessflow.ReorderEngine
	resolver   businessflow.MetadataResolver
}

// NewContentHandler creates a new content handler
func NewContentHandler(containers businessflow.ContainerManager, engine businessflow.ReorderEngine, resolver businessflow.MetadataResolver) *ContentHandler {
	return &ContentHandler{
		baseHandler: newBaseHandler(),
		containers:  containers,
		engine:      engine,
		resolver:    resolver,
	}
}

// MoveRelation Content
// @Summary Move a relation
// @Description Swaps the relation with its neighbour in the merged order. Moving past either end is a no-op.
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Relation ID"
// @Param request body dto.MoveEntryRequest true "Direction"
// @Success 200 {object} dto.APIResponse{data=[]dto.ContentEntryResponse} "Content after the move"
// @Failure 404 {object} dto.APIResponse "Relation not found"
// @Failure 409 {object} dto.APIResponse "Order left inconsistent"
// @Security BearerAuth
// @Router /api/v1/relations/{id}/move [post]
func (h *ContentHandler) MoveRelation(c fiber.Ctx) error {
	return h.move(c, models.EntryKindRelation, "/api/v1/relations/:id/move")
}

// MoveComponent Content
// @Summary Move a component
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Component ID"
// @Param request body dto.MoveEntryRequest true "Direction"
// @Success 200 {object} dto.APIResponse{data=[]dto.ContentEntryResponse} "Content after the move"
// @Failure 404 {object} dto.APIResponse "Component not found"
// @Failure 409 {object} dto.APIResponse "Order left inconsistent"
// @Security BearerAuth
// @Router /api/v1/components/{id}/move [post]
func (h *ContentHandler) MoveComponent(c fiber.Ctx) error {
	return h.move(c, models.EntryKindComponent, "/api/v1/components/:id/move")
}

func (h *ContentHandler) move(c fiber.Ctx, kind models.EntryKind, endpoint string) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.MoveEntryRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	ref := models.EntryRef{Kind: kind, ID: id}
	var entries []models.ContentEntry
	if req.Direction == "up" {
		entries, err = h.engine.MoveUp(ctx, ref)
	} else {
		entries, err = h.engine.MoveDown(ctx, ref)
	}
	if err != nil {
		return h.handleFlowError(c, err, "Failed to move entry")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Entry moved successfully", dto.ToContentEntryResponses(entries))
}

// UpdateRelation Content
// @Summary Edit a relation description
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Relation ID"
// @Param request body dto.UpdateRelationRequest true "New description"
// @Success 200 {object} dto.APIResponse{data=dto.RelationResponse} "Relation updated"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 404 {object} dto.APIResponse "Relation not found"
// @Security BearerAuth
// @Router /api/v1/relations/{id} [put]
func (h *ContentHandler) UpdateRelation(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateRelationRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/relations/:id")
	defer cancel()

	rel, err := h.containers.UpdateRelationDescription(ctx, id, req.Description)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to update relation")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Relation updated successfully", dto.ToRelationResponse(rel))
}

// UpdateComponent Content
// @Summary Edit a component
// @Description Replaces the component text. Only dividers may be empty.
// @Tags Content
// @Accept json
// @Produce json
// @Param id path int true "Component ID"
// @Param request body dto.UpdateComponentRequest true "New content"
// @Success 200 {object} dto.APIResponse{data=dto.ComponentResponse} "Component updated"
// @Failure 400 {object} dto.APIResponse "Empty content"
// @Failure 404 {object} dto.APIResponse "Component not found"
// @Security BearerAuth
// @Router /api/v1/components/{id} [put]
func (h *ContentHandler) UpdateComponent(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	var req dto.UpdateComponentRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/components/:id")
	defer cancel()

	comp, err := h.containers.UpdateComponentContent(ctx, id, req.Content)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to update component")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Component updated successfully", dto.ToComponentResponse(comp))
}

// DeleteRelation Content
// @Summary Unlink an entity
// @Description Removes the relation and its tag associations. Other entries keep their indexes.
// @Tags Content
// @Produce json
// @Param id path int true "Relation ID"
// @Success 200 {object} dto.APIResponse "Relation removed"
// @Failure 404 {object} dto.APIResponse "Relation not found"
// @Security BearerAuth
// @Router /api/v1/relations/{id} [delete]
func (h *ContentHandler) DeleteRelation(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/relations/:id")
	defer cancel()

	if err := h.containers.RemoveEntity(ctx, id); err != nil {
		return h.handleFlowError(c, err, "Failed to remove relation")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Relation removed successfully", nil)
}

// DeleteComponent Content
// @Summary Remove a component
// @Tags Content
// @Produce json
// @Param id path int true "Component ID"
// @Success 200 {object} dto.APIResponse "Component removed"
// @Failure 404 {object} dto.APIResponse "Component not found"
// @Security BearerAuth
// @Router /api/v1/components/{id} [delete]
func (h *ContentHandler) DeleteComponent(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/components/:id")
	defer cancel()

	if err := h.containers.RemoveComponent(ctx, id); err != nil {
		return h.handleFlowError(c, err, "Failed to remove component")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Component removed successfully", nil)
}

// RelationMetadata Content
// @Summary Display metadata of a linked entity
// @Description Icon, label, name and content of the relation target. Missing entities resolve to placeholder values.
// @Tags Content
// @Produce json
// @Param id path int true "Relation ID"
// @Success 200 {object} dto.APIResponse{data=models.EntityMetadata} "Metadata"
// @Failure 404 {object} dto.APIResponse "Relation not found"
// @Security BearerAuth
// @Router /api/v1/relations/{id}/metadata [get]
func (h *ContentHandler) RelationMetadata(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/relations/:id/metadata")
	defer cancel()

	rel, err := h.containers.Relation(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to load relation")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Metadata retrieved successfully", h.resolver.Resolve(ctx, rel.EntityType, rel.EntityID))
}
