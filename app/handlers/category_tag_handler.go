package handlers

import (
	"strings"

	"github.com/amirphl/widget-sidebar/app/dto"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/gofiber/fiber/v3"
)

// CategoryTagHandlerInterface defines the contract for category tag handlers
type CategoryTagHandlerInterface interface {
	List(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	DeleteUnused(c fiber.Ctx) error
}

// CategoryTagHandler handles category tag HTTP requests
type CategoryTagHandler struct {
	baseHandler
	flow businessflow.CategoryTagFlow
}

// NewCategoryTagHandler creates a new category tag handler
func NewCategoryTagHandler(flow businessflow.CategoryTagFlow) *CategoryTagHandler {
	return &CategoryTagHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// List CategoryTag
// @Summary List category tags
// @Tags Category Tags
// @Produce json
// @Param q query string false "Name search, ignoring case"
// @Success 200 {object} dto.APIResponse{data=[]dto.CategoryTagResponse} "Category tags"
// @Security BearerAuth
// @Router /api/v1/category-tags [get]
func (h *CategoryTagHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/category-tags")
	defer cancel()

	var (
		tags []*models.CategoryTag
		err  error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		tags, err = h.flow.Search(ctx, q)
	} else {
		tags, err = h.flow.All(ctx)
	}
	if err != nil {
		return h.handleFlowError(c, err, "Failed to list category tags")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Category tags retrieved successfully", dto.ToCategoryTagResponses(tags))
}

// Create CategoryTag
// @Summary Create category tag
// @Description Returns the existing tag when one with the same name ignoring case exists.
// @Tags Category Tags
// @Accept json
// @Produce json
// @Param request body dto.CreateCategoryTagRequest true "Name"
// @Success 200 {object} dto.APIResponse{data=dto.CategoryTagResponse} "Category tag"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Security BearerAuth
// @Router /api/v1/category-tags [post]
func (h *CategoryTagHandler) Create(c fiber.Ctx) error {
	var req dto.CreateCategoryTagRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/category-tags")
	defer cancel()

	tag, err := h.flow.Create(ctx, req.Name)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to create category tag")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Category tag saved successfully", dto.ToCategoryTagResponses([]*models.CategoryTag{tag})[0])
}

// DeleteUnused CategoryTag
// @Summary Delete unused category tags
// @Tags Category Tags
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.DeleteUnusedCategoryTagsResponse} "Number of removed tags"
// @Security BearerAuth
// @Router /api/v1/category-tags/unused [delete]
func (h *CategoryTagHandler) DeleteUnused(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/category-tags/unused")
	defer cancel()

	removed, err := h.flow.DeleteUnused(ctx)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to delete unused category tags")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Unused category tags deleted successfully", dto.DeleteUnusedCategoryTagsResponse{Removed: removed})
}
