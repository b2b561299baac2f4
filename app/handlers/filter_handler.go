package handlers

import (
	"github.com/amirphl/widget-sidebar/app/dto"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/gofiber/fiber/v3"
)

// FilterHandlerInterface defines the contract for the active container filter
type FilterHandlerInterface interface {
	GetActive(c fiber.Ctx) error
	SetActive(c fiber.Ctx) error
	Clear(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
}

// FilterHandler exposes the active container filter
type FilterHandler struct {
	baseHandler
	engine businessflow.FilterEngine
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(engine businessflow.FilterEngine) *FilterHandler {
	return &FilterHandler{
		baseHandler: newBaseHandler(),
		engine:      engine,
	}
}

// GetActive Filter
// @Summary Active container
// @Tags Filter
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ActiveFilterResponse} "Filter state"
// @Security BearerAuth
// @Router /api/v1/filter/active [get]
func (h *FilterHandler) GetActive(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/filter/active")
	defer cancel()

	container, err := h.engine.Active(ctx)
	if err != nil {
		if businessflow.IsNoActiveContainer(err) {
			return h.SuccessResponse(c, fiber.StatusOK, "No active container", dto.ActiveFilterResponse{})
		}
		return h.handleFlowError(c, err, "Failed to read filter")
	}
	resp := dto.ToContainerResponse(container)
	return h.SuccessResponse(c, fiber.StatusOK, "Active container retrieved successfully", dto.ActiveFilterResponse{Active: true, Container: &resp})
}

// SetActive Filter
// @Summary Select the active container
// @Description Entity listings are narrowed to the entities linked to this container until the filter is cleared.
// @Tags Filter
// @Accept json
// @Produce json
// @Param request body dto.SetActiveFilterRequest true "Container"
// @Success 200 {object} dto.APIResponse{data=dto.ActiveFilterResponse} "Filter state"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/filter/active [put]
func (h *FilterHandler) SetActive(c fiber.Ctx) error {
	var req dto.SetActiveFilterRequest
	if ok, err := h.bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/filter/active")
	defer cancel()

	container, err := h.engine.SetActive(ctx, req.ContainerID)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to set filter")
	}
	resp := dto.ToContainerResponse(container)
	return h.SuccessResponse(c, fiber.StatusOK, "Active container set successfully", dto.ActiveFilterResponse{Active: true, Container: &resp})
}

// Clear Filter
// @Summary Clear the active container
// @Tags Filter
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ActiveFilterResponse} "Filter state"
// @Security BearerAuth
// @Router /api/v1/filter/active [delete]
func (h *FilterHandler) Clear(c fiber.Ctx) error {
	h.engine.Clear()
	return h.SuccessResponse(c, fiber.StatusOK, "Filter cleared successfully", dto.ActiveFilterResponse{})
}

// Stats Filter
// @Summary Counts of linked entities
// @Tags Filter
// @Produce json
// @Success 200 {object} dto.APIResponse{data=businessflow.FilterStats} "Stats"
// @Security BearerAuth
// @Router /api/v1/filter/stats [get]
func (h *FilterHandler) Stats(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/filter/stats")
	defer cancel()

	stats, err := h.engine.Stats(ctx)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to compute filter stats")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Filter stats retrieved successfully", stats)
}
