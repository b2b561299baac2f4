// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/widget-sidebar/app/dto"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: businessflow.NewValidator()}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// bindAndValidate decodes the JSON body into req and runs the struct rules.
// On failure the error response has already been written and ok is false.
func (h *baseHandler) bindAndValidate(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		var validationErrors []string
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, getValidationErrorMessage(fe))
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return true, nil
}

// paramID parses a positive numeric path parameter, writing a 400 response
// when it is malformed
func (h *baseHandler) paramID(c fiber.Ctx, name string) (uint, bool, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false, h.ErrorResponse(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid %s", name), "INVALID_ID", raw)
	}
	return uint(id), true, nil
}

// handleFlowError maps a business flow error to a status code and envelope.
// Store failures never expose their cause.
func (h *baseHandler) handleFlowError(c fiber.Ctx, err error, fallback string) error {
	code := "INTERNAL_ERROR"
	var details any
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code = be.Code
		details = be.Message
	}

	var inconsistent *businessflow.InconsistentOrderError
	switch {
	case errors.As(err, &inconsistent):
		return h.ErrorResponse(c, fiber.StatusConflict, "Container order is inconsistent", "INCONSISTENT_ORDER", fiber.Map{
			"container_id": inconsistent.ContainerID,
			"duplicates":   inconsistent.Duplicates,
		})
	case businessflow.IsValidation(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", code, details)
	case businessflow.IsDuplicateName(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Name already exists", code, details)
	case businessflow.IsNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Resource not found", code, details)
	case businessflow.IsNoActiveContainer(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "No active container", code, details)
	case businessflow.IsUnsupportedFormat(err), businessflow.IsInvalidDocument(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document", code, details)
	case errors.Is(err, context.DeadlineExceeded):
		return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Request timed out", "REQUEST_TIMEOUT", nil)
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallback, code, nil)
}

func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, utils.DefaultRequestTimeout)
}

func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	return ctx, cancel
}

// queryBool reads a boolean query parameter, falling back to def when absent
// or malformed
func queryBool(c fiber.Ctx, name string, def bool) bool {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must have at least " + err.Param() + " entries"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "tag_name":
		return err.Field() + " may only contain letters, digits, spaces, hyphens and underscores"
	case "hex_color":
		return err.Field() + " must be a #RGB or #RRGGBB color"
	default:
		return err.Field() + " is invalid"
	}
}
