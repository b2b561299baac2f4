package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/amirphl/widget-sidebar/app/dto"
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/gofiber/fiber/v3"
)

var exportContentTypes = map[string]string{
	businessflow.FormatJSON: fiber.MIMEApplicationJSONCharsetUTF8,
	businessflow.FormatYAML: "application/yaml",
	businessflow.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportHandlerInterface defines the contract for export and import handlers
type ExportHandlerInterface interface {
	Export(c fiber.Ctx) error
	Summary(c fiber.Ctx) error
	Import(c fiber.Ctx) error
}

// ExportHandler streams container documents in and out
type ExportHandler struct {
	baseHandler
	flow          businessflow.ExportFlow
	defaultFormat string
}

// NewExportHandler creates a new export handler; defaultFormat applies when a
// request names no format
func NewExportHandler(flow businessflow.ExportFlow, defaultFormat string) *ExportHandler {
	return &ExportHandler{
		baseHandler:   newBaseHandler(),
		flow:          flow,
		defaultFormat: businessflow.NormalizeFormat(defaultFormat, businessflow.FormatJSON),
	}
}

// Export Container
// @Summary Export a container
// @Description Downloads the container as a json or yaml document, or as an xlsx sheet of its ordered content.
// @Tags Export
// @Produce json
// @Produce application/yaml
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Container ID"
// @Param format query string false "json, yaml or xlsx"
// @Success 200 {file} file "Export document"
// @Failure 400 {object} dto.APIResponse "Unsupported format"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/export [get]
func (h *ExportHandler) Export(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}
	format := businessflow.NormalizeFormat(c.Query("format"), h.defaultFormat)

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/containers/:id/export", utils.ExportRequestTimeout)
	defer cancel()

	name, data, err := h.flow.Export(ctx, id, format)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to export container")
	}
	c.Set(fiber.HeaderContentType, exportContentTypes[format])
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Status(fiber.StatusOK).Send(data)
}

// Summary Export
// @Summary Preview an export
// @Tags Export
// @Produce json
// @Param id path int true "Container ID"
// @Success 200 {object} dto.APIResponse{data=businessflow.ExportSummary} "Summary"
// @Failure 404 {object} dto.APIResponse "Container not found"
// @Security BearerAuth
// @Router /api/v1/containers/{id}/export/summary [get]
func (h *ExportHandler) Summary(c fiber.Ctx) error {
	id, ok, err := h.paramID(c, "id")
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/containers/:id/export/summary")
	defer cancel()

	summary, err := h.flow.ExportSummary(ctx, id)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to summarize export")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Export summary retrieved successfully", summary)
}

// Import Container
// @Summary Import a container document
// @Description The body is a json or yaml export document. Mode new creates a container and fails on a taken name; merge appends to the container of the same name.
// @Tags Export
// @Accept json
// @Accept application/yaml
// @Produce json
// @Param format query string false "json or yaml; inferred from filename or Content-Type when omitted"
// @Param filename query string false "Original file name"
// @Param mode query string false "new (default) or merge"
// @Success 201 {object} dto.APIResponse{data=dto.ImportContainerResponse} "Imported container"
// @Failure 400 {object} dto.APIResponse "Invalid document"
// @Failure 409 {object} dto.APIResponse "Name already exists"
// @Security BearerAuth
// @Router /api/v1/containers/import [post]
func (h *ExportHandler) Import(c fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Request body is empty", "EMPTY_DOCUMENT", nil)
	}
	mode := strings.ToLower(strings.TrimSpace(c.Query("mode")))
	if mode == "" {
		mode = businessflow.ImportModeNew
	}

	doc, err := h.flow.ParseDocument(body, h.importFormat(c))
	if err != nil {
		return h.handleFlowError(c, err, "Failed to parse document")
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/containers/import", utils.ExportRequestTimeout)
	defer cancel()

	container, err := h.flow.Import(ctx, doc, mode)
	if err != nil {
		return h.handleFlowError(c, err, "Failed to import container")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Container imported successfully", dto.ImportContainerResponse{
		Mode:      mode,
		Container: dto.ToContainerResponse(container),
	})
}

// importFormat picks the document format from the query, then the file
// extension, then the content type
func (h *ExportHandler) importFormat(c fiber.Ctx) string {
	if f := c.Query("format"); f != "" {
		return businessflow.NormalizeFormat(f, "")
	}
	if ext := strings.TrimPrefix(filepath.Ext(c.Query("filename")), "."); ext != "" {
		return businessflow.NormalizeFormat(ext, "")
	}
	if strings.Contains(c.Get(fiber.HeaderContentType), "yaml") {
		return businessflow.FormatYAML
	}
	return businessflow.FormatJSON
}
