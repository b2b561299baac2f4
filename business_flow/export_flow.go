package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
)

const (
	ImportModeNew   = "new"
	ImportModeMerge = "merge"
)

const defaultSheetName = "Sheet"

// ExportDocument is the portable form of one container
type ExportDocument struct {
	Version    string              `json:"version" yaml:"version"`
	ExportDate time.Time           `json:"export_date" yaml:"export_date"`
	Container  ExportedContainer   `json:"container" yaml:"container"`
	Relations  []ExportedRelation  `json:"relations" yaml:"relations"`
	Components []ExportedComponent `json:"components" yaml:"components"`
}

type ExportedContainer struct {
	Kind        models.ContainerKind `json:"kind" yaml:"kind"`
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description" yaml:"description"`
	Color       string               `json:"color" yaml:"color"`
	Icon        string               `json:"icon" yaml:"icon"`
}

type ExportedRelation struct {
	EntityType  string   `json:"entity_type" yaml:"entity_type"`
	EntityID    uint     `json:"entity_id" yaml:"entity_id"`
	Description string   `json:"description" yaml:"description"`
	OrderIndex  int      `json:"order_index" yaml:"order_index"`
	Tags        []string `json:"tags" yaml:"tags"`
}

type ExportedComponent struct {
	ComponentType string   `json:"component_type" yaml:"component_type"`
	Content       string   `json:"content" yaml:"content"`
	OrderIndex    int      `json:"order_index" yaml:"order_index"`
	Tags          []string `json:"tags" yaml:"tags"`
}

// ExportSummary describes what an export of a container would contain
type ExportSummary struct {
	ContainerName    string         `json:"container_name"`
	Kind             string         `json:"kind"`
	TotalRelations   int            `json:"total_relations"`
	RelationsByType  map[string]int `json:"relations_by_type"`
	TotalComponents  int            `json:"total_components"`
	ComponentsByType map[string]int `json:"components_by_type"`
}

// ExportFlow moves containers in and out of portable documents
type ExportFlow interface {
	// Export renders a container and returns the suggested file name and content
	Export(ctx context.Context, containerID uint, format string) (string, []byte, error)
	BuildDocument(ctx context.Context, containerID uint) (*ExportDocument, error)
	ExportSummary(ctx context.Context, containerID uint) (*ExportSummary, error)
	ParseDocument(data []byte, format string) (*ExportDocument, error)
	// Import creates a container from doc (mode new) or appends to the
	// container of the same name (mode merge)
	Import(ctx context.Context, doc *ExportDocument, mode string) (*models.Container, error)
}

// ExportFlowImpl implements ExportFlow
type ExportFlowImpl struct {
	containers ContainerManager
	assembler  ContentAssembler
	resolver   MetadataResolver
	tags       map[models.ContainerKind]TagManager
	log        *logger.Logger
}

func NewExportFlow(
	containers ContainerManager,
	assembler ContentAssembler,
	resolver MetadataResolver,
	tagManagers []TagManager,
	log *logger.Logger,
) ExportFlow {
	tags := make(map[models.ContainerKind]TagManager, len(tagManagers))
	for _, tm := range tagManagers {
		tags[tm.Kind()] = tm
	}
	return &ExportFlowImpl{
		containers: containers,
		assembler:  assembler,
		resolver:   resolver,
		tags:       tags,
		log:        log.With("component", "ExportFlow"),
	}
}

// NormalizeFormat lower-cases a format name and maps yml to yaml; an empty
// name selects fallback
func NormalizeFormat(format, fallback string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = strings.ToLower(fallback)
	}
	if format == "yml" {
		return FormatYAML
	}
	return format
}

func (f *ExportFlowImpl) Export(ctx context.Context, containerID uint, format string) (string, []byte, error) {
	format = NormalizeFormat(format, FormatJSON)
	if format != FormatJSON && format != FormatYAML && format != FormatXLSX {
		return "", nil, NewBusinessErrorf("UNSUPPORTED_FORMAT", "unsupported export format %q", ErrUnsupportedFormat, format)
	}

	c, err := f.containers.Get(ctx, containerID)
	if err != nil {
		return "", nil, err
	}
	filename := fmt.Sprintf("%s_%s.%s", c.Kind, utils.SafeFileName(c.Name), format)

	if format == FormatXLSX {
		data, err := f.exportSheet(ctx, c)
		if err != nil {
			return "", nil, err
		}
		return filename, data, nil
	}

	doc, err := f.BuildDocument(ctx, containerID)
	if err != nil {
		return "", nil, err
	}
	var data []byte
	if format == FormatYAML {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_ENCODE_FAILED", "failed to encode export document", err)
	}
	f.log.Info("container exported", "container_id", containerID, "format", format, "bytes", len(data))
	return filename, data, nil
}

func (f *ExportFlowImpl) BuildDocument(ctx context.Context, containerID uint) (*ExportDocument, error) {
	c, err := f.containers.Get(ctx, containerID)
	if err != nil {
		return nil, err
	}
	entries, err := f.assembler.Assemble(ctx, containerID)
	if err != nil {
		return nil, err
	}
	names, err := f.tagNames(ctx, c.Kind)
	if err != nil {
		return nil, err
	}

	doc := &ExportDocument{
		Version:    utils.ExportDocumentVersion,
		ExportDate: utils.UTCNow(),
		Container: ExportedContainer{
			Kind:        c.Kind,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
			Icon:        c.Icon,
		},
		Relations:  []ExportedRelation{},
		Components: []ExportedComponent{},
	}
	for _, e := range entries {
		tags := namesOf(e.TagIDs, names)
		if e.Kind == models.EntryKindComponent {
			doc.Components = append(doc.Components, ExportedComponent{
				ComponentType: e.ComponentType,
				Content:       e.Content,
				OrderIndex:    e.OrderIndex,
				Tags:          tags,
			})
			continue
		}
		doc.Relations = append(doc.Relations, ExportedRelation{
			EntityType:  e.EntityType,
			EntityID:    e.EntityID,
			Description: e.Description,
			OrderIndex:  e.OrderIndex,
			Tags:        tags,
		})
	}
	return doc, nil
}

func (f *ExportFlowImpl) ExportSummary(ctx context.Context, containerID uint) (*ExportSummary, error) {
	c, err := f.containers.Get(ctx, containerID)
	if err != nil {
		return nil, err
	}
	entries, err := f.assembler.Assemble(ctx, containerID)
	if err != nil {
		return nil, err
	}

	summary := &ExportSummary{
		ContainerName:    c.Name,
		Kind:             string(c.Kind),
		RelationsByType:  make(map[string]int),
		ComponentsByType: make(map[string]int),
	}
	for _, e := range entries {
		if e.Kind == models.EntryKindComponent {
			summary.TotalComponents++
			summary.ComponentsByType[e.ComponentType]++
		} else {
			summary.TotalRelations++
			summary.RelationsByType[e.EntityType]++
		}
	}
	return summary, nil
}

func (f *ExportFlowImpl) ParseDocument(data []byte, format string) (*ExportDocument, error) {
	format = NormalizeFormat(format, FormatJSON)
	var doc ExportDocument
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, NewBusinessErrorf("UNSUPPORTED_FORMAT", "unsupported import format %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, NewBusinessError("INVALID_DOCUMENT", "failed to decode import document", fmt.Errorf("%w: %w", ErrInvalidDocument, err))
	}
	return &doc, nil
}

func (f *ExportFlowImpl) Import(ctx context.Context, doc *ExportDocument, mode string) (*models.Container, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	kind := doc.Container.Kind
	if kind == "" {
		kind = models.ContainerKindArea
	}

	var (
		target  *models.Container
		created bool
		err     error
	)
	switch mode {
	case ImportModeNew, "":
		target, err = f.containers.Create(ctx, kind, doc.Container.Name, doc.Container.Description, doc.Container.Color, doc.Container.Icon)
		if err != nil {
			return nil, err
		}
		created = true
	case ImportModeMerge:
		target, created, err = f.mergeTarget(ctx, kind, doc.Container)
		if err != nil {
			return nil, err
		}
	default:
		return nil, validationError("INVALID_IMPORT_MODE", fmt.Sprintf("unknown import mode %q", mode))
	}

	if err := f.importContent(ctx, target, doc); err != nil {
		if created {
			if derr := f.containers.Delete(ctx, target.ID); derr != nil {
				f.log.Error("failed to remove partially imported container", "container_id", target.ID, "error", derr)
			}
		}
		return nil, err
	}
	f.log.Info("container imported", "container_id", target.ID, "mode", mode,
		"relations", len(doc.Relations), "components", len(doc.Components))
	return target, nil
}

func (f *ExportFlowImpl) mergeTarget(ctx context.Context, kind models.ContainerKind, src ExportedContainer) (*models.Container, bool, error) {
	existing, err := f.containers.List(ctx, kind, false)
	if err != nil {
		return nil, false, err
	}
	name := strings.TrimSpace(src.Name)
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return c, false, nil
		}
	}
	c, err := f.containers.Create(ctx, kind, src.Name, src.Description, src.Color, src.Icon)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

type importItem struct {
	order     int
	relation  *ExportedRelation
	component *ExportedComponent
}

// importContent appends the document's content to target in the document's
// relative order; tags are matched by name and created when missing
func (f *ExportFlowImpl) importContent(ctx context.Context, target *models.Container, doc *ExportDocument) error {
	items := make([]importItem, 0, len(doc.Relations)+len(doc.Components))
	for i := range doc.Relations {
		items = append(items, importItem{order: doc.Relations[i].OrderIndex, relation: &doc.Relations[i]})
	}
	for i := range doc.Components {
		items = append(items, importItem{order: doc.Components[i].OrderIndex, component: &doc.Components[i]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].order != items[j].order {
			return items[i].order < items[j].order
		}
		return items[i].relation != nil && items[j].relation == nil
	})

	tm := f.tags[target.Kind]
	for _, it := range items {
		if it.relation != nil {
			rel, err := f.containers.AddEntity(ctx, target.ID, it.relation.EntityType, it.relation.EntityID, it.relation.Description, nil)
			if err != nil {
				return err
			}
			ids, err := f.ensureTags(ctx, tm, it.relation.Tags)
			if err != nil {
				return err
			}
			if len(ids) > 0 {
				if err := tm.AssignToRelation(ctx, rel.ID, ids); err != nil {
					return err
				}
			}
			continue
		}

		comp, err := f.containers.AddComponent(ctx, target.ID, it.component.ComponentType, it.component.Content, nil)
		if err != nil {
			return err
		}
		ids, err := f.ensureTags(ctx, tm, it.component.Tags)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := tm.AssignToComponent(ctx, comp.ID, ids); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *ExportFlowImpl) ensureTags(ctx context.Context, tm TagManager, names []string) ([]uint, error) {
	if len(names) == 0 || tm == nil {
		return nil, nil
	}
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		tag, err := tm.GetByName(ctx, name)
		if err != nil {
			if !IsTagNotFound(err) {
				return nil, err
			}
			tag, err = tm.Create(ctx, name, utils.DefaultColor, "")
			if err != nil {
				if IsValidation(err) {
					f.log.Warn("skipping invalid tag on import", "name", name, "error", err)
					continue
				}
				return nil, err
			}
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

// exportSheet writes the assembled content as one sheet named after the container
func (f *ExportFlowImpl) exportSheet(ctx context.Context, c *models.Container) ([]byte, error) {
	entries, err := f.assembler.Assemble(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	names, err := f.tagNames(ctx, c.Kind)
	if err != nil {
		return nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := sanitizeSheetName(c.Name)
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "failed to name sheet", err)
	}

	header := []string{"order", "kind", "type", "entity_id", "name", "description", "content", "tags"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "failed to write header row", err)
	}

	for i, e := range entries {
		var record []string
		tags := strings.Join(namesOf(e.TagIDs, names), ", ")
		if e.Kind == models.EntryKindComponent {
			record = []string{strconv.Itoa(e.OrderIndex), string(e.Kind), e.ComponentType, "", "", "", e.Content, tags}
		} else {
			meta := f.resolver.Resolve(ctx, e.EntityType, e.EntityID)
			record = []string{
				strconv.Itoa(e.OrderIndex),
				string(e.Kind),
				e.EntityType,
				strconv.FormatUint(uint64(e.EntityID), 10),
				meta.Name,
				e.Description,
				meta.Content,
				tags,
			}
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "failed to address row", err)
		}
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, NewBusinessErrorf("EXCEL_WRITE_ERROR", "failed to write row %d", err, i+2)
		}
	}

	var buf bytes.Buffer
	if err := xl.Write(&buf); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "failed to write Excel file", err)
	}
	return buf.Bytes(), nil
}

func (f *ExportFlowImpl) tagNames(ctx context.Context, kind models.ContainerKind) (map[uint]string, error) {
	names := make(map[uint]string)
	tm, ok := f.tags[kind]
	if !ok {
		return names, nil
	}
	all, err := tm.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		names[t.ID] = t.Name
	}
	return names, nil
}

func namesOf(ids []uint, names map[uint]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := names[id]; ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func validateDocument(doc *ExportDocument) error {
	if doc == nil {
		return NewBusinessError("INVALID_DOCUMENT", "import document is empty", ErrInvalidDocument)
	}
	if strings.TrimSpace(doc.Container.Name) == "" {
		return NewBusinessError("INVALID_DOCUMENT", "import document has no container name", ErrInvalidDocument)
	}
	if doc.Container.Kind != "" && !doc.Container.Kind.Valid() {
		return NewBusinessErrorf("INVALID_DOCUMENT", "unknown container kind %q", ErrInvalidDocument, doc.Container.Kind)
	}
	for _, r := range doc.Relations {
		if !models.IsValidEntityType(r.EntityType) {
			return NewBusinessErrorf("INVALID_DOCUMENT", "unknown entity type %q", ErrInvalidDocument, r.EntityType)
		}
	}
	for _, c := range doc.Components {
		if !models.IsValidComponentType(c.ComponentType) {
			return NewBusinessErrorf("INVALID_DOCUMENT", "unknown component type %q", ErrInvalidDocument, c.ComponentType)
		}
	}
	return nil
}

// sanitizeSheetName replaces characters Excel rejects in sheet names and
// keeps the name within 31 characters. A sheet name may not start or end
// with a single quote.
func sanitizeSheetName(name string) string {
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := trimSheetName(replacer.Replace(name))
	if r := []rune(safe); len(r) > 31 {
		safe = trimSheetName(string(r[:31]))
	}
	if safe == "" {
		return defaultSheetName
	}
	return safe
}

func trimSheetName(name string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(name), "'"))
}
