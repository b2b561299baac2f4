package dto

import (
	"github.com/amirphl/widget-sidebar/models"
)

// CreateContainerRequest represents the payload to create an area or project
type CreateContainerRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=area project"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Color       string `json:"color" validate:"omitempty,hex_color"`
	Icon        string `json:"icon" validate:"omitempty,max=16"`
}

// UpdateContainerRequest carries the fields to change; omitted fields are kept
type UpdateContainerRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hex_color"`
	Icon        *string `json:"icon,omitempty" validate:"omitempty,max=16"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// ToModel converts the request to a partial container update
func (r UpdateContainerRequest) ToModel() models.ContainerUpdate {
	return models.ContainerUpdate{
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		Icon:        r.Icon,
		IsActive:    r.IsActive,
	}
}

type DuplicateContainerRequest struct {
	Name string `json:"name" validate:"omitempty,max=100"`
}

type ContainerResponse struct {
	ID          uint   `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ToContainerResponse converts a container model to its API form
func ToContainerResponse(c *models.Container) ContainerResponse {
	return ContainerResponse{
		ID:          c.ID,
		Kind:        c.Kind.String(),
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
		Icon:        c.Icon,
		IsActive:    c.IsActive == nil || *c.IsActive,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func ToContainerResponses(containers []*models.Container) []ContainerResponse {
	out := make([]ContainerResponse, 0, len(containers))
	for _, c := range containers {
		out = append(out, ToContainerResponse(c))
	}
	return out
}

// EntryRefRequest points at an existing relation or component
type EntryRefRequest struct {
	Kind string `json:"kind" validate:"required,oneof=relation component"`
	ID   uint   `json:"id" validate:"required,gt=0"`
}

func (r *EntryRefRequest) ToModel() *models.EntryRef {
	if r == nil {
		return nil
	}
	return &models.EntryRef{Kind: models.EntryKind(r.Kind), ID: r.ID}
}

// AddRelationRequest links an entity to a container. Without an anchor the
// relation is appended.
type AddRelationRequest struct {
	EntityType  string           `json:"entity_type" validate:"required,oneof=tag item list process table category"`
	EntityID    uint             `json:"entity_id" validate:"required,gt=0"`
	Description string           `json:"description" validate:"omitempty,max=2000"`
	InsertBelow *EntryRefRequest `json:"insert_below,omitempty" validate:"omitempty"`
}

type AddComponentRequest struct {
	ComponentType string           `json:"component_type" validate:"required,oneof=divider comment alert note"`
	Content       string           `json:"content" validate:"omitempty,max=5000"`
	InsertBelow   *EntryRefRequest `json:"insert_below,omitempty" validate:"omitempty"`
}

// UpdateRelationRequest replaces the container-scoped note of a relation
type UpdateRelationRequest struct {
	Description string `json:"description" validate:"max=2000"`
}

// UpdateComponentRequest replaces the text of a component
type UpdateComponentRequest struct {
	Content string `json:"content" validate:"max=5000"`
}

type RelationResponse struct {
	ID          uint   `json:"id"`
	ContainerID uint   `json:"container_id"`
	EntityType  string `json:"entity_type"`
	EntityID    uint   `json:"entity_id"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index"`
	CreatedAt   string `json:"created_at"`
}

func ToRelationResponse(r *models.Relation) RelationResponse {
	return RelationResponse{
		ID:          r.ID,
		ContainerID: r.ContainerID,
		EntityType:  r.EntityType,
		EntityID:    r.EntityID,
		Description: r.Description,
		OrderIndex:  r.OrderIndex,
		CreatedAt:   formatTime(r.CreatedAt),
	}
}

type ComponentResponse struct {
	ID            uint   `json:"id"`
	ContainerID   uint   `json:"container_id"`
	ComponentType string `json:"component_type"`
	Content       string `json:"content"`
	Icon          string `json:"icon"`
	DisplayText   string `json:"display_text"`
	OrderIndex    int    `json:"order_index"`
	CreatedAt     string `json:"created_at"`
}

func ToComponentResponse(c *models.Component) ComponentResponse {
	return ComponentResponse{
		ID:            c.ID,
		ContainerID:   c.ContainerID,
		ComponentType: c.ComponentType,
		Content:       c.Content,
		Icon:          c.Icon(),
		DisplayText:   c.DisplayText(),
		OrderIndex:    c.OrderIndex,
		CreatedAt:     formatTime(c.CreatedAt),
	}
}

// ContentEntryResponse is one position of a container's ordered content
type ContentEntryResponse struct {
	Kind          string `json:"kind"`
	ID            uint   `json:"id"`
	OrderIndex    int    `json:"order_index"`
	EntityType    string `json:"entity_type,omitempty"`
	EntityID      uint   `json:"entity_id,omitempty"`
	Description   string `json:"description,omitempty"`
	ComponentType string `json:"component_type,omitempty"`
	Content       string `json:"content,omitempty"`
	TagIDs        []uint `json:"tag_ids"`
	CreatedAt     string `json:"created_at"`
}

func ToContentEntryResponses(entries []models.ContentEntry) []ContentEntryResponse {
	out := make([]ContentEntryResponse, 0, len(entries))
	for _, e := range entries {
		tagIDs := e.TagIDs
		if tagIDs == nil {
			tagIDs = []uint{}
		}
		out = append(out, ContentEntryResponse{
			Kind:          string(e.Kind),
			ID:            e.ID,
			OrderIndex:    e.OrderIndex,
			EntityType:    e.EntityType,
			EntityID:      e.EntityID,
			Description:   e.Description,
			ComponentType: e.ComponentType,
			Content:       e.Content,
			TagIDs:        tagIDs,
			CreatedAt:     formatTime(e.CreatedAt),
		})
	}
	return out
}

type ContainerContentResponse struct {
	ContainerID uint                   `json:"container_id"`
	TagIDs      []uint                 `json:"tag_ids,omitempty"`
	MatchAll    bool                   `json:"match_all"`
	Entries     []ContentEntryResponse `json:"entries"`
}

type GroupedEntitiesResponse struct {
	ContainerID uint                          `json:"container_id"`
	Groups      map[string][]RelationResponse `json:"groups"`
}

func ToGroupedEntitiesResponse(containerID uint, groups map[string][]*models.Relation) GroupedEntitiesResponse {
	out := GroupedEntitiesResponse{ContainerID: containerID, Groups: make(map[string][]RelationResponse, len(groups))}
	for key, rels := range groups {
		items := make([]RelationResponse, 0, len(rels))
		for _, r := range rels {
			items = append(items, ToRelationResponse(r))
		}
		out.Groups[key] = items
	}
	return out
}

// MoveEntryRequest moves a relation or component one position
type MoveEntryRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

type OrderCheckResponse struct {
	ContainerID uint  `json:"container_id"`
	Consistent  bool  `json:"consistent"`
	Duplicates  []int `json:"duplicates,omitempty"`
}

type ImportContainerResponse struct {
	Mode      string            `json:"mode"`
	Container ContainerResponse `json:"container"`
}
