package dto

import (
	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/models"
)

// CreateTagRequest represents the payload to create an element tag
type CreateTagRequest struct {
	Name        string `json:"name" validate:"required,max=50,tag_name"`
	Color       string `json:"color" validate:"required,hex_color"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type UpdateTagRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=50,tag_name"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hex_color"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

func (r UpdateTagRequest) ToModel() models.ElementTagUpdate {
	return models.ElementTagUpdate{
		Name:        r.Name,
		Color:       r.Color,
		Description: r.Description,
	}
}

// BatchTagItem is one tag of a batch create; a blank color means the default
type BatchTagItem struct {
	Name        string `json:"name" validate:"required,max=50"`
	Color       string `json:"color" validate:"omitempty,hex_color"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// BatchCreateTagsRequest creates several tags. Invalid or taken names are
// skipped.
type BatchCreateTagsRequest struct {
	Tags []BatchTagItem `json:"tags" validate:"required,min=1,dive"`
}

func (r BatchCreateTagsRequest) ToSpecs() []businessflow.TagSpec {
	out := make([]businessflow.TagSpec, 0, len(r.Tags))
	for _, t := range r.Tags {
		out = append(out, businessflow.TagSpec{Name: t.Name, Color: t.Color, Description: t.Description})
	}
	return out
}

type BatchDeleteTagsRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,gt=0"`
}

type BatchDeleteTagsResponse struct {
	Deleted int `json:"deleted"`
}

// AssignTagsRequest replaces the tag set of a relation or component; an
// empty list clears it
type AssignTagsRequest struct {
	TagIDs []uint `json:"tag_ids" validate:"dive,gt=0"`
}

type TagResponse struct {
	ID          uint   `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func ToTagResponse(t *models.ElementTag) TagResponse {
	return TagResponse{
		ID:          t.ID,
		Kind:        t.Kind.String(),
		Name:        t.Name,
		Color:       t.Color,
		Description: t.Description,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func ToTagResponses(tags []*models.ElementTag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, ToTagResponse(t))
	}
	return out
}

type TagDetailResponse struct {
	TagResponse
	UsageCount   int64  `json:"usage_count"`
	RelationIDs  []uint `json:"relation_ids"`
	ComponentIDs []uint `json:"component_ids"`
}

type PopularTagResponse struct {
	Tag        TagResponse `json:"tag"`
	UsageCount int64       `json:"usage_count"`
}

// CreateCategoryTagRequest names a category tag; an existing tag with the
// same name ignoring case is returned instead of a new one
type CreateCategoryTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type CategoryTagResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func ToCategoryTagResponses(tags []*models.CategoryTag) []CategoryTagResponse {
	out := make([]CategoryTagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, CategoryTagResponse{ID: t.ID, Name: t.Name, CreatedAt: formatTime(t.CreatedAt)})
	}
	return out
}

type DeleteUnusedCategoryTagsResponse struct {
	Removed int64 `json:"removed"`
}
