package dto

// SetActiveFilterRequest selects the container that narrows entity listings
type SetActiveFilterRequest struct {
	ContainerID uint `json:"container_id" validate:"required,gt=0"`
}

type ActiveFilterResponse struct {
	Active    bool               `json:"active"`
	Container *ContainerResponse `json:"container,omitempty"`
}
