package utils

import (
	"time"
)

// Request-scoped context keys
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
)

// Container and tag defaults
const (
	// DefaultColor is used for containers and batch-created tags
	DefaultColor = "#9b59b6"

	// DefaultAreaIcon is the icon of a newly created area
	DefaultAreaIcon = "🏢"

	// DefaultProjectIcon is the icon of a newly created project
	DefaultProjectIcon = "📁"

	// DefaultEntityIcon is used when an entity type has no dedicated icon
	DefaultEntityIcon = "📄"

	// DuplicateNameSuffix is appended to the name of a duplicated container
	DuplicateNameSuffix = " (Copy)"

	// PopularTagsLimit is the default size of the popular tags list
	PopularTagsLimit = 10

	// ExportDocumentVersion identifies the export document layout
	ExportDocumentVersion = "1.0"
)

// Limits enforced by validation
const (
	TagNameMaxLength       = 50
	ContainerNameMaxLength = 100
)

// Request handling
const (
	// DefaultRequestTimeout bounds every HTTP request context
	DefaultRequestTimeout = 30 * time.Second

	// ExportRequestTimeout bounds export and import requests
	ExportRequestTimeout = 2 * time.Minute
)

// Cache keys
const (
	TagCacheKeyPrefix       = "tags"
	ContainerCacheKeyPrefix = "containers"
	ChangeEventsChannel     = "changes"
)
