package businessflow

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/amirphl/widget-sidebar/utils"
	"github.com/go-playground/validator/v10"
)

var (
	tagNamePattern  = regexp.MustCompile(`^[A-Za-z0-9\s_-]+$`)
	hexColorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})$`)
)

// NewValidator returns a validator with the tag_name and hex_color rules
// registered, shared by the flows and the HTTP request DTOs
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tag_name", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return strings.TrimSpace(value) != "" && tagNamePattern.MatchString(value)
	})
	_ = v.RegisterValidation("hex_color", func(fl validator.FieldLevel) bool {
		return hexColorPattern.MatchString(fl.Field().String())
	})
	return v
}

var validate = NewValidator()

// ValidateTagName checks a tag name: non-blank, at most 50 characters, made of
// letters, digits, whitespace, '_' and '-'
func ValidateTagName(name string) error {
	if strings.TrimSpace(name) == "" {
		return validationError("TAG_NAME_REQUIRED", "tag name cannot be empty")
	}
	if utf8.RuneCountInString(name) > utils.TagNameMaxLength {
		return validationError("TAG_NAME_TOO_LONG", fmt.Sprintf("tag name cannot exceed %d characters", utils.TagNameMaxLength))
	}
	if err := validate.Var(name, "tag_name"); err != nil {
		return validationError("TAG_NAME_INVALID", "tag name may only contain letters, digits, spaces, hyphens and underscores")
	}
	return nil
}

// ValidateColor checks a #RGB or #RRGGBB hex color
func ValidateColor(color string) error {
	if err := validate.Var(color, "required,hex_color"); err != nil {
		return validationError("INVALID_COLOR", fmt.Sprintf("invalid color %q, expected #RGB or #RRGGBB", color))
	}
	return nil
}

// validateContainerName checks the shape of a container name and returns it trimmed
func validateContainerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("CONTAINER_NAME_REQUIRED", "name cannot be empty")
	}
	if utf8.RuneCountInString(name) > utils.ContainerNameMaxLength {
		return "", validationError("CONTAINER_NAME_TOO_LONG", fmt.Sprintf("name cannot exceed %d characters", utils.ContainerNameMaxLength))
	}
	return name, nil
}
