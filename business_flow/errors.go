// Package businessflow contains the core business logic: content assembly, tag filtering, reordering and the tag and container managers
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/widget-sidebar/models"
)

// Business flow error constants
var (
	// Taxonomy
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateName     = errors.New("name already exists")
	ErrStore             = errors.New("store operation failed")
	ErrInconsistentOrder = errors.New("inconsistent order")

	// Lookups
	ErrContainerNotFound   = errors.New("container not found")
	ErrRelationNotFound    = errors.New("relation not found")
	ErrComponentNotFound   = errors.New("component not found")
	ErrTagNotFound         = errors.New("tag not found")
	ErrCategoryTagNotFound = errors.New("category tag not found")
	ErrEntryNotFound       = errors.New("entry not found in container")

	// Filter engine
	ErrNoActiveContainer = errors.New("no active container")

	// Export / import
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidDocument   = errors.New("invalid import document")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// validationError reports invalid input
func validationError(code, message string) *BusinessError {
	return NewBusinessError(code, message, ErrValidation)
}

// storeError wraps a persistence failure so it matches both ErrStore and the cause
func storeError(code, message string, cause error) *BusinessError {
	return NewBusinessError(code, message, fmt.Errorf("%w: %w", ErrStore, cause))
}

// InconsistentOrderError reports order_index values shared by several entries
// of one container after a reorder aborted midway
type InconsistentOrderError struct {
	ContainerID uint
	Duplicates  []int
	Cause       error
}

func (e *InconsistentOrderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("container %d has duplicate order indexes %v: %v", e.ContainerID, e.Duplicates, e.Cause)
	}
	return fmt.Sprintf("container %d has duplicate order indexes %v", e.ContainerID, e.Duplicates)
}

func (e *InconsistentOrderError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInconsistentOrder, e.Cause}
	}
	return []error{ErrInconsistentOrder}
}

func notFoundFor(kind models.EntryKind) error {
	if kind == models.EntryKindComponent {
		return ErrComponentNotFound
	}
	return ErrRelationNotFound
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}

func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}

func IsInconsistentOrder(err error) bool {
	return errors.Is(err, ErrInconsistentOrder)
}

func IsContainerNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound)
}

func IsRelationNotFound(err error) bool {
	return errors.Is(err, ErrRelationNotFound)
}

func IsComponentNotFound(err error) bool {
	return errors.Is(err, ErrComponentNotFound)
}

func IsTagNotFound(err error) bool {
	return errors.Is(err, ErrTagNotFound)
}

func IsCategoryTagNotFound(err error) bool {
	return errors.Is(err, ErrCategoryTagNotFound)
}

func IsEntryNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}

func IsNoActiveContainer(err error) bool {
	return errors.Is(err, ErrNoActiveContainer)
}

func IsUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}

func IsInvalidDocument(err error) bool {
	return errors.Is(err, ErrInvalidDocument)
}

// IsNotFound reports any of the lookup errors
func IsNotFound(err error) bool {
	return IsContainerNotFound(err) || IsRelationNotFound(err) || IsComponentNotFound(err) ||
		IsTagNotFound(err) || IsCategoryTagNotFound(err) || IsEntryNotFound(err)
}
