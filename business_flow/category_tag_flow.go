package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"github.com/amirphl/widget-sidebar/utils"
)

// CategoryTagFlow manages the vocabulary used to label categories. Names are
// stored trimmed and lower-cased.
type CategoryTagFlow interface {
	All(ctx context.Context) ([]*models.CategoryTag, error)
	Get(ctx context.Context, id uint) (*models.CategoryTag, error)
	GetByName(ctx context.Context, name string) (*models.CategoryTag, error)
	// Create returns the existing tag when the name is already taken
	Create(ctx context.Context, name string) (*models.CategoryTag, error)
	Search(ctx context.Context, query string) ([]*models.CategoryTag, error)
	DeleteUnused(ctx context.Context) (int64, error)
}

// CategoryTagFlowImpl implements CategoryTagFlow
type CategoryTagFlowImpl struct {
	repo     repository.CategoryTagRepository
	notifier services.ChangeNotifier
	log      *logger.Logger
}

func NewCategoryTagFlow(repo repository.CategoryTagRepository, notifier services.ChangeNotifier, log *logger.Logger) CategoryTagFlow {
	return &CategoryTagFlowImpl{repo: repo, notifier: notifier, log: log.With("component", "CategoryTagFlow")}
}

func (f *CategoryTagFlowImpl) All(ctx context.Context) ([]*models.CategoryTag, error) {
	tags, err := f.repo.All(ctx)
	if err != nil {
		f.log.Error("failed to list category tags", "error", err)
		return nil, storeError("CATEGORY_TAG_LIST_FAILED", "failed to list category tags", err)
	}
	return tags, nil
}

func (f *CategoryTagFlowImpl) Get(ctx context.Context, id uint) (*models.CategoryTag, error) {
	tag, err := f.repo.ByID(ctx, id)
	if err != nil {
		f.log.Error("failed to load category tag", "tag_id", id, "error", err)
		return nil, storeError("CATEGORY_TAG_LOOKUP_FAILED", "failed to load category tag", err)
	}
	if tag == nil {
		return nil, NewBusinessErrorf("CATEGORY_TAG_NOT_FOUND", "category tag %d not found", ErrCategoryTagNotFound, id)
	}
	return tag, nil
}

func (f *CategoryTagFlowImpl) GetByName(ctx context.Context, name string) (*models.CategoryTag, error) {
	tag, err := f.repo.ByNameFold(ctx, name)
	if err != nil {
		f.log.Error("failed to load category tag", "name", name, "error", err)
		return nil, storeError("CATEGORY_TAG_LOOKUP_FAILED", "failed to load category tag", err)
	}
	if tag == nil {
		return nil, NewBusinessErrorf("CATEGORY_TAG_NOT_FOUND", "category tag %q not found", ErrCategoryTagNotFound, name)
	}
	return tag, nil
}

func (f *CategoryTagFlowImpl) Create(ctx context.Context, name string) (*models.CategoryTag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, validationError("CATEGORY_TAG_NAME_REQUIRED", "category tag name cannot be empty")
	}
	if utf8.RuneCountInString(name) > utils.TagNameMaxLength {
		return nil, validationError("CATEGORY_TAG_NAME_TOO_LONG", fmt.Sprintf("category tag name cannot exceed %d characters", utils.TagNameMaxLength))
	}

	existing, err := f.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !IsCategoryTagNotFound(err) {
		return nil, err
	}

	tag := &models.CategoryTag{Name: name, CreatedAt: utils.UTCNow()}
	if err := f.repo.Save(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// created concurrently
			return f.GetByName(ctx, name)
		}
		f.log.Error("failed to save category tag", "name", name, "error", err)
		return nil, storeError("CATEGORY_TAG_CREATE_FAILED", "failed to create category tag", err)
	}

	if f.notifier != nil {
		f.notifier.Publish(ctx, services.ChangeEvent{
			Entity:   services.EntityCategoryTag,
			Action:   services.ActionCreated,
			EntityID: tag.ID,
		})
	}
	return tag, nil
}

// Search matches query as a case-insensitive substring; an empty query
// returns every tag
func (f *CategoryTagFlowImpl) Search(ctx context.Context, query string) ([]*models.CategoryTag, error) {
	if strings.TrimSpace(query) == "" {
		return f.All(ctx)
	}
	tags, err := f.repo.Search(ctx, query)
	if err != nil {
		f.log.Error("failed to search category tags", "query", query, "error", err)
		return nil, storeError("CATEGORY_TAG_SEARCH_FAILED", "failed to search category tags", err)
	}
	return tags, nil
}

func (f *CategoryTagFlowImpl) DeleteUnused(ctx context.Context) (int64, error) {
	removed, err := f.repo.DeleteUnused(ctx)
	if err != nil {
		f.log.Error("failed to delete unused category tags", "error", err)
		return 0, storeError("CATEGORY_TAG_DELETE_FAILED", "failed to delete unused category tags", err)
	}
	if removed > 0 {
		f.log.Info("unused category tags deleted", "count", removed)
		if f.notifier != nil {
			f.notifier.Publish(ctx, services.ChangeEvent{
				Entity: services.EntityCategoryTag,
				Action: services.ActionDeleted,
			})
		}
	}
	return removed, nil
}
