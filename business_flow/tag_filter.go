package businessflow

import (
	"context"

	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"github.com/amirphl/widget-sidebar/utils"
)

// TagFilter narrows assembled content to entries carrying selected tags
type TagFilter interface {
	// Filter keeps entries sharing at least one selected tag (matchAll false)
	// or carrying every selected tag (matchAll true). Order is preserved and
	// an empty selection returns entries unchanged.
	Filter(ctx context.Context, entries []models.ContentEntry, selected []uint, matchAll bool) ([]models.ContentEntry, error)
}

// TagFilterImpl implements TagFilter; relations and components are filtered alike
type TagFilterImpl struct {
	assocRepo repository.TagAssociationRepository
	log       *logger.Logger
}

func NewTagFilter(assocRepo repository.TagAssociationRepository, log *logger.Logger) TagFilter {
	return &TagFilterImpl{assocRepo: assocRepo, log: log.With("component", "TagFilter")}
}

func (f *TagFilterImpl) Filter(ctx context.Context, entries []models.ContentEntry, selected []uint, matchAll bool) ([]models.ContentEntry, error) {
	if len(selected) == 0 {
		return entries, nil
	}
	selected = utils.UniqueUints(selected)

	resolved, err := f.resolve(ctx, entries)
	if err != nil {
		return nil, err
	}

	out := make([]models.ContentEntry, 0, len(resolved))
	for _, e := range resolved {
		if matches(e, selected, matchAll) {
			out = append(out, e)
		}
	}
	return out, nil
}

func matches(e models.ContentEntry, selected []uint, matchAll bool) bool {
	if matchAll {
		for _, id := range selected {
			if !e.HasTag(id) {
				return false
			}
		}
		return true
	}
	for _, id := range selected {
		if e.HasTag(id) {
			return true
		}
	}
	return false
}

// resolve fills missing tag sets with one batch read per entry kind
func (f *TagFilterImpl) resolve(ctx context.Context, entries []models.ContentEntry) ([]models.ContentEntry, error) {
	var relIDs, compIDs []uint
	for _, e := range entries {
		if e.TagIDs != nil {
			continue
		}
		if e.Kind == models.EntryKindComponent {
			compIDs = append(compIDs, e.ID)
		} else {
			relIDs = append(relIDs, e.ID)
		}
	}
	if len(relIDs) == 0 && len(compIDs) == 0 {
		return entries, nil
	}

	relTags, err := f.assocRepo.TagIDsForRelations(ctx, relIDs)
	if err != nil {
		f.log.Error("failed to resolve relation tags", "error", err)
		return nil, storeError("FILTER_FAILED", "failed to resolve tags", err)
	}
	compTags, err := f.assocRepo.TagIDsForComponents(ctx, compIDs)
	if err != nil {
		f.log.Error("failed to resolve component tags", "error", err)
		return nil, storeError("FILTER_FAILED", "failed to resolve tags", err)
	}

	out := make([]models.ContentEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].TagIDs != nil {
			continue
		}
		if out[i].Kind == models.EntryKindComponent {
			out[i].TagIDs = compTags[out[i].ID]
		} else {
			out[i].TagIDs = relTags[out[i].ID]
		}
		if out[i].TagIDs == nil {
			out[i].TagIDs = []uint{}
		}
	}
	return out, nil
}
