package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ContentAssembler produces the ordered, tag-resolved content of a container
type ContentAssembler interface {
	Assemble(ctx context.Context, containerID uint) ([]models.ContentEntry, error)
}

// ContentAssemblerImpl implements ContentAssembler
type ContentAssemblerImpl struct {
	relationRepo  repository.RelationRepository
	componentRepo repository.ComponentRepository
	assocRepo     repository.TagAssociationRepository
	log           *logger.Logger
}

func NewContentAssembler(
	relationRepo repository.RelationRepository,
	componentRepo repository.ComponentRepository,
	assocRepo repository.TagAssociationRepository,
	log *logger.Logger,
) ContentAssembler {
	return &ContentAssemblerImpl{
		relationRepo:  relationRepo,
		componentRepo: componentRepo,
		assocRepo:     assocRepo,
		log:           log.With("component", "ContentAssembler"),
	}
}

// Assemble returns every relation and component of the container, each with
// its tag ids, sorted by order_index. Nothing is synthesized or dropped.
func (a *ContentAssemblerImpl) Assemble(ctx context.Context, containerID uint) ([]models.ContentEntry, error) {
	var relEntries, compEntries []models.ContentEntry

	g, gctx := errgroup.WithContext(ctx)
	if inTransaction(ctx) {
		// a transaction handle must not be shared between goroutines
		g.SetLimit(1)
	}

	g.Go(func() error {
		relations, err := a.relationRepo.ListByContainer(gctx, containerID, nil)
		if err != nil {
			return fmt.Errorf("list relations: %w", err)
		}
		ids := make([]uint, 0, len(relations))
		for _, r := range relations {
			ids = append(ids, r.ID)
		}
		tagIDs, err := a.assocRepo.TagIDsForRelations(gctx, ids)
		if err != nil {
			return fmt.Errorf("load relation tags: %w", err)
		}
		relEntries = make([]models.ContentEntry, 0, len(relations))
		for _, r := range relations {
			e := models.EntryFromRelation(r)
			e.TagIDs = tagIDs[r.ID]
			relEntries = append(relEntries, e)
		}
		return nil
	})

	g.Go(func() error {
		components, err := a.componentRepo.ListByContainer(gctx, containerID)
		if err != nil {
			return fmt.Errorf("list components: %w", err)
		}
		ids := make([]uint, 0, len(components))
		for _, c := range components {
			ids = append(ids, c.ID)
		}
		tagIDs, err := a.assocRepo.TagIDsForComponents(gctx, ids)
		if err != nil {
			return fmt.Errorf("load component tags: %w", err)
		}
		compEntries = make([]models.ContentEntry, 0, len(components))
		for _, c := range components {
			e := models.EntryFromComponent(c)
			e.TagIDs = tagIDs[c.ID]
			compEntries = append(compEntries, e)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.log.Error("failed to assemble container content", "container_id", containerID, "error", err)
		return nil, storeError("ASSEMBLE_FAILED", "failed to load container content", err)
	}

	entries := append(relEntries, compEntries...)
	models.SortEntries(entries)
	return entries, nil
}

func inTransaction(ctx context.Context) bool {
	tx, ok := ctx.Value(repository.TxContextKey).(*gorm.DB)
	return ok && tx != nil
}
