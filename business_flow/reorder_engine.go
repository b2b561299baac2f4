package businessflow

import (
	"context"
	"sort"

	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reorderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "widget_sidebar",
			Name:      "reorder_operations_total",
			Help:      "Reordering operations partitioned by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	inconsistentOrders = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "widget_sidebar",
			Name:      "inconsistent_order_total",
			Help:      "Containers found with duplicate order indexes",
		},
	)
)

// ReorderEngine maintains the total order over a container's content.
//
// Operations are best-effort: writes are issued one by one without a
// transaction and a failing write aborts the operation without rolling back
// the writes already made. After an aborted multi-write operation the
// container is re-read; duplicate order indexes are logged and reported as an
// InconsistentOrderError.
type ReorderEngine interface {
	MoveUp(ctx context.Context, ref models.EntryRef) ([]models.ContentEntry, error)
	MoveDown(ctx context.Context, ref models.EntryRef) ([]models.ContentEntry, error)
	// InsertRelationBelow stores rel right after anchor, or at the end when
	// anchor is nil, and returns its order_index
	InsertRelationBelow(ctx context.Context, anchor *models.EntryRef, rel *models.Relation) (int, error)
	InsertComponentBelow(ctx context.Context, anchor *models.EntryRef, comp *models.Component) (int, error)
	// Delete removes an entry; remaining entries keep their indexes
	Delete(ctx context.Context, ref models.EntryRef) error
	// CheckOrder returns an InconsistentOrderError when indexes collide
	CheckOrder(ctx context.Context, containerID uint) error
	// Normalize rewrites the indexes of a container to 0..n-1 in assembled order
	Normalize(ctx context.Context, containerID uint) ([]models.ContentEntry, error)
}

// ReorderEngineImpl implements ReorderEngine
type ReorderEngineImpl struct {
	contentRepo   repository.ContentRepository
	relationRepo  repository.RelationRepository
	componentRepo repository.ComponentRepository
	assembler     ContentAssembler
	notifier      services.ChangeNotifier
	log           *logger.Logger
}

func NewReorderEngine(
	contentRepo repository.ContentRepository,
	relationRepo repository.RelationRepository,
	componentRepo repository.ComponentRepository,
	assembler ContentAssembler,
	notifier services.ChangeNotifier,
	log *logger.Logger,
) ReorderEngine {
	return &ReorderEngineImpl{
		contentRepo:   contentRepo,
		relationRepo:  relationRepo,
		componentRepo: componentRepo,
		assembler:     assembler,
		notifier:      notifier,
		log:           log.With("component", "ReorderEngine"),
	}
}

func (e *ReorderEngineImpl) MoveUp(ctx context.Context, ref models.EntryRef) ([]models.ContentEntry, error) {
	return e.move(ctx, "move_up", ref, -1)
}

func (e *ReorderEngineImpl) MoveDown(ctx context.Context, ref models.EntryRef) ([]models.ContentEntry, error) {
	return e.move(ctx, "move_down", ref, 1)
}

// move swaps the order_index of ref with its neighbour at offset
func (e *ReorderEngineImpl) move(ctx context.Context, op string, ref models.EntryRef, offset int) ([]models.ContentEntry, error) {
	containerID, err := e.containerOf(ctx, ref)
	if err != nil {
		reorderOperations.WithLabelValues(op, "rejected").Inc()
		return nil, err
	}

	entries, err := e.ordered(ctx, containerID)
	if err != nil {
		reorderOperations.WithLabelValues(op, "failed").Inc()
		return nil, err
	}
	idx := models.IndexOf(entries, ref)
	if idx < 0 {
		reorderOperations.WithLabelValues(op, "rejected").Inc()
		return nil, NewBusinessError("ENTRY_NOT_FOUND", "entry is not part of the container", ErrEntryNotFound)
	}

	target := idx + offset
	if target < 0 || target >= len(entries) {
		reorderOperations.WithLabelValues(op, "noop").Inc()
		return e.assembler.Assemble(ctx, containerID)
	}

	self, neighbour := entries[idx], entries[target]
	if self.OrderIndex == neighbour.OrderIndex {
		// swapping equal values cannot change the order
		err := e.inconsistent(containerID, []int{self.OrderIndex}, nil)
		reorderOperations.WithLabelValues(op, "inconsistent").Inc()
		return nil, err
	}

	if err := e.writeOrder(ctx, self.Ref(), neighbour.OrderIndex); err != nil {
		reorderOperations.WithLabelValues(op, "failed").Inc()
		return nil, storeError("REORDER_FAILED", "failed to move entry", err)
	}
	if err := e.writeOrder(ctx, neighbour.Ref(), self.OrderIndex); err != nil {
		reorderOperations.WithLabelValues(op, "failed").Inc()
		return nil, e.afterAbort(ctx, containerID, op, err)
	}

	reorderOperations.WithLabelValues(op, "ok").Inc()
	e.publish(ctx, containerID, ref)
	return e.assembler.Assemble(ctx, containerID)
}

func (e *ReorderEngineImpl) InsertRelationBelow(ctx context.Context, anchor *models.EntryRef, rel *models.Relation) (int, error) {
	idx, err := e.makeRoom(ctx, "insert_relation", rel.ContainerID, anchor)
	if err != nil {
		return 0, err
	}
	rel.OrderIndex = idx
	if err := e.relationRepo.Save(ctx, rel); err != nil {
		reorderOperations.WithLabelValues("insert_relation", "failed").Inc()
		e.log.Error("failed to store relation", "container_id", rel.ContainerID, "order_index", idx, "error", err)
		if anchor != nil {
			return 0, e.afterAbort(ctx, rel.ContainerID, "insert_relation", err)
		}
		return 0, storeError("INSERT_FAILED", "failed to add relation", err)
	}

	reorderOperations.WithLabelValues("insert_relation", "ok").Inc()
	e.publish(ctx, rel.ContainerID, models.EntryRef{Kind: models.EntryKindRelation, ID: rel.ID})
	return idx, nil
}

func (e *ReorderEngineImpl) InsertComponentBelow(ctx context.Context, anchor *models.EntryRef, comp *models.Component) (int, error) {
	idx, err := e.makeRoom(ctx, "insert_component", comp.ContainerID, anchor)
	if err != nil {
		return 0, err
	}
	comp.OrderIndex = idx
	if err := e.componentRepo.Save(ctx, comp); err != nil {
		reorderOperations.WithLabelValues("insert_component", "failed").Inc()
		e.log.Error("failed to store component", "container_id", comp.ContainerID, "order_index", idx, "error", err)
		if anchor != nil {
			return 0, e.afterAbort(ctx, comp.ContainerID, "insert_component", err)
		}
		return 0, storeError("INSERT_FAILED", "failed to add component", err)
	}

	reorderOperations.WithLabelValues("insert_component", "ok").Inc()
	e.publish(ctx, comp.ContainerID, models.EntryRef{Kind: models.EntryKindComponent, ID: comp.ID})
	return idx, nil
}

// makeRoom returns the order_index for a new entry. With an anchor every
// entry at or after anchor+1 is shifted by one, highest first, so no write
// collides with an index still in use.
func (e *ReorderEngineImpl) makeRoom(ctx context.Context, op string, containerID uint, anchor *models.EntryRef) (int, error) {
	if anchor == nil {
		highest, err := e.contentRepo.MaxOrder(ctx, containerID)
		if err != nil {
			reorderOperations.WithLabelValues(op, "failed").Inc()
			e.log.Error("failed to read max order", "container_id", containerID, "error", err)
			return 0, storeError("INSERT_FAILED", "failed to read container order", err)
		}
		return highest + 1, nil
	}

	entries, err := e.ordered(ctx, containerID)
	if err != nil {
		reorderOperations.WithLabelValues(op, "failed").Inc()
		return 0, err
	}
	pos := models.IndexOf(entries, *anchor)
	if pos < 0 {
		reorderOperations.WithLabelValues(op, "rejected").Inc()
		return 0, NewBusinessError("ANCHOR_NOT_FOUND", "anchor is not part of the container", ErrEntryNotFound)
	}
	newIndex := entries[pos].OrderIndex + 1

	var trailing []models.ContentEntry
	for _, en := range entries {
		if en.OrderIndex >= newIndex {
			trailing = append(trailing, en)
		}
	}
	sort.SliceStable(trailing, func(i, j int) bool {
		return models.EntryLess(trailing[j], trailing[i])
	})

	for i, en := range trailing {
		if err := e.writeOrder(ctx, en.Ref(), en.OrderIndex+1); err != nil {
			reorderOperations.WithLabelValues(op, "failed").Inc()
			if i == 0 {
				return 0, storeError("INSERT_FAILED", "failed to shift container content", err)
			}
			return 0, e.afterAbort(ctx, containerID, op, err)
		}
	}
	return newIndex, nil
}

func (e *ReorderEngineImpl) Delete(ctx context.Context, ref models.EntryRef) error {
	containerID, err := e.containerOf(ctx, ref)
	if err != nil {
		return err
	}

	if ref.Kind == models.EntryKindComponent {
		err = e.componentRepo.Delete(ctx, ref.ID)
	} else {
		err = e.relationRepo.Delete(ctx, ref.ID)
	}
	if err != nil {
		reorderOperations.WithLabelValues("delete", "failed").Inc()
		e.log.Error("failed to delete entry", "kind", ref.Kind, "id", ref.ID, "error", err)
		return storeError("DELETE_FAILED", "failed to delete entry", err)
	}

	reorderOperations.WithLabelValues("delete", "ok").Inc()
	if e.notifier != nil {
		e.notifier.Publish(ctx, services.ChangeEvent{
			Entity:      entityName(ref.Kind),
			Action:      services.ActionDeleted,
			EntityID:    ref.ID,
			ContainerID: containerID,
		})
	}
	return nil
}

func (e *ReorderEngineImpl) CheckOrder(ctx context.Context, containerID uint) error {
	entries, err := e.ordered(ctx, containerID)
	if err != nil {
		return err
	}
	if dups := models.DuplicateOrderIndexes(entries); len(dups) > 0 {
		return e.inconsistent(containerID, dups, nil)
	}
	return nil
}

func (e *ReorderEngineImpl) Normalize(ctx context.Context, containerID uint) ([]models.ContentEntry, error) {
	entries, err := e.ordered(ctx, containerID)
	if err != nil {
		return nil, err
	}

	for i, en := range entries {
		if en.OrderIndex == i {
			continue
		}
		if err := e.writeOrder(ctx, en.Ref(), i); err != nil {
			reorderOperations.WithLabelValues("normalize", "failed").Inc()
			return nil, e.afterAbort(ctx, containerID, "normalize", err)
		}
	}

	reorderOperations.WithLabelValues("normalize", "ok").Inc()
	e.publish(ctx, containerID, models.EntryRef{})
	return e.assembler.Assemble(ctx, containerID)
}

// afterAbort re-reads the container once a multi-write operation stopped
// midway and reports duplicate indexes when the partial writes left any
func (e *ReorderEngineImpl) afterAbort(ctx context.Context, containerID uint, op string, cause error) error {
	e.log.Error("reorder aborted", "op", op, "container_id", containerID, "error", cause)

	entries, err := e.contentRepo.ContentOrdered(ctx, containerID)
	if err != nil {
		e.log.Error("failed to re-read container after aborted reorder", "container_id", containerID, "error", err)
		return storeError("REORDER_FAILED", "reorder aborted", cause)
	}
	if dups := models.DuplicateOrderIndexes(entries); len(dups) > 0 {
		return e.inconsistent(containerID, dups, cause)
	}
	return storeError("REORDER_FAILED", "reorder aborted", cause)
}

func (e *ReorderEngineImpl) inconsistent(containerID uint, dups []int, cause error) error {
	inconsistentOrders.Inc()
	e.log.Error("inconsistent order detected", "container_id", containerID, "duplicate_indexes", dups, "cause", cause)
	return &InconsistentOrderError{ContainerID: containerID, Duplicates: dups, Cause: cause}
}

func (e *ReorderEngineImpl) ordered(ctx context.Context, containerID uint) ([]models.ContentEntry, error) {
	entries, err := e.contentRepo.ContentOrdered(ctx, containerID)
	if err != nil {
		e.log.Error("failed to read container content", "container_id", containerID, "error", err)
		return nil, storeError("REORDER_FAILED", "failed to read container content", err)
	}
	return entries, nil
}

func (e *ReorderEngineImpl) writeOrder(ctx context.Context, ref models.EntryRef, orderIndex int) error {
	if ref.Kind == models.EntryKindComponent {
		return e.contentRepo.UpdateComponentOrder(ctx, ref.ID, orderIndex)
	}
	return e.contentRepo.UpdateRelationOrder(ctx, ref.ID, orderIndex)
}

// containerOf returns the container holding ref
func (e *ReorderEngineImpl) containerOf(ctx context.Context, ref models.EntryRef) (uint, error) {
	switch ref.Kind {
	case models.EntryKindRelation:
		rel, err := e.relationRepo.ByID(ctx, ref.ID)
		if err != nil {
			return 0, storeError("LOOKUP_FAILED", "failed to load relation", err)
		}
		if rel == nil {
			return 0, NewBusinessError("RELATION_NOT_FOUND", "relation not found", notFoundFor(ref.Kind))
		}
		return rel.ContainerID, nil
	case models.EntryKindComponent:
		comp, err := e.componentRepo.ByID(ctx, ref.ID)
		if err != nil {
			return 0, storeError("LOOKUP_FAILED", "failed to load component", err)
		}
		if comp == nil {
			return 0, NewBusinessError("COMPONENT_NOT_FOUND", "component not found", notFoundFor(ref.Kind))
		}
		return comp.ContainerID, nil
	default:
		return 0, validationError("INVALID_ENTRY_KIND", "entry kind must be relation or component")
	}
}

func (e *ReorderEngineImpl) publish(ctx context.Context, containerID uint, ref models.EntryRef) {
	if e.notifier == nil {
		return
	}
	e.notifier.Publish(ctx, services.ChangeEvent{
		Entity:      entityName(ref.Kind),
		Action:      services.ActionReordered,
		EntityID:    ref.ID,
		ContainerID: containerID,
	})
}

func entityName(kind models.EntryKind) string {
	switch kind {
	case models.EntryKindComponent:
		return services.EntityComponent
	case models.EntryKindRelation:
		return services.EntityRelation
	default:
		return services.EntityContainer
	}
}
