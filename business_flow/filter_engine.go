package businessflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/amirphl/widget-sidebar/repository"
)

// FilterStats counts the entities of each type linked to the active container
type FilterStats struct {
	Active        bool           `json:"active"`
	ContainerID   uint           `json:"container_id,omitempty"`
	ContainerName string         `json:"container_name,omitempty"`
	Kind          string         `json:"kind,omitempty"`
	EntityCounts  map[string]int `json:"entity_counts,omitempty"`
}

// FilterEngine restricts entity listings to what the active container links to
type FilterEngine interface {
	SetActive(ctx context.Context, containerID uint) (*models.Container, error)
	// Active returns the active container or ErrNoActiveContainer
	Active(ctx context.Context) (*models.Container, error)
	IsActive() bool
	Clear()
	// EntityIDs returns the ids of entityType linked to the active container;
	// empty when no container is active
	EntityIDs(ctx context.Context, entityType string) ([]uint, error)
	ContainsEntity(ctx context.Context, entityType string, entityID uint) (bool, error)
	// FilterIDs keeps the ids linked to the active container; ids pass through
	// unchanged when no container is active
	FilterIDs(ctx context.Context, entityType string, ids []uint) ([]uint, error)
	Stats(ctx context.Context) (*FilterStats, error)
	Close()
}

// FilterEngineImpl implements FilterEngine
type FilterEngineImpl struct {
	containers   ContainerManager
	relationRepo repository.RelationRepository
	log          *logger.Logger

	mu       sync.RWMutex
	activeID uint
	entities map[string][]uint

	unsubscribe func()
}

// NewFilterEngine creates a filter engine. Cached entity ids are dropped
// whenever the notifier reports a change to the active container.
func NewFilterEngine(containers ContainerManager, relationRepo repository.RelationRepository, notifier services.ChangeNotifier, log *logger.Logger) FilterEngine {
	f := &FilterEngineImpl{
		containers:   containers,
		relationRepo: relationRepo,
		log:          log.With("component", "FilterEngine"),
		entities:     make(map[string][]uint),
		unsubscribe:  func() {},
	}
	if notifier != nil {
		f.unsubscribe = notifier.Subscribe(f.onChange)
	}
	return f
}

func (f *FilterEngineImpl) onChange(ev services.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeID == 0 || ev.ContainerID != f.activeID {
		return
	}
	if ev.Entity == services.EntityContainer && ev.Action == services.ActionDeleted {
		f.activeID = 0
		f.log.Info("active container deleted, filter cleared", "container_id", ev.ContainerID)
	}
	f.entities = make(map[string][]uint)
}

func (f *FilterEngineImpl) SetActive(ctx context.Context, containerID uint) (*models.Container, error) {
	c, err := f.containers.Get(ctx, containerID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.activeID != containerID {
		f.activeID = containerID
		f.entities = make(map[string][]uint)
		f.log.Info("active container set", "container_id", containerID)
	}
	f.mu.Unlock()
	return c, nil
}

func (f *FilterEngineImpl) Active(ctx context.Context) (*models.Container, error) {
	id := f.active()
	if id == 0 {
		return nil, NewBusinessError("NO_ACTIVE_CONTAINER", "no container is active", ErrNoActiveContainer)
	}
	return f.containers.Get(ctx, id)
}

func (f *FilterEngineImpl) IsActive() bool {
	return f.active() != 0
}

func (f *FilterEngineImpl) Clear() {
	f.mu.Lock()
	f.activeID = 0
	f.entities = make(map[string][]uint)
	f.mu.Unlock()
	f.log.Info("active container cleared")
}

func (f *FilterEngineImpl) EntityIDs(ctx context.Context, entityType string) ([]uint, error) {
	if !models.IsValidEntityType(entityType) {
		return nil, validationError("INVALID_ENTITY_TYPE", fmt.Sprintf("invalid entity type %q", entityType))
	}

	f.mu.RLock()
	id := f.activeID
	cached, ok := f.entities[entityType]
	f.mu.RUnlock()
	if id == 0 {
		return []uint{}, nil
	}
	if ok {
		return cached, nil
	}

	relations, err := f.relationRepo.ListByContainer(ctx, id, &entityType)
	if err != nil {
		f.log.Error("failed to list container entities", "container_id", id, "entity_type", entityType, "error", err)
		return nil, storeError("FILTER_LOOKUP_FAILED", "failed to list container entities", err)
	}
	seen := make(map[uint]bool, len(relations))
	ids := make([]uint, 0, len(relations))
	for _, r := range relations {
		if !seen[r.EntityID] {
			seen[r.EntityID] = true
			ids = append(ids, r.EntityID)
		}
	}

	f.mu.Lock()
	if f.activeID == id {
		f.entities[entityType] = ids
	}
	f.mu.Unlock()
	return ids, nil
}

func (f *FilterEngineImpl) ContainsEntity(ctx context.Context, entityType string, entityID uint) (bool, error) {
	if !f.IsActive() {
		return false, nil
	}
	ids, err := f.EntityIDs(ctx, entityType)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == entityID {
			return true, nil
		}
	}
	return false, nil
}

func (f *FilterEngineImpl) FilterIDs(ctx context.Context, entityType string, ids []uint) ([]uint, error) {
	if !f.IsActive() {
		return ids, nil
	}
	linked, err := f.EntityIDs(ctx, entityType)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(linked))
	for _, id := range linked {
		set[id] = true
	}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if set[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *FilterEngineImpl) Stats(ctx context.Context) (*FilterStats, error) {
	if !f.IsActive() {
		return &FilterStats{}, nil
	}
	c, err := f.Active(ctx)
	if err != nil {
		return nil, err
	}

	stats := &FilterStats{
		Active:        true,
		ContainerID:   c.ID,
		ContainerName: c.Name,
		Kind:          string(c.Kind),
		EntityCounts:  make(map[string]int, len(models.EntityTypes)),
	}
	for _, t := range models.EntityTypes {
		ids, err := f.EntityIDs(ctx, t)
		if err != nil {
			return nil, err
		}
		stats.EntityCounts[models.EntityTypeGroupKey(t)] = len(ids)
	}
	return stats, nil
}

// Close stops listening for change events
func (f *FilterEngineImpl) Close() {
	f.unsubscribe()
}

func (f *FilterEngineImpl) active() uint {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.activeID
}
