package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Change actions
const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionReordered   = "reordered"
	ActionTagsChanged = "tags_changed"
	ActionInvalidated = "cache_invalidated"
)

// Changed entities
const (
	EntityContainer   = "container"
	EntityRelation    = "relation"
	EntityComponent   = "component"
	EntityElementTag  = "element_tag"
	EntityCategoryTag = "category_tag"
)

// ChangeEvent describes one state change a subscriber may want to refresh on
type ChangeEvent struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Entity      string    `json:"entity"`
	Action      string    `json:"action"`
	Kind        string    `json:"kind,omitempty"`
	EntityID    uint      `json:"entity_id,omitempty"`
	ContainerID uint      `json:"container_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ChangeNotifier fans change events out to subscribers
type ChangeNotifier interface {
	Publish(ctx context.Context, ev ChangeEvent)
	// Subscribe registers fn and returns a function that removes it
	Subscribe(fn func(ChangeEvent)) func()
}

// MemoryNotifier delivers events synchronously to in-process subscribers
type MemoryNotifier struct {
	origin string
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(ChangeEvent)
}

// NewMemoryNotifier creates a notifier with a random origin id
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{origin: uuid.NewString(), subs: make(map[int]func(ChangeEvent))}
}

func (n *MemoryNotifier) Publish(_ context.Context, ev ChangeEvent) {
	n.dispatch(n.stamp(ev))
}

func (n *MemoryNotifier) Subscribe(fn func(ChangeEvent)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *MemoryNotifier) stamp(ev ChangeEvent) ChangeEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Origin == "" {
		ev.Origin = n.origin
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = utils.UTCNow()
	}
	return ev
}

func (n *MemoryNotifier) dispatch(ev ChangeEvent) {
	n.mu.RLock()
	subs := make([]func(ChangeEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// RedisNotifier delivers to local subscribers and mirrors events on a redis
// channel; events published by other instances are forwarded locally
type RedisNotifier struct {
	*MemoryNotifier
	rc      *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisNotifier creates a notifier publishing on <prefix><channel>
func NewRedisNotifier(rc *redis.Client, prefix string, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{
		MemoryNotifier: NewMemoryNotifier(),
		rc:             rc,
		channel:        prefix + utils.ChangeEventsChannel,
		log:            log.With("service", "RedisChangeNotifier"),
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev ChangeEvent) {
	ev = n.stamp(ev)
	n.dispatch(ev)

	raw, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("change event encode failed", "error", err)
		return
	}
	if err := n.rc.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.log.Warn("change event publish failed", "event_id", ev.ID, "error", err)
	}
}

// StartForwarder subscribes to the channel until ctx is done
func (n *RedisNotifier) StartForwarder(ctx context.Context) error {
	sub := n.rc.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					n.log.Warn("bad change event payload", "error", err)
					continue
				}
				if ev.Origin == n.origin {
					continue
				}
				n.dispatch(ev)
			}
		}
	}()
	return nil
}

// NewChangeNotifier returns a redis notifier when rc is set, otherwise a memory one
func NewChangeNotifier(rc *redis.Client, prefix string, log *logger.Logger) ChangeNotifier {
	if rc != nil {
		return NewRedisNotifier(rc, prefix, log)
	}
	return NewMemoryNotifier()
}
