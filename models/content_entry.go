package models

import (
	"sort"
	"time"
)

// EntryKind discriminates the two row types of a container's content
type EntryKind string

const (
	EntryKindRelation  EntryKind = "relation"
	EntryKindComponent EntryKind = "component"
)

// Valid reports whether k is a known entry kind
func (k EntryKind) Valid() bool {
	return k == EntryKindRelation || k == EntryKindComponent
}

// EntryRef identifies one relation or component
type EntryRef struct {
	Kind EntryKind `json:"kind"`
	ID   uint      `json:"id"`
}

// ContentEntry is one position of a container's merged, ordered content
type ContentEntry struct {
	Kind        EntryKind `json:"kind"`
	ID          uint      `json:"id"`
	ContainerID uint      `json:"container_id"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`

	// Relation fields
	EntityType  string `json:"entity_type,omitempty"`
	EntityID    uint   `json:"entity_id,omitempty"`
	Description string `json:"description,omitempty"`

	// Component fields
	ComponentType string `json:"component_type,omitempty"`
	Content       string `json:"content,omitempty"`

	// TagIDs is nil when the tag set has not been resolved yet
	TagIDs []uint `json:"tag_ids"`
}

// Ref returns the reference of the entry
func (e ContentEntry) Ref() EntryRef {
	return EntryRef{Kind: e.Kind, ID: e.ID}
}

// HasTag reports whether the entry carries tagID
func (e ContentEntry) HasTag(tagID uint) bool {
	for _, id := range e.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// EntryFromRelation converts a relation row to a content entry
func EntryFromRelation(r *Relation) ContentEntry {
	e := ContentEntry{
		Kind:        EntryKindRelation,
		ID:          r.ID,
		ContainerID: r.ContainerID,
		OrderIndex:  r.OrderIndex,
		CreatedAt:   r.CreatedAt,
		EntityType:  r.EntityType,
		EntityID:    r.EntityID,
		Description: r.Description,
	}
	if r.Tags != nil {
		e.TagIDs = r.TagIDs()
	}
	return e
}

// EntryFromComponent converts a component row to a content entry
func EntryFromComponent(c *Component) ContentEntry {
	e := ContentEntry{
		Kind:          EntryKindComponent,
		ID:            c.ID,
		ContainerID:   c.ContainerID,
		OrderIndex:    c.OrderIndex,
		CreatedAt:     c.CreatedAt,
		ComponentType: c.ComponentType,
		Content:       c.Content,
	}
	if c.Tags != nil {
		e.TagIDs = c.TagIDs()
	}
	return e
}

// EntryLess orders entries by order_index, then relations before components,
// then by id
func EntryLess(a, b ContentEntry) bool {
	if a.OrderIndex != b.OrderIndex {
		return a.OrderIndex < b.OrderIndex
	}
	if a.Kind != b.Kind {
		return a.Kind == EntryKindRelation
	}
	return a.ID < b.ID
}

// SortEntries sorts entries in place using EntryLess
func SortEntries(entries []ContentEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return EntryLess(entries[i], entries[j])
	})
}

// IndexOf returns the position of ref in entries or -1
func IndexOf(entries []ContentEntry, ref EntryRef) int {
	for i, e := range entries {
		if e.Kind == ref.Kind && e.ID == ref.ID {
			return i
		}
	}
	return -1
}

// DuplicateOrderIndexes returns order_index values shared by more than one entry
func DuplicateOrderIndexes(entries []ContentEntry) []int {
	counts := make(map[int]int, len(entries))
	for _, e := range entries {
		counts[e.OrderIndex]++
	}
	var dups []int
	for idx, n := range counts {
		if n > 1 {
			dups = append(dups, idx)
		}
	}
	sort.Ints(dups)
	return dups
}
