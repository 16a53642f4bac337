// Package ordering holds the ordered collection behind the feed and the pure
// reorder rules applied to it.
package ordering

import (
	"fmt"

	"github.com/samber/lo"

	"postboard/models"
)

// Collection is an immutable ordered sequence of unique post ids. It is the
// source of truth for rendering order; display ranks are derived from it.
type Collection struct {
	ids   []models.ID
	index map[models.ID]int
}

// New builds a collection from ids in the given order
func New(ids []models.ID) (Collection, error) {
	if dups := lo.FindDuplicates(ids); len(dups) > 0 {
		return Collection{}, fmt.Errorf("%w: %s", ErrDuplicateID, dups[0])
	}
	return newCollection(append([]models.ID(nil), ids...)), nil
}

// Initialize builds the collection for a freshly loaded feed. Persisted ranks
// win when any post has one; otherwise the order the store returned is kept.
func Initialize(posts []models.Post) (Collection, error) {
	sorted := append([]models.Post(nil), posts...)
	if HasPersistedOrder(sorted) {
		SortPosts(sorted)
	}
	return New(lo.Map(sorted, func(p models.Post, _ int) models.ID {
		return p.ID
	}))
}

func newCollection(ids []models.ID) Collection {
	index := make(map[models.ID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return Collection{ids: ids, index: index}
}

// IDs returns a copy of the current sequence
func (c Collection) IDs() []models.ID {
	return append([]models.ID(nil), c.ids...)
}

func (c Collection) Len() int {
	return len(c.ids)
}

// At returns the id at position i
func (c Collection) At(i int) models.ID {
	return c.ids[i]
}

// IndexOf returns the position of id, or -1
func (c Collection) IndexOf(id models.ID) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

func (c Collection) Contains(id models.ID) bool {
	_, ok := c.index[id]
	return ok
}

// Equal reports whether both collections hold the same ids in the same order
func (c Collection) Equal(other Collection) bool {
	if len(c.ids) != len(other.ids) {
		return false
	}
	for i := range c.ids {
		if c.ids[i] != other.ids[i] {
			return false
		}
	}
	return true
}

// MoveItem relocates id to toIndex. An empty id or an out-of-range index is
// a no-op and returns c itself. A non-empty id outside the collection is an
// InvalidReorderError.
func (c Collection) MoveItem(id models.ID, toIndex int) (Collection, error) {
	if id == "" || toIndex < 0 || toIndex >= len(c.ids) {
		return c, nil
	}
	from := c.IndexOf(id)
	if from == -1 {
		return c, &InvalidReorderError{ID: id, Role: "moved"}
	}
	if from == toIndex {
		return c, nil
	}
	return newCollection(moveIDs(c.ids, from, toIndex)), nil
}

// Without returns the collection with id removed. Ranks of the others are
// left for the store to settle on the next load.
func (c Collection) Without(id models.ID) Collection {
	i := c.IndexOf(id)
	if i == -1 {
		return c
	}
	ids := make([]models.ID, 0, len(c.ids)-1)
	ids = append(ids, c.ids[:i]...)
	ids = append(ids, c.ids[i+1:]...)
	return newCollection(ids)
}

// Prepend returns the collection with id added in front. Existing members are
// returned unchanged.
func (c Collection) Prepend(id models.ID) Collection {
	if c.Contains(id) {
		return c
	}
	return newCollection(append([]models.ID{id}, c.ids...))
}

// moveIDs removes the element at from and reinserts it at to
func moveIDs(ids []models.ID, from, to int) []models.ID {
	moved := ids[from]
	out := make([]models.ID, 0, len(ids))
	for i, id := range ids {
		if i == from {
			continue
		}
		out = append(out, id)
	}
	out = append(out[:to], append([]models.ID{moved}, out[to:]...)...)
	return out
}
