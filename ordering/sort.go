package ordering

import (
	"sort"

	"postboard/models"
)

// SortPosts orders posts by display order ascending with unranked posts last.
// Posts with the same rank (or both unranked) go newest first. The sort is
// stable so anything still tied keeps its input position.
//
// The server-side stores and the feed view both use this so a reload never
// moves anything.
func SortPosts(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return less(posts[i], posts[j])
	})
}

func less(a, b models.Post) bool {
	switch {
	case a.DisplayOrder != nil && b.DisplayOrder == nil:
		return true
	case a.DisplayOrder == nil && b.DisplayOrder != nil:
		return false
	case a.DisplayOrder != nil && b.DisplayOrder != nil && *a.DisplayOrder != *b.DisplayOrder:
		return *a.DisplayOrder < *b.DisplayOrder
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// HasPersistedOrder reports whether any post carries a display order
func HasPersistedOrder(posts []models.Post) bool {
	for _, p := range posts {
		if p.DisplayOrder != nil {
			return true
		}
	}
	return false
}

// AssignRanks encodes a submitted order onto posts. A post listed in
// orderedIDs gets its position there as rank (first occurrence wins). Posts
// missing from the list keep whatever rank they had, so a partial order
// never wipes the rest. Unknown ids are ignored. The input is not modified.
func AssignRanks(posts []models.Post, orderedIDs []models.ID) []models.Post {
	rank := make(map[models.ID]int, len(orderedIDs))
	for i, id := range orderedIDs {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}

	updated := make([]models.Post, len(posts))
	for i, p := range posts {
		if r, ok := rank[p.ID]; ok {
			p.DisplayOrder = models.IntPtr(r)
		}
		updated[i] = p
	}
	return updated
}
