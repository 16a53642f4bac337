package ordering_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/models"
	"postboard/ordering"
)

func ids(s ...string) []models.ID {
	out := make([]models.ID, len(s))
	for i, v := range s {
		out[i] = models.ID(v)
	}
	return out
}

func mustNew(t *testing.T, s ...string) ordering.Collection {
	t.Helper()
	c, err := ordering.New(ids(s...))
	require.NoError(t, err)
	return c
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := ordering.New(ids("a", "b", "a"))
	assert.ErrorIs(t, err, ordering.ErrDuplicateID)
}

func TestApplySingleMove(t *testing.T) {
	tests := []struct {
		name     string
		active   string
		over     string
		expected []models.ID
		move     ordering.Move
	}{
		{
			name:     "forward move",
			active:   "A",
			over:     "D",
			expected: ids("B", "C", "D", "A", "E"),
			move:     ordering.Move{From: 0, To: 3},
		},
		{
			name:     "backward move",
			active:   "E",
			over:     "B",
			expected: ids("A", "E", "B", "C", "D"),
			move:     ordering.Move{From: 4, To: 1},
		},
		{
			name:     "adjacent forward",
			active:   "B",
			over:     "C",
			expected: ids("A", "C", "B", "D", "E"),
			move:     ordering.Move{From: 1, To: 2},
		},
		{
			name:     "to the end",
			active:   "A",
			over:     "E",
			expected: ids("B", "C", "D", "E", "A"),
			move:     ordering.Move{From: 0, To: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, "A", "B", "C", "D", "E")
			next, move, err := ordering.Apply(c, models.ID(tt.active), models.ID(tt.over))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, next.IDs())
			assert.Equal(t, tt.move, move)
			// the input collection is untouched
			assert.Equal(t, ids("A", "B", "C", "D", "E"), c.IDs())
		})
	}
}

func TestApplyIsPermutation(t *testing.T) {
	c := mustNew(t, "A", "B", "C", "D", "E", "F")
	for _, active := range c.IDs() {
		for _, over := range c.IDs() {
			next, _, err := ordering.Apply(c, active, over)
			require.NoError(t, err)
			assert.Equal(t, c.Len(), next.Len())
			assert.ElementsMatch(t, c.IDs(), next.IDs())
			assert.Equal(t, c.IndexOf(over), next.IndexOf(active))
		}
	}
}

func TestApplyDropOnItselfIsNoop(t *testing.T) {
	c := mustNew(t, "A", "B", "C")
	next, _, err := ordering.Apply(c, "B", "B")
	require.NoError(t, err)
	assert.True(t, c.Equal(next))
}

func TestApplyUnknownIDs(t *testing.T) {
	c := mustNew(t, "A", "B", "C")

	_, _, err := ordering.Apply(c, "X", "B")
	require.Error(t, err)
	assert.True(t, ordering.IsInvalidReorder(err))
	assert.Contains(t, err.Error(), "active")

	_, _, err = ordering.Apply(c, "A", "Y")
	require.Error(t, err)
	assert.True(t, ordering.IsInvalidReorder(err))
	assert.Contains(t, err.Error(), "over")
}

func TestMoveItem(t *testing.T) {
	c := mustNew(t, "A", "B", "C", "D")

	moved, err := c.MoveItem("D", 0)
	require.NoError(t, err)
	assert.Equal(t, ids("D", "A", "B", "C"), moved.IDs())

	same, err := c.MoveItem("", 2)
	require.NoError(t, err)
	assert.True(t, c.Equal(same))

	same, err = c.MoveItem("A", 4)
	require.NoError(t, err)
	assert.True(t, c.Equal(same))

	same, err = c.MoveItem("A", -1)
	require.NoError(t, err)
	assert.True(t, c.Equal(same))

	_, err = c.MoveItem("Z", 1)
	assert.True(t, ordering.IsInvalidReorder(err))
}

func TestRemapFocus(t *testing.T) {
	tests := []struct {
		name     string
		focus    int
		move     ordering.Move
		expected int
	}{
		{"forward: focus is moved item", 1, ordering.Move{From: 1, To: 3}, 3},
		{"forward: focus crossed", 2, ordering.Move{From: 1, To: 3}, 1},
		{"forward: focus at target", 3, ordering.Move{From: 1, To: 3}, 2},
		{"forward: focus before range", 0, ordering.Move{From: 1, To: 3}, 0},
		{"forward: focus after range", 4, ordering.Move{From: 1, To: 3}, 4},
		{"backward: focus is moved item", 3, ordering.Move{From: 3, To: 1}, 1},
		{"backward: focus at target", 1, ordering.Move{From: 3, To: 1}, 2},
		{"backward: focus crossed", 2, ordering.Move{From: 3, To: 1}, 3},
		{"backward: focus before range", 0, ordering.Move{From: 3, To: 1}, 0},
		{"backward: focus after range", 4, ordering.Move{From: 3, To: 1}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ordering.RemapFocus(tt.focus, tt.move))
		})
	}
}

// The remapped focus must keep pointing at the same element.
func TestRemapFocusFollowsElement(t *testing.T) {
	c := mustNew(t, "A", "B", "C", "D", "E")
	for _, active := range c.IDs() {
		for _, over := range c.IDs() {
			next, move, err := ordering.Apply(c, active, over)
			require.NoError(t, err)
			for focus := 0; focus < c.Len(); focus++ {
				assert.Equal(t, c.At(focus), next.At(ordering.RemapFocus(focus, move)))
			}
		}
	}
}

func TestRemapFocusAfterRemove(t *testing.T) {
	assert.Equal(t, 1, ordering.RemapFocusAfterRemove(2, 2, 4))
	assert.Equal(t, 0, ordering.RemapFocusAfterRemove(0, 0, 4))
	assert.Equal(t, 2, ordering.RemapFocusAfterRemove(3, 1, 4))
	assert.Equal(t, 1, ordering.RemapFocusAfterRemove(1, 3, 4))
	assert.Equal(t, 0, ordering.RemapFocusAfterRemove(0, 0, 0))
}

func TestInitializeUsesPersistedOrder(t *testing.T) {
	base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	// tN is N hours before base, so t4 is newer than t5
	at := func(n int) time.Time { return base.Add(-time.Duration(n) * time.Hour) }

	posts := []models.Post{
		{ID: "p0", DisplayOrder: nil, CreatedAt: at(5)},
		{ID: "p1", DisplayOrder: models.IntPtr(2), CreatedAt: at(2)},
		{ID: "p2", DisplayOrder: models.IntPtr(0), CreatedAt: at(1)},
		{ID: "p3", DisplayOrder: nil, CreatedAt: at(4)},
		{ID: "p4", DisplayOrder: models.IntPtr(1), CreatedAt: at(3)},
	}

	c, err := ordering.Initialize(posts)
	require.NoError(t, err)
	assert.Equal(t, ids("p2", "p4", "p1", "p3", "p0"), c.IDs())
}

func TestInitializeKeepsInsertionOrderWithoutRanks(t *testing.T) {
	base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	posts := []models.Post{
		{ID: "P1", CreatedAt: base},
		{ID: "P2", CreatedAt: base.Add(time.Hour)},
		{ID: "P3", CreatedAt: base.Add(2 * time.Hour)},
	}

	c, err := ordering.Initialize(posts)
	require.NoError(t, err)
	assert.Equal(t, ids("P1", "P2", "P3"), c.IDs())
}

func TestSortPostsTiesByCreatedAt(t *testing.T) {
	base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	posts := []models.Post{
		{ID: "old", DisplayOrder: models.IntPtr(1), CreatedAt: base},
		{ID: "new", DisplayOrder: models.IntPtr(1), CreatedAt: base.Add(time.Minute)},
		{ID: "first", DisplayOrder: models.IntPtr(0), CreatedAt: base},
	}
	ordering.SortPosts(posts)
	assert.Equal(t, []models.ID{"first", "new", "old"}, []models.ID{posts[0].ID, posts[1].ID, posts[2].ID})
}

func TestAssignRanksKeepsUntouchedRanks(t *testing.T) {
	posts := []models.Post{
		{ID: "a", DisplayOrder: models.IntPtr(0)},
		{ID: "b", DisplayOrder: models.IntPtr(1)},
		{ID: "c", DisplayOrder: models.IntPtr(2)},
		{ID: "d", DisplayOrder: models.IntPtr(3)},
		{ID: "e"},
	}

	updated := ordering.AssignRanks(posts, ids("c", "a", "b", "ghost", "a"))

	ranks := map[models.ID]*int{}
	for _, p := range updated {
		ranks[p.ID] = p.DisplayOrder
	}
	assert.Equal(t, 0, *ranks["c"])
	assert.Equal(t, 1, *ranks["a"])
	assert.Equal(t, 2, *ranks["b"])
	assert.Equal(t, 3, *ranks["d"])
	assert.Nil(t, ranks["e"])
	// input left alone
	assert.Equal(t, 0, *posts[0].DisplayOrder)
}

func TestCollectionWithoutAndPrepend(t *testing.T) {
	c := mustNew(t, "A", "B", "C")
	assert.Equal(t, ids("A", "C"), c.Without("B").IDs())
	assert.Equal(t, ids("A", "B", "C"), c.Without("Z").IDs())
	assert.Equal(t, ids("N", "A", "B", "C"), c.Prepend("N").IDs())
	assert.Equal(t, ids("A", "B", "C"), c.Prepend("B").IDs())
}
