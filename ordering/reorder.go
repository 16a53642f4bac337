package ordering

import "postboard/models"

// Move is the index shift produced by a reorder
type Move struct {
	From int
	To   int
}

// Apply moves activeID to the position currently held by overID. The item is
// removed and reinserted, so only the items between the two positions shift.
// Dropping an item on itself returns c unchanged.
func Apply(c Collection, activeID, overID models.ID) (Collection, Move, error) {
	from := c.IndexOf(activeID)
	if from == -1 {
		return c, Move{}, &InvalidReorderError{ID: activeID, Role: "active"}
	}
	to := c.IndexOf(overID)
	if to == -1 {
		return c, Move{}, &InvalidReorderError{ID: overID, Role: "over"}
	}

	move := Move{From: from, To: to}
	if from == to {
		return c, move, nil
	}
	return newCollection(moveIDs(c.ids, from, to)), move, nil
}

// RemapFocus follows a tracked index (a selected thumbnail, a focused row)
// through a move. The moved item keeps its focus; items the move crossed
// shift one step against the direction of the move.
func RemapFocus(focus int, m Move) int {
	switch {
	case focus == m.From:
		return m.To
	case m.From < focus && focus <= m.To:
		return focus - 1
	case m.To <= focus && focus < m.From:
		return focus + 1
	default:
		return focus
	}
}

// RemapFocusAfterRemove keeps a tracked index valid after the element at
// removed is deleted from a sequence that now has newLen elements.
func RemapFocusAfterRemove(focus, removed, newLen int) int {
	if newLen <= 0 {
		return 0
	}
	switch {
	case focus == removed:
		focus = max(0, removed-1)
	case focus > removed:
		focus--
	}
	return min(focus, newLen-1)
}
