package feed

import (
	"fmt"

	"postboard/drag"
	"postboard/models"
)

type Mode string

const (
	ModeList Mode = "list"
	ModeGrid Mode = "grid"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeList, "":
		return ModeList, nil
	case ModeGrid:
		return ModeGrid, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// DefaultLayout returns the stock layout for mode
func DefaultLayout(mode Mode) Layout {
	if mode == ModeGrid {
		return DefaultGridLayout()
	}
	return DefaultListLayout()
}

const activeOpacity = 0.5

// Cell is one rendered position. The insertion slot has no ID and no index.
type Cell struct {
	ID      models.ID
	Index   int
	Rect    drag.Rect
	Handle  drag.Rect
	Opacity float64
	Active  bool
	Slot    bool
}

// Layout places an ordered sequence on screen. Layouts hold no ordering state.
type Layout interface {
	Mode() Mode
	Cells(ids []models.ID, activeID models.ID) []Cell
	Bounds(n int) drag.Rect
}

func opacity(id, activeID models.ID) float64 {
	if activeID != "" && id == activeID {
		return activeOpacity
	}
	return 1
}

// ListLayout stacks full-width items. The whole item is the drag handle.
type ListLayout struct {
	Width      float64
	ItemHeight float64
	Gap        float64
}

func DefaultListLayout() ListLayout {
	return ListLayout{Width: 600, ItemHeight: 120, Gap: 16}
}

func (l ListLayout) Mode() Mode {
	return ModeList
}

func (l ListLayout) Cells(ids []models.ID, activeID models.ID) []Cell {
	cells := make([]Cell, len(ids))
	for i, id := range ids {
		rect := drag.Rect{
			X:      0,
			Y:      float64(i) * (l.ItemHeight + l.Gap),
			Width:  l.Width,
			Height: l.ItemHeight,
		}
		cells[i] = Cell{
			ID:      id,
			Index:   i,
			Rect:    rect,
			Handle:  rect,
			Opacity: opacity(id, activeID),
			Active:  id == activeID && activeID != "",
		}
	}
	return cells
}

func (l ListLayout) Bounds(n int) drag.Rect {
	if n == 0 {
		return drag.Rect{Width: l.Width}
	}
	return drag.Rect{
		Width:  l.Width,
		Height: float64(n)*l.ItemHeight + float64(n-1)*l.Gap,
	}
}

// GridLayout lays items out in square cells, row by row. Dragging starts only
// from a grab handle in the top right corner, leaving the rest of the cell to
// edit and delete actions. With InsertSlot the first cell is a fixed "new
// post" tile outside the sortable set.
type GridLayout struct {
	Columns    int
	CellSize   float64
	Gap        float64
	HandleSize float64
	InsertSlot bool
}

func DefaultGridLayout() GridLayout {
	return GridLayout{Columns: 3, CellSize: 200, Gap: 4, HandleSize: 32, InsertSlot: true}
}

func (g GridLayout) Mode() Mode {
	return ModeGrid
}

func (g GridLayout) columns() int {
	if g.Columns < 1 {
		return 1
	}
	return g.Columns
}

func (g GridLayout) cellRect(pos int) drag.Rect {
	cols := g.columns()
	row, col := pos/cols, pos%cols
	return drag.Rect{
		X:      float64(col) * (g.CellSize + g.Gap),
		Y:      float64(row) * (g.CellSize + g.Gap),
		Width:  g.CellSize,
		Height: g.CellSize,
	}
}

func (g GridLayout) offset() int {
	if g.InsertSlot {
		return 1
	}
	return 0
}

func (g GridLayout) Cells(ids []models.ID, activeID models.ID) []Cell {
	cells := make([]Cell, 0, len(ids)+g.offset())
	if g.InsertSlot {
		cells = append(cells, Cell{Index: -1, Rect: g.cellRect(0), Opacity: 1, Slot: true})
	}
	for i, id := range ids {
		rect := g.cellRect(i + g.offset())
		handle := drag.Rect{
			X:      rect.X + rect.Width - g.HandleSize,
			Y:      rect.Y,
			Width:  g.HandleSize,
			Height: g.HandleSize,
		}
		cells = append(cells, Cell{
			ID:      id,
			Index:   i,
			Rect:    rect,
			Handle:  handle,
			Opacity: opacity(id, activeID),
			Active:  id == activeID && activeID != "",
		})
	}
	return cells
}

func (g GridLayout) Bounds(n int) drag.Rect {
	total := n + g.offset()
	cols := g.columns()
	rows := (total + cols - 1) / cols
	if rows == 0 {
		rows = 1
	}
	return drag.Rect{
		Width:  float64(cols)*g.CellSize + float64(cols-1)*g.Gap,
		Height: float64(rows)*g.CellSize + float64(rows-1)*g.Gap,
	}
}

// droppables returns the sortable members of cells, leaving out the slot
func droppables(cells []Cell) []drag.Droppable {
	out := make([]drag.Droppable, 0, len(cells))
	for _, c := range cells {
		if c.Slot {
			continue
		}
		out = append(out, drag.Droppable{ID: c.ID, Rect: c.Rect})
	}
	return out
}
