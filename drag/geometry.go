package drag

import (
	"math"

	"postboard/models"
)

type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned region, origin at the top left
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

func (r Rect) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Droppable is a sortable item's region as laid out by the renderer
type Droppable struct {
	ID   models.ID
	Rect Rect
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// ClosestCenter returns the candidate whose center is nearest p. The first
// candidate wins a tie.
func ClosestCenter(p Point, candidates []Droppable) (models.ID, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	best := 0
	bestDist := distance(p, candidates[0].Rect.Center())
	for i := 1; i < len(candidates); i++ {
		if d := distance(p, candidates[i].Rect.Center()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return candidates[best].ID, true
}
