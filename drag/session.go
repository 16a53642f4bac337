// Package drag tracks a single drag gesture over a set of sortable items and
// turns it into at most one (active, over) drop.
package drag

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"postboard/models"
)

var (
	ErrNotIdle      = errors.New("drag already in progress")
	ErrNotDroppable = errors.New("item is not draggable")
)

type State int

const (
	Idle State = iota
	Dragging
	Dropped
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Source is the input device producing move intents
type Source int

const (
	SourcePointer Source = iota
	SourceKeyboard
)

func (s Source) String() string {
	if s == SourceKeyboard {
		return "keyboard"
	}
	return "pointer"
}

// MoveIntent is the single move event both producers emit
type MoveIntent struct {
	Source   Source
	Position Point
}

// DropResult is what a finished drag hands to the reorder step
type DropResult struct {
	ActiveID models.ID
	OverID   models.ID
}

// Session is the drag state machine. It is not safe for concurrent use; the
// owning view serializes access.
type Session struct {
	droppables []Droppable
	surface    Rect

	state    State
	last     State
	source   Source
	activeID models.ID
	overID   models.ID
	grab     Point
	position Point
}

func NewSession() *Session {
	return &Session{}
}

// SetDroppables replaces the sortable targets. Called whenever the layout
// changes; an active drag keeps going against the new rects.
func (s *Session) SetDroppables(d []Droppable) {
	s.droppables = append([]Droppable(nil), d...)
}

func (s *Session) Droppables() []Droppable {
	return append([]Droppable(nil), s.droppables...)
}

// SetSurface bounds the drag. A zero rect means unbounded.
func (s *Session) SetSurface(r Rect) {
	s.surface = r
}

func (s *Session) State() State {
	return s.state
}

// LastOutcome reports how the previous drag ended (Dropped or Cancelled), or
// Idle if none has finished yet
func (s *Session) LastOutcome() State {
	return s.last
}

// ActiveID returns the dragged item, empty when idle
func (s *Session) ActiveID() models.ID {
	return s.activeID
}

func (s *Session) OverID() models.ID {
	return s.overID
}

func (s *Session) Source() Source {
	return s.source
}

func (s *Session) rectOf(id models.ID) (Rect, bool) {
	for _, d := range s.droppables {
		if d.ID == id {
			return d.Rect, true
		}
	}
	return Rect{}, false
}

// Start begins dragging id from position at
func (s *Session) Start(id models.ID, source Source, at Point) error {
	if s.state == Dragging {
		return ErrNotIdle
	}
	rect, ok := s.rectOf(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotDroppable, id)
	}

	s.state = Dragging
	s.source = source
	s.activeID = id
	s.grab = Point{X: at.X - rect.X, Y: at.Y - rect.Y}
	s.position = at
	s.overID, _ = ClosestCenter(at, s.droppables)
	return nil
}

// Move updates the drag position and the current drop target. It reports
// whether the session is still dragging afterwards.
func (s *Session) Move(intent MoveIntent) bool {
	if s.state != Dragging {
		return false
	}
	if !s.surface.IsZero() && !s.surface.Contains(intent.Position) {
		log.WithFields(log.Fields{
			"active": s.activeID,
			"x":      intent.Position.X,
			"y":      intent.Position.Y,
		}).Debug("Drag left the surface")
		s.Cancel()
		return false
	}

	s.source = intent.Source
	s.position = intent.Position
	s.overID, _ = ClosestCenter(intent.Position, s.droppables)
	return true
}

// Drop ends the drag. ok is false when nothing should be reordered: no drag
// was running, there was no target, or the item was dropped on itself.
func (s *Session) Drop() (DropResult, bool) {
	if s.state != Dragging {
		return DropResult{}, false
	}
	result := DropResult{ActiveID: s.activeID, OverID: s.overID}
	s.finish(Dropped)
	return result, result.OverID != "" && result.OverID != result.ActiveID
}

// Cancel abandons the drag without emitting anything
func (s *Session) Cancel() {
	if s.state != Dragging {
		return
	}
	s.finish(Cancelled)
}

func (s *Session) finish(outcome State) {
	s.last = outcome
	s.state = Idle
	s.activeID = ""
	s.overID = ""
	s.grab = Point{}
	s.position = Point{}
}

// Overlay is where the floating copy of the active item is drawn
func (s *Session) Overlay() (Rect, bool) {
	if s.state != Dragging {
		return Rect{}, false
	}
	rect, ok := s.rectOf(s.activeID)
	if !ok {
		return Rect{}, false
	}
	return Rect{
		X:      s.position.X - s.grab.X,
		Y:      s.position.Y - s.grab.Y,
		Width:  rect.Width,
		Height: rect.Height,
	}, true
}

// Position is the current pointer (or keyboard cursor) position
func (s *Session) Position() Point {
	return s.position
}
