package drag

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"postboard/models"
)

type Key int

const (
	KeyNone Key = iota
	KeySpace
	KeyEnter
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// ParseKey maps key names as sent by terminals and browsers
func ParseKey(name string) Key {
	switch strings.ToLower(name) {
	case " ", "space":
		return KeySpace
	case "enter", "return":
		return KeyEnter
	case "escape", "esc":
		return KeyEscape
	case "arrowup", "up":
		return KeyUp
	case "arrowdown", "down":
		return KeyDown
	case "arrowleft", "left":
		return KeyLeft
	case "arrowright", "right":
		return KeyRight
	}
	return KeyNone
}

// Keyboard drives a Session from key presses. While idle the arrows move
// focus between items; while dragging they step the drag to the next item.
type Keyboard struct {
	session *Session
	focused models.ID
}

func NewKeyboard(s *Session) *Keyboard {
	return &Keyboard{session: s}
}

func (k *Keyboard) Focus(id models.ID) {
	k.focused = id
}

func (k *Keyboard) Focused() models.ID {
	return k.focused
}

// Press handles one key. It returns the drop when the key committed one that
// should reorder.
func (k *Keyboard) Press(key Key) (DropResult, bool) {
	s := k.session
	switch key {
	case KeySpace, KeyEnter:
		if s.State() == Dragging {
			result, ok := s.Drop()
			k.focused = result.ActiveID
			return result, ok
		}
		var at Point
		if rect, found := s.rectOf(k.focused); found {
			at = rect.Center()
		}
		if err := s.Start(k.focused, SourceKeyboard, at); err != nil {
			log.WithFields(log.Fields{"id": k.focused, "error": err}).Debug("Could not start drag")
		}
	case KeyEscape:
		s.Cancel()
	case KeyUp, KeyDown, KeyLeft, KeyRight:
		if s.State() == Dragging {
			if next, found := k.step(s.Position(), key); found {
				s.Move(MoveIntent{Source: SourceKeyboard, Position: next.Rect.Center()})
			}
			return DropResult{}, false
		}
		if rect, found := s.rectOf(k.focused); found {
			if next, ok := k.step(rect.Center(), key); ok {
				k.focused = next.ID
			}
		}
	}
	return DropResult{}, false
}

// step finds the nearest droppable whose center lies strictly in the key's
// direction from p
func (k *Keyboard) step(p Point, key Key) (Droppable, bool) {
	var candidates []Droppable
	for _, d := range k.session.droppables {
		c := d.Rect.Center()
		var ahead bool
		switch key {
		case KeyUp:
			ahead = c.Y < p.Y
		case KeyDown:
			ahead = c.Y > p.Y
		case KeyLeft:
			ahead = c.X < p.X
		case KeyRight:
			ahead = c.X > p.X
		}
		if ahead {
			candidates = append(candidates, d)
		}
	}

	id, ok := ClosestCenter(p, candidates)
	if !ok {
		return Droppable{}, false
	}
	for _, d := range candidates {
		if d.ID == id {
			return d, true
		}
	}
	return Droppable{}, false
}
