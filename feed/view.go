// Package feed is the reorderable post feed: it owns the order on screen,
// turns finished drags into reorders and hands each new order to the
// synchronizer.
package feed

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"postboard/drag"
	"postboard/models"
	"postboard/ordering"
	"postboard/persist"
)

// Submitter is the part of persist.Synchronizer the view needs
type Submitter interface {
	Submit(ids []models.ID) *persist.Request
}

type Options struct {
	// Strict panics on drops that reference posts outside the feed. Meant for
	// development builds; otherwise such drops are logged and ignored.
	Strict bool
}

// View is the feed session. All methods are safe for concurrent use and run
// to completion before returning; only persistence happens in the background.
type View struct {
	mu sync.Mutex

	collection ordering.Collection
	posts      map[models.ID]models.Post
	layout     Layout
	session    *drag.Session
	keyboard   *drag.Keyboard
	submitter  Submitter
	strict     bool
}

func NewView(posts []models.Post, layout Layout, submitter Submitter, opts Options) (*View, error) {
	collection, err := ordering.Initialize(posts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feed: %w", err)
	}

	byID := make(map[models.ID]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	session := drag.NewSession()
	v := &View{
		collection: collection,
		posts:      byID,
		layout:     layout,
		session:    session,
		keyboard:   drag.NewKeyboard(session),
		submitter:  submitter,
		strict:     opts.Strict,
	}
	v.refresh()
	return v, nil
}

// refresh recomputes drop targets after the order or the layout changed
func (v *View) refresh() {
	cells := v.layout.Cells(v.collection.IDs(), v.session.ActiveID())
	v.session.SetDroppables(droppables(cells))
	v.session.SetSurface(v.layout.Bounds(v.collection.Len()))
}

// Posts returns the full posts in display order
func (v *View) Posts() []models.Post {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.Post, 0, v.collection.Len())
	for _, id := range v.collection.IDs() {
		out = append(out, v.posts[id])
	}
	return out
}

func (v *View) IDs() []models.ID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.collection.IDs()
}

// ActiveID is the post being dragged, if any
func (v *View) ActiveID() (models.ID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.session.ActiveID()
	return id, id != ""
}

func (v *View) Mode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layout.Mode()
}

// SetLayout switches presentation. The order is not touched.
func (v *View) SetLayout(layout Layout) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.layout = layout
	v.refresh()
}

// SetMode switches to the stock layout for mode
func (v *View) SetMode(mode Mode) {
	v.SetLayout(DefaultLayout(mode))
}

// Cells is what the renderer draws, slot included
func (v *View) Cells() []Cell {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layout.Cells(v.collection.IDs(), v.session.ActiveID())
}

func (v *View) Overlay() (drag.Rect, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Overlay()
}

// PointerDown starts a drag when p is on an item's drag handle
func (v *View) PointerDown(p drag.Point) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, c := range v.layout.Cells(v.collection.IDs(), "") {
		if c.Slot || !c.Handle.Contains(p) {
			continue
		}
		if err := v.session.Start(c.ID, drag.SourcePointer, p); err != nil {
			log.WithFields(log.Fields{"id": c.ID, "error": err}).Debug("Could not start drag")
			return false
		}
		v.keyboard.Focus(c.ID)
		return true
	}
	return false
}

func (v *View) PointerMove(p drag.Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session.Move(drag.MoveIntent{Source: drag.SourcePointer, Position: p})
}

// PointerUp finishes a pointer drag. The returned request is nil when the
// drop did not change the order.
func (v *View) PointerUp() *persist.Request {
	v.mu.Lock()
	defer v.mu.Unlock()

	result, ok := v.session.Drop()
	if !ok {
		return nil
	}
	return v.drop(result)
}

// Focus moves keyboard focus to id
func (v *View) Focus(id models.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keyboard.Focus(id)
}

// Key feeds one key press to the keyboard sensor
func (v *View) Key(k drag.Key) *persist.Request {
	v.mu.Lock()
	defer v.mu.Unlock()

	result, ok := v.keyboard.Press(k)
	if !ok {
		return nil
	}
	return v.drop(result)
}

// Cancel abandons a running drag
func (v *View) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session.Cancel()
}

// drop applies a finished drag and sends the new order off. Caller holds mu.
func (v *View) drop(result drag.DropResult) *persist.Request {
	next, move, err := ordering.Apply(v.collection, result.ActiveID, result.OverID)
	if err != nil {
		if v.strict {
			panic(err)
		}
		log.WithFields(log.Fields{
			"active": result.ActiveID,
			"over":   result.OverID,
			"error":  err,
		}).Warn("Ignoring invalid drop")
		return nil
	}
	if next.Equal(v.collection) {
		return nil
	}

	v.collection = next
	ids := next.IDs()
	for _, p := range ordering.AssignRanks(v.postsLocked(), ids) {
		v.posts[p.ID] = p
	}
	v.refresh()

	log.WithFields(log.Fields{
		"active": result.ActiveID,
		"from":   move.From,
		"to":     move.To,
	}).Debug("Reordered feed")
	return v.submitter.Submit(ids)
}

func (v *View) postsLocked() []models.Post {
	out := make([]models.Post, 0, len(v.posts))
	for _, id := range v.collection.IDs() {
		out = append(out, v.posts[id])
	}
	return out
}

// Remove takes a deleted post out of the feed. The remaining ranks are left
// as they are.
func (v *View) Remove(id models.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.collection.Contains(id) {
		return false
	}
	if v.session.ActiveID() == id {
		v.session.Cancel()
	}
	if v.keyboard.Focused() == id {
		v.keyboard.Focus("")
	}
	v.collection = v.collection.Without(id)
	delete(v.posts, id)
	v.refresh()
	return true
}

// Prepend shows a newly created post first, or refreshes it in place when it
// is already in the feed
func (v *View) Prepend(post models.Post) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.posts[post.ID] = post
	v.collection = v.collection.Prepend(post.ID)
	v.refresh()
}

// DragTo runs a complete pointer drag of activeID onto overID, the way a user
// would: press on the handle, move to the target's center, release.
func (v *View) DragTo(activeID, overID models.ID) (*persist.Request, error) {
	handle, target, err := v.dragPoints(activeID, overID)
	if err != nil {
		return nil, err
	}
	if !v.PointerDown(handle) {
		return nil, fmt.Errorf("could not start dragging %s", activeID)
	}
	v.PointerMove(target)
	return v.PointerUp(), nil
}

// KeyboardDragTo moves activeID onto overID with the keyboard sensor,
// pressing arrows toward the target until it is the drop target
func (v *View) KeyboardDragTo(activeID, overID models.ID) (*persist.Request, error) {
	_, target, err := v.dragPoints(activeID, overID)
	if err != nil {
		return nil, err
	}

	v.Focus(activeID)
	v.Key(drag.KeySpace)
	for i := 0; i < 4*len(v.IDs()); i++ {
		key, done := v.nextKey(overID, target)
		if done {
			break
		}
		v.Key(key)
	}
	return v.Key(drag.KeyEnter), nil
}

func (v *View) nextKey(overID models.ID, target drag.Point) (drag.Key, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session.State() != drag.Dragging || v.session.OverID() == overID {
		return drag.KeyNone, true
	}
	at := v.session.Position()
	switch {
	case target.Y > at.Y:
		return drag.KeyDown, false
	case target.Y < at.Y:
		return drag.KeyUp, false
	case target.X > at.X:
		return drag.KeyRight, false
	default:
		return drag.KeyLeft, false
	}
}

func (v *View) dragPoints(activeID, overID models.ID) (drag.Point, drag.Point, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var handle, target drag.Point
	var foundActive, foundOver bool
	for _, c := range v.layout.Cells(v.collection.IDs(), "") {
		if c.Slot {
			continue
		}
		if c.ID == activeID {
			handle, foundActive = c.Handle.Center(), true
		}
		if c.ID == overID {
			target, foundOver = c.Rect.Center(), true
		}
	}
	if !foundActive {
		return handle, target, &ordering.InvalidReorderError{ID: activeID, Role: "active"}
	}
	if !foundOver {
		return handle, target, &ordering.InvalidReorderError{ID: overID, Role: "over"}
	}
	return handle, target, nil
}
