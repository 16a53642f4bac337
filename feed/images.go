package feed

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"postboard/drag"
	"postboard/models"
	"postboard/ordering"
)

// MaxImages is how many images one post can carry
const MaxImages = 10

var (
	ErrTooManyImages = fmt.Errorf("a post holds at most %d images", MaxImages)
	ErrNoImages      = errors.New("a post needs at least one image")
	ErrImageIndex    = errors.New("image index out of range")
)

// PostUpdater saves an edited post. client.Client satisfies it.
type PostUpdater interface {
	UpdatePost(ctx context.Context, post models.Post) (models.Post, error)
}

const (
	thumbSize = 80
	thumbGap  = 8
)

// ImageEditor edits the image strip of one post. Thumbnails sit in a single
// row and are reordered by dragging; the selected image follows every move
// and delete. Image URLs are the sortable ids, so a post cannot hold the
// same URL twice.
type ImageEditor struct {
	post     models.Post
	images   ordering.Collection
	selected int
	session  *drag.Session
}

func NewImageEditor(post models.Post) (*ImageEditor, error) {
	if len(post.Images) > MaxImages {
		return nil, ErrTooManyImages
	}
	images, err := ordering.New(imageIDs(post.Images))
	if err != nil {
		return nil, fmt.Errorf("failed to load images of post %s: %w", post.ID, err)
	}
	e := &ImageEditor{post: post, images: images, session: drag.NewSession()}
	e.refresh()
	return e, nil
}

func imageIDs(urls []string) []models.ID {
	ids := make([]models.ID, len(urls))
	for i, u := range urls {
		ids[i] = models.ID(u)
	}
	return ids
}

func (e *ImageEditor) refresh() {
	ids := e.images.IDs()
	droppables := make([]drag.Droppable, len(ids))
	for i, id := range ids {
		droppables[i] = drag.Droppable{ID: id, Rect: e.thumb(i)}
	}
	e.session.SetDroppables(droppables)
	n := float64(len(ids))
	e.session.SetSurface(drag.Rect{Width: n*thumbSize + max(n-1, 0)*thumbGap, Height: thumbSize})
}

func (e *ImageEditor) thumb(i int) drag.Rect {
	return drag.Rect{X: float64(i) * (thumbSize + thumbGap), Width: thumbSize, Height: thumbSize}
}

// Images returns the URLs in display order
func (e *ImageEditor) Images() []string {
	ids := e.images.IDs()
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = id.String()
	}
	return urls
}

// Selected is the index of the image shown large
func (e *ImageEditor) Selected() int {
	return e.selected
}

func (e *ImageEditor) Select(i int) error {
	if i < 0 || i >= e.images.Len() {
		return ErrImageIndex
	}
	e.selected = i
	return nil
}

// Add appends url and selects it
func (e *ImageEditor) Add(url string) error {
	if e.images.Len() >= MaxImages {
		return ErrTooManyImages
	}
	next, err := ordering.New(append(e.images.IDs(), models.ID(url)))
	if err != nil {
		return err
	}
	e.images = next
	e.selected = next.Len() - 1
	e.refresh()
	return nil
}

// Remove deletes the image at i
func (e *ImageEditor) Remove(i int) error {
	if i < 0 || i >= e.images.Len() {
		return ErrImageIndex
	}
	e.images = e.images.Without(e.images.At(i))
	e.selected = ordering.RemapFocusAfterRemove(e.selected, i, e.images.Len())
	e.refresh()
	return nil
}

// Move puts the image at from into position to, the way a drag would
func (e *ImageEditor) Move(from, to int) error {
	if from < 0 || from >= e.images.Len() || to < 0 || to >= e.images.Len() {
		return ErrImageIndex
	}
	next, err := e.images.MoveItem(e.images.At(from), to)
	if err != nil {
		return err
	}
	if next.Equal(e.images) {
		return nil
	}
	e.images = next
	e.selected = ordering.RemapFocus(e.selected, ordering.Move{From: from, To: to})
	e.refresh()
	return nil
}

// DragTo drags the thumbnail at from onto the thumbnail at to. It reports
// whether the order changed.
func (e *ImageEditor) DragTo(from, to int) (bool, error) {
	if from < 0 || from >= e.images.Len() || to < 0 || to >= e.images.Len() {
		return false, ErrImageIndex
	}
	if err := e.session.Start(e.images.At(from), drag.SourcePointer, e.thumb(from).Center()); err != nil {
		return false, err
	}
	e.session.Move(drag.MoveIntent{Source: drag.SourcePointer, Position: e.thumb(to).Center()})
	result, ok := e.session.Drop()
	if !ok {
		return false, nil
	}

	next, move, err := ordering.Apply(e.images, result.ActiveID, result.OverID)
	if err != nil {
		return false, err
	}
	e.images = next
	e.selected = ordering.RemapFocus(e.selected, move)
	e.refresh()

	log.WithFields(log.Fields{
		"post": e.post.ID,
		"from": move.From,
		"to":   move.To,
	}).Debug("Reordered images")
	return true, nil
}

// Save writes the image order back to the post. The first image becomes the
// post's cover image.
func (e *ImageEditor) Save(ctx context.Context, updater PostUpdater) (models.Post, error) {
	images := e.Images()
	if len(images) == 0 {
		return models.Post{}, ErrNoImages
	}
	update := models.Post{ID: e.post.ID, Images: images, Image: images[0]}
	saved, err := updater.UpdatePost(ctx, update)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to save images of post %s: %w", e.post.ID, err)
	}
	e.post = saved
	return saved, nil
}
