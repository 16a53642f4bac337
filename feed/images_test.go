package feed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/feed"
	"postboard/models"
	"postboard/ordering"
)

type updater struct {
	got models.Post
	err error
}

func (u *updater) UpdatePost(_ context.Context, post models.Post) (models.Post, error) {
	if u.err != nil {
		return models.Post{}, u.err
	}
	u.got = post
	return models.Post{ID: post.ID, Caption: "kept", Images: post.Images, Image: post.Image}, nil
}

func newEditor(t *testing.T, images ...string) *feed.ImageEditor {
	t.Helper()
	e, err := feed.NewImageEditor(models.Post{ID: "7", Images: images})
	require.NoError(t, err)
	return e
}

func TestImageDrag(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		selected int
		images   []string
		want     int
	}{
		{name: "forward moves selection along", from: 0, to: 2, selected: 0, images: []string{"b", "c", "a"}, want: 2},
		{name: "backward moves selection along", from: 3, to: 1, selected: 3, images: []string{"a", "d", "b", "c"}, want: 1},
		{name: "crossed image shifts back", from: 0, to: 2, selected: 2, images: []string{"b", "c", "a"}, want: 1},
		{name: "crossed image shifts forward", from: 3, to: 0, selected: 1, images: []string{"d", "a", "b", "c"}, want: 2},
		{name: "untouched image stays", from: 0, to: 1, selected: 3, images: []string{"b", "a", "c", "d"}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEditor(t, "a", "b", "c", "d")
			if len(tt.images) == 3 {
				require.NoError(t, e.Remove(3))
			}
			require.NoError(t, e.Select(tt.selected))

			moved, err := e.DragTo(tt.from, tt.to)
			require.NoError(t, err)
			assert.True(t, moved)
			assert.Equal(t, tt.images, e.Images())
			assert.Equal(t, tt.want, e.Selected())
		})
	}
}

func TestImageDragOntoItself(t *testing.T) {
	e := newEditor(t, "a", "b", "c")
	require.NoError(t, e.Select(1))

	moved, err := e.DragTo(1, 1)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, []string{"a", "b", "c"}, e.Images())
	assert.Equal(t, 1, e.Selected())

	_, err = e.DragTo(0, 5)
	assert.ErrorIs(t, err, feed.ErrImageIndex)
}

func TestImageMove(t *testing.T) {
	e := newEditor(t, "a", "b", "c", "d")
	require.NoError(t, e.Select(2))

	require.NoError(t, e.Move(3, 0))
	assert.Equal(t, []string{"d", "a", "b", "c"}, e.Images())
	assert.Equal(t, 3, e.Selected())

	require.NoError(t, e.Move(1, 1))
	assert.Equal(t, []string{"d", "a", "b", "c"}, e.Images())

	assert.ErrorIs(t, e.Move(-1, 0), feed.ErrImageIndex)
	assert.ErrorIs(t, e.Move(0, 4), feed.ErrImageIndex)
}

func TestImageRemove(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		remove   int
		want     int
	}{
		{name: "selected removed falls back one", selected: 2, remove: 2, want: 1},
		{name: "first removed while selected", selected: 0, remove: 0, want: 0},
		{name: "earlier image removed", selected: 3, remove: 1, want: 2},
		{name: "later image removed", selected: 1, remove: 3, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEditor(t, "a", "b", "c", "d")
			require.NoError(t, e.Select(tt.selected))
			require.NoError(t, e.Remove(tt.remove))
			assert.Len(t, e.Images(), 3)
			assert.Equal(t, tt.want, e.Selected())
		})
	}

	e := newEditor(t, "a")
	require.NoError(t, e.Remove(0))
	assert.Empty(t, e.Images())
	assert.Equal(t, 0, e.Selected())
	assert.ErrorIs(t, e.Remove(0), feed.ErrImageIndex)
}

func TestImageAdd(t *testing.T) {
	e := newEditor(t, "a")
	require.NoError(t, e.Add("b"))
	assert.Equal(t, []string{"a", "b"}, e.Images())
	assert.Equal(t, 1, e.Selected())

	assert.ErrorIs(t, e.Add("a"), ordering.ErrDuplicateID)

	for i := 0; i < feed.MaxImages-2; i++ {
		require.NoError(t, e.Add(string(rune('c'+i))))
	}
	assert.ErrorIs(t, e.Add("z"), feed.ErrTooManyImages)

	_, err := feed.NewImageEditor(models.Post{Images: make([]string, feed.MaxImages+1)})
	assert.ErrorIs(t, err, feed.ErrTooManyImages)
}

func TestImageSave(t *testing.T) {
	e := newEditor(t, "a", "b", "c")
	_, err := e.DragTo(2, 0)
	require.NoError(t, err)

	u := &updater{}
	saved, err := e.Save(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, models.ID("7"), u.got.ID)
	assert.Equal(t, []string{"c", "a", "b"}, u.got.Images)
	assert.Equal(t, "c", u.got.Image)
	assert.Equal(t, "kept", saved.Caption)

	_, err = e.Save(context.Background(), &updater{err: errors.New("boom")})
	assert.ErrorContains(t, err, "failed to save images of post 7")

	empty := newEditor(t)
	_, err = empty.Save(context.Background(), u)
	assert.ErrorIs(t, err, feed.ErrNoImages)
}
