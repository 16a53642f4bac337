package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postboard/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

// OrderUpdatedMessage is returned by SubmitOrder on success
const OrderUpdatedMessage = "Post order updated successfully"

type PostFilter struct {
	AccountID string
	Platform  string
	Status    string
}

type ProfileFilter struct {
	ID       string
	Username string
}

type PostStore interface {
	// ListPosts returns posts ranked first (by rank), then unranked posts
	// newest first
	ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error)
	GetPost(ctx context.Context, id models.ID) (models.Post, error)
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	UpdatePost(ctx context.Context, post models.Post) (models.Post, error)
	DeletePost(ctx context.Context, id models.ID) error
	// SubmitOrder ranks each listed post by its first position in ids. Posts
	// not listed keep their rank and unknown ids are ignored.
	SubmitOrder(ctx context.Context, ids []models.ID) (string, error)
}

type MediaStore interface {
	ListMedia(ctx context.Context, postID models.ID) ([]models.Media, error)
	CreateMedia(ctx context.Context, media models.Media) (models.Media, error)
	DeleteMedia(ctx context.Context, id string) error
}

type ProfileStore interface {
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
	UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
}

type Store interface {
	PostStore
	MediaStore
	ProfileStore
	Close() error
}

// ValidationError is rejected input. It matches ErrInvalid.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// preparePost fills in the defaults a new post gets
func preparePost(post models.Post) (models.Post, error) {
	switch post.Status {
	case "":
		post.Status = models.StatusDraft
	case models.StatusDraft, models.StatusScheduled, models.StatusPosted:
	default:
		return post, invalid("unknown status %q", post.Status)
	}
	if post.Platform == "" && len(post.Platforms) > 0 {
		post.Platform = post.Platforms[0]
	}
	if post.Image == "" && len(post.Images) > 0 {
		post.Image = post.Images[0]
	}
	post.Likes, post.Comments = 0, 0
	return post, nil
}

// mergePost applies an update on top of the stored post. Zero fields in the
// update keep the stored value. The id and creation time never change.
func mergePost(current, update models.Post) (models.Post, error) {
	switch update.Status {
	case "", models.StatusDraft, models.StatusScheduled, models.StatusPosted:
	default:
		return current, invalid("unknown status %q", update.Status)
	}

	merged := current
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&merged.AccountID, update.AccountID)
	setString(&merged.Username, update.Username)
	setString(&merged.Caption, update.Caption)
	setString(&merged.Image, update.Image)
	setString(&merged.Platform, update.Platform)
	setString(&merged.Status, update.Status)
	if update.Images != nil {
		merged.Images = update.Images
	}
	if update.Platforms != nil {
		merged.Platforms = update.Platforms
	}
	if update.ScheduledAt != nil {
		merged.ScheduledAt = update.ScheduledAt
	}
	if update.DisplayOrder != nil {
		merged.DisplayOrder = update.DisplayOrder
	}
	if update.Likes != 0 {
		merged.Likes = update.Likes
	}
	if update.Comments != 0 {
		merged.Comments = update.Comments
	}
	return merged, nil
}

func validateMedia(media models.Media) error {
	if media.PostID == "" {
		return invalid("post_id is required")
	}
	if strings.TrimSpace(media.URL) == "" {
		return invalid("url is required")
	}
	return nil
}

func validateProfile(profile models.Profile) error {
	if strings.TrimSpace(profile.Username) == "" {
		return invalid("username is required")
	}
	return nil
}

// firstPositions maps each id to the index of its first occurrence
func firstPositions(ids []models.ID) map[models.ID]int {
	positions := make(map[models.ID]int, len(ids))
	for i, id := range ids {
		if _, seen := positions[id]; !seen {
			positions[id] = i
		}
	}
	return positions
}
