package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID is an opaque post identifier. Stores key posts either by number or by
// string, so decoding accepts both and keeps the canonical text form.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Post statuses
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPosted    = "posted"
)

// Post is a scheduled social-media post. Everything but ID, DisplayOrder and
// CreatedAt is payload and is carried through reordering untouched.
type Post struct {
	ID           ID         `json:"id"`
	AccountID    string     `json:"accountId,omitempty"`
	Username     string     `json:"username"`
	Caption      string     `json:"caption"`
	Image        string     `json:"image,omitempty"`
	Images       []string   `json:"images,omitempty"`
	Platform     string     `json:"platform"`
	Platforms    []string   `json:"platforms,omitempty"`
	Status       string     `json:"status"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
	Likes        int        `json:"likes"`
	Comments     int        `json:"comments"`
	DisplayOrder *int       `json:"displayOrder"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Media is an image reference attached to a post
type Media struct {
	ID        string    `json:"id"`
	PostID    ID        `json:"post_id"`
	URL       string    `json:"url"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is a social account the dashboard can switch between
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	URL         string `json:"url,omitempty"`
}

// Platform is a network posts can be scheduled for
type Platform struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// ReorderRequest is the body of the reorder endpoint
type ReorderRequest struct {
	OrderedIDs []ID `json:"orderedIds"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// IntPtr is a small helper for optional ranks
func IntPtr(i int) *int {
	return &i
}
