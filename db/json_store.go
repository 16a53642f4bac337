package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"postboard/models"
	"postboard/ordering"
)

const (
	postsFile    = "posts.json"
	mediaFile    = "media.json"
	profilesFile = "profiles.json"
)

// JSONStore keeps each collection in a JSON file under one directory. An
// advisory lock file lets several processes share the directory: writers
// take it exclusively, readers shared.
type JSONStore struct {
	dir  string
	mu   sync.RWMutex
	lock *flock.Flock
}

func OpenJSON(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	s := &JSONStore{dir: dir, lock: flock.New(filepath.Join(dir, ".postboard.lock"))}

	for _, name := range []string{postsFile, mediaFile, profilesFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", name, err)
			}
		}
	}
	return s, nil
}

func (s *JSONStore) Close() error {
	return s.lock.Close()
}

func (s *JSONStore) read(ctx context.Context, fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.lock.TryRLockContext(ctx, 20*time.Millisecond); err != nil {
		return fmt.Errorf("failed to lock data dir: %w", err)
	}
	defer s.lock.Unlock()
	return fn()
}

func (s *JSONStore) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lock.TryLockContext(ctx, 20*time.Millisecond); err != nil {
		return fmt.Errorf("failed to lock data dir: %w", err)
	}
	defer s.lock.Unlock()
	return fn()
}

func (s *JSONStore) load(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (s *JSONStore) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return os.Rename(tmp, path)
}

// nextID continues the numeric id sequence of existing records
func nextID(ids []string) string {
	highest := 0
	for _, id := range ids {
		if n, err := strconv.Atoi(id); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

func (s *JSONStore) loadPosts() ([]models.Post, error) {
	posts := []models.Post{}
	return posts, s.load(postsFile, &posts)
}

func (s *JSONStore) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	var posts []models.Post
	err := s.read(ctx, func() error {
		all, err := s.loadPosts()
		posts = all
		return err
	})
	if err != nil {
		return nil, err
	}

	posts = lo.Filter(posts, func(p models.Post, _ int) bool {
		return (filter.AccountID == "" || p.AccountID == filter.AccountID) &&
			(filter.Platform == "" || p.Platform == filter.Platform) &&
			(filter.Status == "" || p.Status == filter.Status)
	})
	ordering.SortPosts(posts)
	return posts, nil
}

func (s *JSONStore) GetPost(ctx context.Context, id models.ID) (models.Post, error) {
	var post models.Post
	err := s.read(ctx, func() error {
		posts, err := s.loadPosts()
		if err != nil {
			return err
		}
		found, ok := lo.Find(posts, func(p models.Post) bool { return p.ID == id })
		if !ok {
			return fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		post = found
		return nil
	})
	return post, err
}

// CreatePost adds the post in front of the file, the way new posts show up
// first in the feed
func (s *JSONStore) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	post, err := preparePost(post)
	if err != nil {
		return models.Post{}, err
	}

	err = s.write(ctx, func() error {
		posts, err := s.loadPosts()
		if err != nil {
			return err
		}
		if post.ID == "" {
			post.ID = models.ID(nextID(lo.Map(posts, func(p models.Post, _ int) string { return p.ID.String() })))
		} else if lo.ContainsBy(posts, func(p models.Post) bool { return p.ID == post.ID }) {
			return fmt.Errorf("post %s: %w", post.ID, ErrConflict)
		}
		post.CreatedAt = now()
		post.UpdatedAt = post.CreatedAt
		return s.save(postsFile, append([]models.Post{post}, posts...))
	})
	if err != nil {
		return models.Post{}, err
	}

	log.WithFields(log.Fields{"id": post.ID, "platform": post.Platform}).Info("Created post")
	return post, nil
}

func (s *JSONStore) UpdatePost(ctx context.Context, update models.Post) (models.Post, error) {
	if update.ID == "" {
		return models.Post{}, invalid("post id is required")
	}

	var updated models.Post
	err := s.write(ctx, func() error {
		posts, err := s.loadPosts()
		if err != nil {
			return err
		}
		_, i, ok := lo.FindIndexOf(posts, func(p models.Post) bool { return p.ID == update.ID })
		if !ok {
			return fmt.Errorf("post %s: %w", update.ID, ErrNotFound)
		}
		merged, err := mergePost(posts[i], update)
		if err != nil {
			return err
		}
		merged.UpdatedAt = now()
		posts[i] = merged
		updated = merged
		return s.save(postsFile, posts)
	})
	return updated, err
}

func (s *JSONStore) DeletePost(ctx context.Context, id models.ID) error {
	return s.write(ctx, func() error {
		posts, err := s.loadPosts()
		if err != nil {
			return err
		}
		remaining := lo.Reject(posts, func(p models.Post, _ int) bool { return p.ID == id })
		if len(remaining) == len(posts) {
			return fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		if err := s.save(postsFile, remaining); err != nil {
			return err
		}

		media := []models.Media{}
		if err := s.load(mediaFile, &media); err != nil {
			return err
		}
		return s.save(mediaFile, lo.Reject(media, func(m models.Media, _ int) bool { return m.PostID == id }))
	})
}

// SubmitOrder rewrites posts.json once with the new ranks
func (s *JSONStore) SubmitOrder(ctx context.Context, ids []models.ID) (string, error) {
	err := s.write(ctx, func() error {
		posts, err := s.loadPosts()
		if err != nil {
			return err
		}
		return s.save(postsFile, ordering.AssignRanks(posts, ids))
	})
	if err != nil {
		return "", fmt.Errorf("failed to update post order: %w", err)
	}

	log.WithFields(log.Fields{"received": len(ids)}).Info("Post order updated")
	return OrderUpdatedMessage, nil
}

func (s *JSONStore) ListMedia(ctx context.Context, postID models.ID) ([]models.Media, error) {
	media := []models.Media{}
	err := s.read(ctx, func() error {
		return s.load(mediaFile, &media)
	})
	if err != nil {
		return nil, err
	}
	if postID == "" {
		return media, nil
	}
	return lo.Filter(media, func(m models.Media, _ int) bool { return m.PostID == postID }), nil
}

func (s *JSONStore) CreateMedia(ctx context.Context, media models.Media) (models.Media, error) {
	if err := validateMedia(media); err != nil {
		return models.Media{}, err
	}

	err := s.write(ctx, func() error {
		posts, err := s.loadPosts()
		if err != nil {
			return err
		}
		if !lo.ContainsBy(posts, func(p models.Post) bool { return p.ID == media.PostID }) {
			return fmt.Errorf("post %s does not exist: %w", media.PostID, ErrConflict)
		}

		all := []models.Media{}
		if err := s.load(mediaFile, &all); err != nil {
			return err
		}
		if media.ID == "" {
			media.ID = nextID(lo.Map(all, func(m models.Media, _ int) string { return m.ID }))
		}
		media.CreatedAt = now()
		return s.save(mediaFile, append(all, media))
	})
	if err != nil {
		return models.Media{}, err
	}
	return media, nil
}

func (s *JSONStore) DeleteMedia(ctx context.Context, id string) error {
	return s.write(ctx, func() error {
		all := []models.Media{}
		if err := s.load(mediaFile, &all); err != nil {
			return err
		}
		remaining := lo.Reject(all, func(m models.Media, _ int) bool { return m.ID == id })
		if len(remaining) == len(all) {
			return fmt.Errorf("media %s: %w", id, ErrNotFound)
		}
		return s.save(mediaFile, remaining)
	})
}

func (s *JSONStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]models.Profile, error) {
	profiles := []models.Profile{}
	err := s.read(ctx, func() error {
		return s.load(profilesFile, &profiles)
	})
	if err != nil {
		return nil, err
	}
	return lo.Filter(profiles, func(p models.Profile, _ int) bool {
		return (filter.ID == "" || p.ID == filter.ID) &&
			(filter.Username == "" || p.Username == filter.Username)
	}), nil
}

func (s *JSONStore) CreateProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	if err := validateProfile(profile); err != nil {
		return models.Profile{}, err
	}

	err := s.write(ctx, func() error {
		all := []models.Profile{}
		if err := s.load(profilesFile, &all); err != nil {
			return err
		}
		if lo.ContainsBy(all, func(p models.Profile) bool { return p.Username == profile.Username }) {
			return fmt.Errorf("username %s is taken: %w", profile.Username, ErrConflict)
		}
		if profile.ID == "" {
			profile.ID = nextID(lo.Map(all, func(p models.Profile, _ int) string { return p.ID }))
		}
		profile.CreatedAt = now()
		profile.UpdatedAt = profile.CreatedAt
		return s.save(profilesFile, append(all, profile))
	})
	if err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (s *JSONStore) UpdateProfile(ctx context.Context, update models.Profile) (models.Profile, error) {
	if update.ID == "" {
		return models.Profile{}, invalid("profile id is required")
	}

	var updated models.Profile
	err := s.write(ctx, func() error {
		all := []models.Profile{}
		if err := s.load(profilesFile, &all); err != nil {
			return err
		}
		_, i, ok := lo.FindIndexOf(all, func(p models.Profile) bool { return p.ID == update.ID })
		if !ok {
			return fmt.Errorf("profile %s: %w", update.ID, ErrNotFound)
		}
		if update.Username != "" && lo.ContainsBy(all, func(p models.Profile) bool {
			return p.Username == update.Username && p.ID != update.ID
		}) {
			return fmt.Errorf("username %s is taken: %w", update.Username, ErrConflict)
		}
		all[i] = mergeProfile(all[i], update)
		updated = all[i]
		return s.save(profilesFile, all)
	})
	return updated, err
}
