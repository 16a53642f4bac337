package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"postboard/models"
)

const queryTimeout = 30 * time.Second

var postColumns = []string{
	"id", "account_id", "username", "caption", "image", "images", "platform",
	"platforms", "status", "scheduled_at", "likes", "comments", "display_order",
	"created_at", "updated_at",
}

var mediaColumns = []string{"id", "post_id", "url", "type", "created_at"}

var profileColumns = []string{"id", "username", "full_name", "avatar_url", "created_at", "updated_at"}

// SQLStore keeps posts, media and profiles in SQLite or PostgreSQL. Times are
// stored as unix milliseconds so both databases share one schema.
type SQLStore struct {
	db     *sql.DB
	flavor sqlbuilder.Flavor
}

func NewSQLStore(conn *sql.DB, flavor sqlbuilder.Flavor) *SQLStore {
	return &SQLStore{db: conn, flavor: flavor}
}

// OpenSQLite opens (creating if needed) the database file at path. Run
// Migrate before using it.
func OpenSQLite(path string) (*SQLStore, error) {
	conn, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(conn, sqlbuilder.SQLite), nil
}

func OpenPostgres(cfg PostgresConfig) (*SQLStore, error) {
	conn, err := openPostgres(cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(conn, sqlbuilder.PostgreSQL), nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func decodeList(data string) []string {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil || len(values) == 0 {
		return nil
	}
	return values
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return int64(*i)
}

func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// extended codes keep the primary code in the low byte
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (models.Post, error) {
	var (
		post               models.Post
		id                 string
		images, platforms  string
		scheduledAt, order sql.NullInt64
		createdAt, updated int64
	)
	err := row.Scan(&id, &post.AccountID, &post.Username, &post.Caption, &post.Image,
		&images, &post.Platform, &platforms, &post.Status, &scheduledAt,
		&post.Likes, &post.Comments, &order, &createdAt, &updated)
	if err != nil {
		return models.Post{}, err
	}

	post.ID = models.ID(id)
	post.Images = decodeList(images)
	post.Platforms = decodeList(platforms)
	if scheduledAt.Valid {
		t := fromMillis(scheduledAt.Int64)
		post.ScheduledAt = &t
	}
	if order.Valid {
		post.DisplayOrder = models.IntPtr(int(order.Int64))
	}
	post.CreatedAt = fromMillis(createdAt)
	post.UpdatedAt = fromMillis(updated)
	return post, nil
}

func (s *SQLStore) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sb := s.flavor.NewSelectBuilder()
	sb.Select(postColumns...).From("posts")
	if filter.AccountID != "" {
		sb.Where(sb.Equal("account_id", filter.AccountID))
	}
	if filter.Platform != "" {
		sb.Where(sb.Equal("platform", filter.Platform))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("status", filter.Status))
	}
	sb.OrderBy("display_order IS NULL", "display_order ASC", "created_at DESC", "id ASC")

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *SQLStore) GetPost(ctx context.Context, id models.ID) (models.Post, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(postColumns...).From("posts").Where(sb.Equal("id", id.String()))
	query, args := sb.Build()

	post, err := scanPost(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("query error: %w", err)
	}
	return post, nil
}

func (s *SQLStore) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	post, err := preparePost(post)
	if err != nil {
		return models.Post{}, err
	}
	if post.ID == "" {
		post.ID = models.ID(uuid.NewString())
	}
	post.CreatedAt = now()
	post.UpdatedAt = post.CreatedAt

	log.WithFields(log.Fields{
		"id":       post.ID,
		"platform": post.Platform,
		"status":   post.Status,
	}).Info("Creating post")

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("posts").Cols(postColumns...).Values(
		post.ID.String(), post.AccountID, post.Username, post.Caption, post.Image,
		encodeList(post.Images), post.Platform, encodeList(post.Platforms), post.Status,
		nullableMillis(post.ScheduledAt), post.Likes, post.Comments,
		nullableInt(post.DisplayOrder), post.CreatedAt.UnixMilli(), post.UpdatedAt.UnixMilli(),
	)
	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return models.Post{}, fmt.Errorf("post %s: %w", post.ID, ErrConflict)
		}
		return models.Post{}, fmt.Errorf("insert error: %w", err)
	}
	return post, nil
}

func (s *SQLStore) UpdatePost(ctx context.Context, update models.Post) (models.Post, error) {
	if update.ID == "" {
		return models.Post{}, invalid("post id is required")
	}
	current, err := s.GetPost(ctx, update.ID)
	if err != nil {
		return models.Post{}, err
	}
	post, err := mergePost(current, update)
	if err != nil {
		return models.Post{}, err
	}
	post.UpdatedAt = now()

	ub := s.flavor.NewUpdateBuilder()
	ub.Update("posts").Set(
		ub.Assign("account_id", post.AccountID),
		ub.Assign("username", post.Username),
		ub.Assign("caption", post.Caption),
		ub.Assign("image", post.Image),
		ub.Assign("images", encodeList(post.Images)),
		ub.Assign("platform", post.Platform),
		ub.Assign("platforms", encodeList(post.Platforms)),
		ub.Assign("status", post.Status),
		ub.Assign("scheduled_at", nullableMillis(post.ScheduledAt)),
		ub.Assign("likes", post.Likes),
		ub.Assign("comments", post.Comments),
		ub.Assign("display_order", nullableInt(post.DisplayOrder)),
		ub.Assign("updated_at", post.UpdatedAt.UnixMilli()),
	).Where(ub.Equal("id", post.ID.String()))

	query, args := ub.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.Post{}, fmt.Errorf("update error: %w", err)
	}
	return post, nil
}

func (s *SQLStore) DeletePost(ctx context.Context, id models.ID) error {
	log.WithFields(log.Fields{"id": id}).Info("Deleting post")

	del := s.flavor.NewDeleteBuilder()
	del.DeleteFrom("posts").Where(del.Equal("id", id.String()))
	query, args := del.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}

// SubmitOrder writes all ranks in one transaction
func (s *SQLStore) SubmitOrder(ctx context.Context, ids []models.ID) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	var updated int64
	for id, position := range firstPositions(ids) {
		ub := s.flavor.NewUpdateBuilder()
		ub.Update("posts").
			Set(ub.Assign("display_order", position)).
			Where(ub.Equal("id", id.String()))
		query, args := ub.Build()

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return "", fmt.Errorf("update order error: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += n
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit error: %w", err)
	}

	log.WithFields(log.Fields{
		"received": len(ids),
		"updated":  updated,
	}).Info("Post order updated")
	return OrderUpdatedMessage, nil
}

func scanMedia(row scanner) (models.Media, error) {
	var media models.Media
	var postID string
	var createdAt int64
	if err := row.Scan(&media.ID, &postID, &media.URL, &media.Type, &createdAt); err != nil {
		return models.Media{}, err
	}
	media.PostID = models.ID(postID)
	media.CreatedAt = fromMillis(createdAt)
	return media, nil
}

func (s *SQLStore) ListMedia(ctx context.Context, postID models.ID) ([]models.Media, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(mediaColumns...).From("media")
	if postID != "" {
		sb.Where(sb.Equal("post_id", postID.String()))
	}
	sb.OrderBy("created_at", "id").Asc()

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	media := []models.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func (s *SQLStore) CreateMedia(ctx context.Context, media models.Media) (models.Media, error) {
	if err := validateMedia(media); err != nil {
		return models.Media{}, err
	}
	if _, err := s.GetPost(ctx, media.PostID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Media{}, fmt.Errorf("post %s does not exist: %w", media.PostID, ErrConflict)
		}
		return models.Media{}, err
	}

	if media.ID == "" {
		media.ID = uuid.NewString()
	}
	media.CreatedAt = now()

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("media").Cols(mediaColumns...).
		Values(media.ID, media.PostID.String(), media.URL, media.Type, media.CreatedAt.UnixMilli())
	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return models.Media{}, fmt.Errorf("media %s: %w", media.ID, ErrConflict)
		}
		return models.Media{}, fmt.Errorf("insert error: %w", err)
	}
	return media, nil
}

func (s *SQLStore) DeleteMedia(ctx context.Context, id string) error {
	del := s.flavor.NewDeleteBuilder()
	del.DeleteFrom("media").Where(del.Equal("id", id))
	query, args := del.Build()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("media %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanProfile(row scanner) (models.Profile, error) {
	var p models.Profile
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &createdAt, &updatedAt); err != nil {
		return models.Profile{}, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func (s *SQLStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]models.Profile, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(profileColumns...).From("profiles")
	if filter.Username != "" {
		sb.Where(sb.Equal("username", filter.Username))
	}
	if filter.ID != "" {
		sb.Where(sb.Equal("id", filter.ID))
	}
	sb.OrderBy("username").Asc()

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *SQLStore) CreateProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	if err := validateProfile(profile); err != nil {
		return models.Profile{}, err
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt = now()
	profile.UpdatedAt = profile.CreatedAt

	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("profiles").Cols(profileColumns...).Values(
		profile.ID, profile.Username, profile.FullName, profile.AvatarURL,
		profile.CreatedAt.UnixMilli(), profile.UpdatedAt.UnixMilli(),
	)
	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return models.Profile{}, fmt.Errorf("username %s is taken: %w", profile.Username, ErrConflict)
		}
		return models.Profile{}, fmt.Errorf("insert error: %w", err)
	}
	return profile, nil
}

func (s *SQLStore) UpdateProfile(ctx context.Context, update models.Profile) (models.Profile, error) {
	if update.ID == "" {
		return models.Profile{}, invalid("profile id is required")
	}
	found, err := s.ListProfiles(ctx, ProfileFilter{ID: update.ID})
	if err != nil {
		return models.Profile{}, err
	}
	if len(found) == 0 {
		return models.Profile{}, fmt.Errorf("profile %s: %w", update.ID, ErrNotFound)
	}
	profile := mergeProfile(found[0], update)

	ub := s.flavor.NewUpdateBuilder()
	ub.Update("profiles").Set(
		ub.Assign("username", profile.Username),
		ub.Assign("full_name", profile.FullName),
		ub.Assign("avatar_url", profile.AvatarURL),
		ub.Assign("updated_at", profile.UpdatedAt.UnixMilli()),
	).Where(ub.Equal("id", profile.ID))

	query, args := ub.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isConstraintViolation(err) {
			return models.Profile{}, fmt.Errorf("username %s is taken: %w", profile.Username, ErrConflict)
		}
		return models.Profile{}, fmt.Errorf("update error: %w", err)
	}
	return profile, nil
}

func mergeProfile(current, update models.Profile) models.Profile {
	if update.Username != "" {
		current.Username = update.Username
	}
	if update.FullName != "" {
		current.FullName = update.FullName
	}
	if update.AvatarURL != "" {
		current.AvatarURL = update.AvatarURL
	}
	current.UpdatedAt = now()
	return current
}
