package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/accounts"
	"postboard/db"
	"postboard/models"
	"postboard/server"
)

func newApp(t *testing.T) (*fiber.App, db.Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := db.Open(db.Options{Backend: db.BackendSQLite, SQLitePath: filepath.Join(dir, "postboard.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	accts, err := accounts.Open(context.Background(), accounts.NewFilePersister(filepath.Join(dir, "accounts.json")), []models.Account{
		{ID: "a1", Username: "sunny", DisplayName: "Sunny"},
		{ID: "a2", Username: "rainy", DisplayName: "Rainy"},
	})
	require.NoError(t, err)

	app := server.Server(&server.ServerConfig{
		Store:     store,
		Accounts:  accts,
		Platforms: []models.Platform{{ID: "instagram", Name: "Instagram"}},
	})
	return app, store
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestOrderEndpoint(t *testing.T) {
	app, store := newApp(t)
	ctx := context.Background()

	var ids []string
	for _, caption := range []string{"one", "two", "three"} {
		p, err := store.CreatePost(ctx, models.Post{Caption: caption})
		require.NoError(t, err)
		ids = append(ids, p.ID.String())
	}

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "full order",
			body:           `{"orderedIds":["` + ids[2] + `","` + ids[0] + `","` + ids[1] + `"]}`,
			expectedStatus: 200,
			expectedBody:   `{"message":"Post order updated successfully"}`,
		},
		{
			name:           "not an array",
			body:           `{"orderedIds":"nope"}`,
			expectedStatus: 400,
			expectedBody:   `{"error":"orderedIds must be an array"}`,
		},
		{
			name:           "missing field",
			body:           `{}`,
			expectedStatus: 400,
			expectedBody:   `{"error":"orderedIds must be an array"}`,
		},
		{
			name:           "null",
			body:           `{"orderedIds":null}`,
			expectedStatus: 400,
			expectedBody:   `{"error":"orderedIds must be an array"}`,
		},
		{
			name:           "broken body",
			body:           `{"orderedIds":[`,
			expectedStatus: 500,
			expectedBody:   `{"error":"Error updating post order"}`,
		},
		{
			name:           "unknown ids are ignored",
			body:           `{"orderedIds":[999,"ghost"]}`,
			expectedStatus: 200,
			expectedBody:   `{"message":"Post order updated successfully"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodPost, "/api/posts/order", tt.body)
			assert.Equal(t, tt.expectedStatus, status)
			assert.JSONEq(t, tt.expectedBody, string(body))
		})
	}

	status, body := do(t, app, http.MethodGet, "/api/posts", "")
	require.Equal(t, 200, status)
	var posts []models.Post
	require.NoError(t, json.Unmarshal(body, &posts))
	require.Len(t, posts, 3)
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, []string{posts[0].ID.String(), posts[1].ID.String(), posts[2].ID.String()})
}

func TestPostsCRUD(t *testing.T) {
	app, _ := newApp(t)

	status, body := do(t, app, http.MethodPost, "/api/posts", `{"caption":"hello","platform":"instagram","likes":10}`)
	require.Equal(t, 200, status)
	var created models.Post
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, 0, created.Likes)
	assert.Equal(t, models.StatusDraft, created.Status)

	status, _ = do(t, app, http.MethodGet, "/api/posts/"+created.ID.String(), "")
	assert.Equal(t, 200, status)

	status, body = do(t, app, http.MethodPut, "/api/posts", `{"caption":"no id"}`)
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"error":"Post ID is required"}`, string(body))

	status, body = do(t, app, http.MethodPut, "/api/posts", `{"id":"missing","caption":"x"}`)
	assert.Equal(t, 404, status)
	assert.JSONEq(t, `{"error":"Post not found"}`, string(body))

	status, body = do(t, app, http.MethodPut, "/api/posts", `{"id":"`+created.ID.String()+`","caption":"edited"}`)
	require.Equal(t, 200, status)
	var updated models.Post
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "edited", updated.Caption)
	assert.Equal(t, created.ID, updated.ID)

	status, _ = do(t, app, http.MethodPost, "/api/posts", `{"status":"archived"}`)
	assert.Equal(t, 400, status)

	status, _ = do(t, app, http.MethodDelete, "/api/posts/"+created.ID.String(), "")
	assert.Equal(t, 200, status)
	status, _ = do(t, app, http.MethodDelete, "/api/posts/"+created.ID.String(), "")
	assert.Equal(t, 404, status)
	status, _ = do(t, app, http.MethodGet, "/api/posts/"+created.ID.String(), "")
	assert.Equal(t, 404, status)
}

func TestMediaEndpoints(t *testing.T) {
	app, store := newApp(t)
	post, err := store.CreatePost(context.Background(), models.Post{Caption: "with media"})
	require.NoError(t, err)

	status, body := do(t, app, http.MethodPost, "/api/media", `{"url":"https://img/1.jpg"}`)
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"error":"post_id is required"}`, string(body))

	status, body = do(t, app, http.MethodPost, "/api/media", `{"post_id":"`+post.ID.String()+`"}`)
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"error":"url is required"}`, string(body))

	status, _ = do(t, app, http.MethodPost, "/api/media", `{"post_id":"nope","url":"https://img/1.jpg"}`)
	assert.Equal(t, 409, status)

	status, body = do(t, app, http.MethodPost, "/api/media", `{"post_id":"`+post.ID.String()+`","url":"https://img/1.jpg"}`)
	require.Equal(t, 200, status)
	var media models.Media
	require.NoError(t, json.Unmarshal(body, &media))

	status, body = do(t, app, http.MethodGet, "/api/media?post_id="+post.ID.String(), "")
	require.Equal(t, 200, status)
	var list []models.Media
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	status, _ = do(t, app, http.MethodDelete, "/api/media", "")
	assert.Equal(t, 400, status)
	status, _ = do(t, app, http.MethodDelete, "/api/media?id="+media.ID, "")
	assert.Equal(t, 200, status)
}

func TestProfileEndpoints(t *testing.T) {
	app, _ := newApp(t)

	status, body := do(t, app, http.MethodPost, "/api/profiles", `{"full_name":"Anon"}`)
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"error":"username is required"}`, string(body))

	status, _ = do(t, app, http.MethodPost, "/api/profiles", `{"username":"alice"}`)
	require.Equal(t, 200, status)
	status, _ = do(t, app, http.MethodPost, "/api/profiles", `{"username":"alice"}`)
	assert.Equal(t, 409, status)

	status, body = do(t, app, http.MethodGet, "/api/profiles?username=alice", "")
	require.Equal(t, 200, status)
	var profiles []models.Profile
	require.NoError(t, json.Unmarshal(body, &profiles))
	require.Len(t, profiles, 1)

	status, _ = do(t, app, http.MethodPut, "/api/profiles", `{"full_name":"x"}`)
	assert.Equal(t, 400, status)
	status, body = do(t, app, http.MethodPut, "/api/profiles", `{"id":"`+profiles[0].ID+`","full_name":"Alice A."}`)
	assert.Equal(t, 200, status)
	assert.Contains(t, string(body), "Alice A.")
}

func TestAccountEndpoints(t *testing.T) {
	app, _ := newApp(t)

	status, body := do(t, app, http.MethodGet, "/api/accounts/active", "")
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), `"a1"`)

	status, _ = do(t, app, http.MethodPut, "/api/accounts/active", `{"id":"a2"}`)
	assert.Equal(t, 200, status)
	status, _ = do(t, app, http.MethodPut, "/api/accounts/active", `{"id":"zzz"}`)
	assert.Equal(t, 404, status)

	status, body = do(t, app, http.MethodPost, "/api/accounts", `{"username":"cloudy"}`)
	require.Equal(t, 200, status)
	var added models.Account
	require.NoError(t, json.Unmarshal(body, &added))
	assert.NotEmpty(t, added.ID)

	status, _ = do(t, app, http.MethodPut, "/api/accounts/"+added.ID, `{"username":"cloudy","displayName":"Cloudy"}`)
	assert.Equal(t, 200, status)

	// deleting the active account falls back to the first one
	status, _ = do(t, app, http.MethodDelete, "/api/accounts/a2", "")
	assert.Equal(t, 200, status)
	_, body = do(t, app, http.MethodGet, "/api/accounts/active", "")
	assert.Contains(t, string(body), `"a1"`)

	status, body = do(t, app, http.MethodPost, "/api/accounts/reset", "")
	require.Equal(t, 200, status)
	var list []models.Account
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)
}

func TestHealthPlatformsAndMetrics(t *testing.T) {
	app, _ := newApp(t)

	status, body := do(t, app, http.MethodGet, "/api/health", "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	status, body = do(t, app, http.MethodGet, "/api/platforms", "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `[{"id":"instagram","name":"Instagram"}]`, string(body))

	status, body = do(t, app, http.MethodGet, "/metrics", "")
	assert.Equal(t, 200, status)
	assert.Contains(t, string(body), "postboard_http_requests_total")
}
