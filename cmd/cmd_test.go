package cmd_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/accounts"
	"postboard/cmd"
	"postboard/db"
	"postboard/models"
	"postboard/server"
)

func startServer(t *testing.T) (string, db.Store) {
	t.Helper()
	store, err := db.OpenJSON(t.TempDir())
	require.NoError(t, err)

	app := server.Server(&server.ServerConfig{Store: store})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() {
		app.Shutdown()
		store.Close()
	})
	return "http://" + ln.Addr().String(), store
}

func seed(t *testing.T, store db.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.CreatePost(context.Background(), models.Post{Caption: "post"})
		require.NoError(t, err)
	}
}

func order(t *testing.T, store db.Store) []models.ID {
	t.Helper()
	posts, err := store.ListPosts(context.Background(), db.PostFilter{})
	require.NoError(t, err)
	ids := make([]models.ID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestPostsMove(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "pointer in list", args: []string{"--mode", "list"}},
		{name: "pointer in grid", args: []string{"--mode", "grid"}},
		{name: "keyboard in list", args: []string{"--keyboard"}},
		{name: "keyboard in grid", args: []string{"--keyboard", "--mode", "grid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, store := startServer(t)
			seed(t, store, 3)
			// newest first until an order is saved
			require.Equal(t, []models.ID{"3", "2", "1"}, order(t, store))

			args := append([]string{"postboard", "posts", "move", "--server", url, "--id", "1", "--over", "3"}, tt.args...)
			require.NoError(t, cmd.RootApp().Run(args))

			assert.Equal(t, []models.ID{"1", "3", "2"}, order(t, store))
		})
	}
}

func TestPostsMoveOntoItselfSavesNothing(t *testing.T) {
	url, store := startServer(t)
	seed(t, store, 2)

	require.NoError(t, cmd.RootApp().Run([]string{"postboard", "posts", "move", "--server", url, "--id", "2", "--over", "2"}))

	posts, err := store.ListPosts(context.Background(), db.PostFilter{})
	require.NoError(t, err)
	for _, p := range posts {
		assert.Nil(t, p.DisplayOrder)
	}
}

func TestPostsMoveUnknownPost(t *testing.T) {
	url, store := startServer(t)
	seed(t, store, 2)

	err := cmd.RootApp().Run([]string{"postboard", "posts", "move", "--server", url, "--id", "9", "--over", "1"})
	assert.Error(t, err)
}

func TestPostsImages(t *testing.T) {
	url, store := startServer(t)
	created, err := store.CreatePost(context.Background(), models.Post{Caption: "album", Images: []string{"a", "b", "c"}})
	require.NoError(t, err)

	run := func(args ...string) error {
		return cmd.RootApp().Run(append([]string{"postboard", "posts", "images", "--server", url, "--id", created.ID.String()}, args...))
	}

	require.NoError(t, run("--from", "0", "--to", "2"))
	post, err := store.GetPost(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, post.Images)
	assert.Equal(t, "b", post.Image)
	assert.Equal(t, "album", post.Caption)

	require.NoError(t, run("--remove", "0", "--add", "d"))
	post, err = store.GetPost(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "d"}, post.Images)
	assert.Equal(t, "c", post.Image)

	assert.Error(t, run("--from", "0", "--to", "9"))
	assert.Error(t, cmd.RootApp().Run([]string{"postboard", "posts", "images", "--server", url, "--id", "404", "--from", "0", "--to", "1"}))
}

func TestAccountsCommands(t *testing.T) {
	dir := t.TempDir()
	accountsPath := filepath.Join(dir, "accounts.json")
	configPath := filepath.Join(dir, "postboard.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
[accounts]
backend = "file"
path = "`+filepath.ToSlash(accountsPath)+`"

[[accounts.defaults]]
id = "a"
username = "first"

[[accounts.defaults]]
id = "b"
username = "second"
`), 0o644))

	run := func(args ...string) error {
		return cmd.RootApp().Run(append([]string{"postboard", "--config", configPath, "accounts"}, args...))
	}

	require.NoError(t, run("use", "b"))
	require.NoError(t, run("add", "--username", "third"))
	assert.Error(t, run("use", "nope"))

	load := func() accounts.State {
		state, ok, err := accounts.NewFilePersister(accountsPath).Load(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		return state
	}

	state := load()
	assert.Equal(t, "b", state.ActiveID)
	assert.Len(t, state.Accounts, 3)

	require.NoError(t, run("remove", "b"))
	assert.Equal(t, "a", load().ActiveID)

	require.NoError(t, run("reset"))
	assert.Len(t, load().Accounts, 2)
}
