package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/client"
	"postboard/models"
)

func TestSubmitOrder(t *testing.T) {
	var got models.ReorderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/posts/order", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Post order updated successfully"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, time.Second)
	msg, err := c.SubmitOrder(context.Background(), []models.ID{"3", "1", "2"})
	require.NoError(t, err)
	assert.Equal(t, "Post order updated successfully", msg)
	assert.Equal(t, []models.ID{"3", "1", "2"}, got.OrderedIDs)
}

func TestSubmitOrderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Error updating post order"}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, time.Second)
	_, err := c.SubmitOrder(context.Background(), []models.ID{"1"})
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, "Error updating post order", apiErr.Message)
}

func TestListPostsAcceptsNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "instagram", r.URL.Query().Get("platform"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":2,"caption":"b","displayOrder":0},{"id":"1","caption":"a","displayOrder":null}]`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, time.Second)
	posts, err := c.ListPosts(context.Background(), client.PostFilter{Platform: "instagram"})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, models.ID("2"), posts[0].ID)
	assert.Equal(t, 0, *posts[0].DisplayOrder)
	assert.Equal(t, models.ID("1"), posts[1].ID)
	assert.Nil(t, posts[1].DisplayOrder)
}

func TestDeletePostNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts/42", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Post not found"}`))
	}))
	defer srv.Close()

	err := client.New(srv.URL, time.Second).DeletePost(context.Background(), "42")
	assert.True(t, client.IsNotFound(err))
}

func TestIsNotFoundWrapped(t *testing.T) {
	err := fmt.Errorf("delete post 42: %w", &client.APIError{StatusCode: http.StatusNotFound})
	assert.True(t, client.IsNotFound(err))
	assert.False(t, client.IsNotFound(fmt.Errorf("list: %w", &client.APIError{StatusCode: http.StatusInternalServerError})))
	assert.False(t, client.IsNotFound(errors.New("connection refused")))
	assert.False(t, client.IsNotFound(nil))
}
