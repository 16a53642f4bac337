// Package client talks to a postboard server over its HTTP API
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"postboard/models"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

func parseError(resp *resty.Response) error {
	var body models.ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return &APIError{StatusCode: resp.StatusCode(), Message: body.Error}
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: string(resp.Body())}
}

type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	http := resty.New()
	http.SetBaseURL(baseURL)
	http.SetTimeout(timeout)
	http.SetHeader("User-Agent", "postboard-cli")
	http.SetHeader("Accept", "application/json")

	http.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		log.WithFields(log.Fields{"method": req.Method, "url": req.URL}).Debug("HTTP request")
		return nil
	})
	http.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		log.WithFields(log.Fields{
			"status":  resp.StatusCode(),
			"latency": resp.Time(),
		}).Debug("HTTP response")
		return nil
	})

	return &Client{http: http}
}

// PostFilter narrows ListPosts
type PostFilter struct {
	AccountID string
	Platform  string
	Status    string
}

func (c *Client) ListPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	var posts []models.Post
	req := c.http.R().SetContext(ctx).SetResult(&posts)
	if filter.AccountID != "" {
		req.SetQueryParam("account", filter.AccountID)
	}
	if filter.Platform != "" {
		req.SetQueryParam("platform", filter.Platform)
	}
	if filter.Status != "" {
		req.SetQueryParam("status", filter.Status)
	}

	resp, err := req.Get("/api/posts")
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if resp.IsError() {
		return nil, parseError(resp)
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, id models.ID) (models.Post, error) {
	var post models.Post
	resp, err := c.http.R().SetContext(ctx).SetResult(&post).
		SetPathParam("id", id.String()).
		Get("/api/posts/{id}")
	if err != nil {
		return models.Post{}, fmt.Errorf("get post: %w", err)
	}
	if resp.IsError() {
		return models.Post{}, parseError(resp)
	}
	return post, nil
}

func (c *Client) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	var created models.Post
	resp, err := c.http.R().SetContext(ctx).SetBody(post).SetResult(&created).Post("/api/posts")
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	if resp.IsError() {
		return models.Post{}, parseError(resp)
	}
	return created, nil
}

func (c *Client) UpdatePost(ctx context.Context, post models.Post) (models.Post, error) {
	var updated models.Post
	resp, err := c.http.R().SetContext(ctx).SetBody(post).SetResult(&updated).Put("/api/posts")
	if err != nil {
		return models.Post{}, fmt.Errorf("update post: %w", err)
	}
	if resp.IsError() {
		return models.Post{}, parseError(resp)
	}
	return updated, nil
}

func (c *Client) DeletePost(ctx context.Context, id models.ID) error {
	resp, err := c.http.R().SetContext(ctx).
		SetPathParam("id", id.String()).
		Delete("/api/posts/{id}")
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if resp.IsError() {
		return parseError(resp)
	}
	return nil
}

// SubmitOrder sends the full feed order. It satisfies persist.OrderSubmitter.
func (c *Client) SubmitOrder(ctx context.Context, ids []models.ID) (string, error) {
	var result models.MessageResponse
	resp, err := c.http.R().SetContext(ctx).
		SetBody(models.ReorderRequest{OrderedIDs: ids}).
		SetResult(&result).
		Post("/api/posts/order")
	if err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}
	if resp.IsError() {
		return "", parseError(resp)
	}
	return result.Message, nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	resp, err := c.http.R().SetContext(ctx).SetResult(&accounts).Get("/api/accounts")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if resp.IsError() {
		return nil, parseError(resp)
	}
	return accounts, nil
}

func (c *Client) ActiveAccount(ctx context.Context) (models.Account, error) {
	var account models.Account
	resp, err := c.http.R().SetContext(ctx).SetResult(&account).Get("/api/accounts/active")
	if err != nil {
		return models.Account{}, fmt.Errorf("active account: %w", err)
	}
	if resp.IsError() {
		return models.Account{}, parseError(resp)
	}
	return account, nil
}
