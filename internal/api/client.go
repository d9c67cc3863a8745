package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aryak/blogfront/internal/models"
)

// APIError is a non-2xx response normalized to a single message. The
// message is shown to the user verbatim, so it carries whatever the
// backend said rather than a wire-level description.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Client calls the remote blog backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: &http.Client{}}
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, creds models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, creds models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", creds, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile calls GET /auth/profile with the bearer token. The backend
// has returned both {"user": {...}} and a bare user object across
// versions, so both shapes are accepted.
func (c *Client) Profile(ctx context.Context, token string) (*models.User, error) {
	body, err := c.raw(ctx, http.MethodGet, "/auth/profile", nil, token)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}

	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	return &user, nil
}

// ListPosts calls GET /posts. Public, no token.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var out []models.Post
	if err := c.do(ctx, http.MethodGet, "/posts", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPost calls GET /posts/{id}. Public, no token.
func (c *Client) GetPost(ctx context.Context, id int) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+strconv.Itoa(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyPosts calls GET /posts/my-posts and returns only posts owned by
// the token's user.
func (c *Client) MyPosts(ctx context.Context, token string) ([]models.Post, error) {
	var out []models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/my-posts", nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePost calls POST /posts.
func (c *Client) CreatePost(ctx context.Context, token string, req models.CreatePostRequest) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPost, "/posts", req, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost calls PUT /posts/{id} with a partial body.
func (c *Client) UpdatePost(ctx context.Context, token string, id int, req models.UpdatePostRequest) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPut, "/posts/"+strconv.Itoa(id), req, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost calls DELETE /posts/{id}.
func (c *Client) DeletePost(ctx context.Context, token string, id int) error {
	_, err := c.raw(ctx, http.MethodDelete, "/posts/"+strconv.Itoa(id), nil, token)
	return err
}

// do issues the request and decodes a 2xx body into out. A nil out
// discards the body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, token string, out interface{}) error {
	data, err := c.raw(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path string, body interface{}, token string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	return data, nil
}

// errorMessage extracts the most useful message from an error body:
// a JSON "error" or "message" field, then the plain text body, then a
// fixed fallback informed by the status code.
func errorMessage(status int, body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
		return text
	}

	switch status {
	case http.StatusUnauthorized:
		return "Not authenticated"
	case http.StatusForbidden:
		return "You do not have permission to do that"
	case http.StatusNotFound:
		return "Not found"
	default:
		return fmt.Sprintf("Request failed with status %d", status)
	}
}
