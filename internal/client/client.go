// Package client is a typed HTTP client for the tasklist item API.
//
// Every method issues exactly one request. There is no retry and no caching;
// callers that keep a local copy of the list reconcile it from the returned
// items. Error responses are mapped back onto the apperr sentinels, so
// errors.Is(err, apperr.ErrNotFound) works the same on both sides of the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/tasklist/internal/apperr"
	"github.com/starford/tasklist/internal/models"
)

// DefaultBaseURL is where the API listens by default.
const DefaultBaseURL = "http://localhost:4000"

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto the shared sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusBadRequest:
		if e.Message == "invalid item id" {
			return apperr.ErrInvalidID
		}
		return apperr.ErrInvalidInput
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client provides typed access to the item endpoints. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL, e.g. "http://localhost:4000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListItems returns every item, newest first.
func (c *Client) ListItems(ctx context.Context) ([]models.Item, error) {
	items, _, _, err := c.ListItemsIfChanged(ctx, "")
	return items, err
}

// ListItemsIfChanged fetches the list unless it still matches etag. When the
// server answers 304, changed is false and items is nil.
func (c *Client) ListItemsIfChanged(ctx context.Context, etag string) (items []models.Item, newETag string, changed bool, err error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/items", nil)
	if err != nil {
		return nil, "", false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", false, fmt.Errorf("list items: %w", err)
	}
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, etag, false, nil
	}
	newETag = resp.Header.Get("ETag")
	if err := decodeResponse(resp, &items); err != nil {
		return nil, "", false, err
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, newETag, true, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := c.do(ctx, http.MethodGet, itemPath(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem creates an item with the given title.
func (c *Client) CreateItem(ctx context.Context, title string) (*models.Item, error) {
	var item models.Item
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/api/items", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem sends only the non-nil fields of patch.
func (c *Client) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	var item models.Item
	if err := c.do(ctx, http.MethodPatch, itemPath(id), patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// SetDone is a shorthand for an update of the done flag only.
func (c *Client) SetDone(ctx context.Context, id string, done bool) (*models.Item, error) {
	return c.UpdateItem(ctx, id, models.ItemPatch{Done: &done})
}

// Rename is a shorthand for an update of the title only.
func (c *Client) Rename(ctx context.Context, id, title string) (*models.Item, error) {
	return c.UpdateItem(ctx, id, models.ItemPatch{Title: &title})
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, nil)
}

func itemPath(id string) string {
	return "/api/items/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return decodeResponse(resp, target)
}

// newRequest builds a request with JSON headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// decodeResponse decodes the JSON response into target, or turns an error
// status into an *APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
