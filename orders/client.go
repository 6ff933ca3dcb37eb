package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Store is the slice of the order backend this service consumes:
// list orders and partially update a single order's status.
type Store interface {
	List(ctx context.Context, filter Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Order, error)
}

// Filter narrows a List call. Zero value lists everything.
type Filter struct {
	// Status restricts the listing to one persisted status.
	Status Status
	// Search is a free-text filter applied by the backend.
	Search string
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// Client talks to the order backend over REST/JSON.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a backend client. baseURL is the API root without a
// trailing slash; token is sent as a bearer token on every request.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		logger: logger,
	}
}

// List fetches orders matching the filter.
func (c *Client) List(ctx context.Context, filter Filter) ([]Order, error) {
	path := "/orders"
	if q := filter.query().Encode(); q != "" {
		path += "?" + q
	}
	var out []Order
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// statusPatch is the partial-update body; only status is ever written.
type statusPatch struct {
	Status Status `json:"status"`
}

// UpdateStatus writes a new persisted status for one order and returns
// the backend's updated view of it.
func (c *Client) UpdateStatus(ctx context.Context, id string, status Status) (Order, error) {
	var out Order
	path := "/orders/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, statusPatch{Status: status}, &out); err != nil {
		return Order{}, fmt.Errorf("update order %s: %w", id, err)
	}
	return out, nil
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && (eb.Message != "" || eb.Error != "") {
			apiErr.Message = eb.Message
			if apiErr.Message == "" {
				apiErr.Message = eb.Error
			}
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		c.logger.Debug("Backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
