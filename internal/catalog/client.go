package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MiniCatalog/pkg/kit"
)

var (
	ErrBadStatus   = errors.New("catalog bad status")
	ErrUnavailable = errors.New("catalog unavailable")
)

// Client talks to a running catalog service over its JSON API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *Client) List(ctx context.Context, q url.Values) (ListResult, error) {
	var res ListResult
	target := c.BaseURL + "/api/items"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	err := c.do(ctx, http.MethodGet, target, nil, &res)
	return res, err
}

func (c *Client) Get(ctx context.Context, id string) (Item, error) {
	var it Item
	err := c.do(ctx, http.MethodGet, c.BaseURL+"/api/items/"+url.PathEscape(id), nil, &it)
	return it, err
}

// Create posts body as-is; validation happens on the server.
func (c *Client) Create(ctx context.Context, body []byte) (Item, error) {
	var it Item
	err := c.do(ctx, http.MethodPost, c.BaseURL+"/api/items", body, &it)
	return it, err
}

func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var res StatsResponse
	err := c.do(ctx, http.MethodGet, c.BaseURL+"/api/stats", nil, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, target, err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrItemNotFound
	case resp.StatusCode == http.StatusBadRequest:
		msg := errorBody(resp.Body)
		if reason, ok := strings.CutPrefix(msg, "Invalid item: "); ok {
			return &ValidationError{Reason: reason}
		}
		return fmt.Errorf("%w: status=%d: %s", ErrBadStatus, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: status=%d: %s", ErrBadStatus, resp.StatusCode, errorBody(resp.Body))
	}
}

func errorBody(r io.Reader) string {
	var e kit.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&e); err != nil {
		return ""
	}
	return e.Error
}
