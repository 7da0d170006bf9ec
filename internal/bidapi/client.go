package bidapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/david/bid-monitor/internal/models"
)

// ErrUnsuccessful is returned when the backend answers with success=false.
var ErrUnsuccessful = errors.New("backend reported failure")

// Client talks to the monitor API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// FetchBids retrieves the current bid collection.
func (c *Client) FetchBids(ctx context.Context) (*models.BidsResponse, error) {
	var out models.BidsResponse
	if err := c.do(ctx, http.MethodGet, "/api/bids", &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, ErrUnsuccessful
	}
	return &out, nil
}

// Refresh asks the backend to rescan its sources and waits for the result.
func (c *Client) Refresh(ctx context.Context) (*models.RefreshResponse, error) {
	var out models.RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/api/refresh", &out); err != nil {
		return nil, err
	}
	if !out.Success {
		if out.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, out.Message)
		}
		return nil, ErrUnsuccessful
	}
	return &out, nil
}

// Statistics retrieves per-type counts.
func (c *Client) Statistics(ctx context.Context) (*models.StatisticsResponse, error) {
	var out models.StatisticsResponse
	if err := c.do(ctx, http.MethodGet, "/api/statistics", &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, ErrUnsuccessful
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status code %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
