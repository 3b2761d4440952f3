// Package fx fetches historical USD to CAD exchange rates over the
// Frankfurter-style HTTP API: GET /{YYYY-MM-DD}?from=USD&to=CAD.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tabkeeper/internal/model"
)

// Client is a small JSON-over-HTTP rate client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a rate client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the USD to CAD rate as of the given date.
func (c *Client) Rate(ctx context.Context, d model.Date) (float64, error) {
	url := fmt.Sprintf("%s/%s?from=USD&to=CAD", c.baseURL, d.ISO())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("fx: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fx: fetch rate for %s: %w", d.ISO(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("fx: rate service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("fx: decode rate response: %w", err)
	}

	rate, ok := parsed.Rates["CAD"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("fx: no CAD rate in response for %s", d.ISO())
	}
	return rate, nil
}
