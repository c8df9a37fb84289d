// Package simulator talks to the external garage simulator API.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IvanSaavedra7/parking/internal/app"
)

// Client fetches garage topology from the simulator.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a simulator client for the given base URL.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// FetchGarage retrieves sector and spot configuration from GET /garage.
func (c *Client) FetchGarage(ctx context.Context) (app.GarageConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/garage", nil)
	if err != nil {
		return app.GarageConfig{}, fmt.Errorf("build garage request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return app.GarageConfig{}, fmt.Errorf("fetch garage config: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return app.GarageConfig{}, fmt.Errorf("fetch garage config: unexpected status %d", resp.StatusCode)
	}

	var cfg app.GarageConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return app.GarageConfig{}, fmt.Errorf("decode garage config: %w", err)
	}
	return cfg, nil
}
