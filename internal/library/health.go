package library

import (
	"context"
	"fmt"
)

// Health probes the API process.
func (c *Client) Health(ctx context.Context) error {
	if err := c.api.GetJSON(ctx, "/api/health", nil, nil); err != nil {
		return fmt.Errorf("backend health: %w", err)
	}
	return nil
}

// DBStatus probes the server's database connection.
func (c *Client) DBStatus(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := c.api.GetJSON(ctx, "/api/db-status", nil, &resp); err != nil {
		return fmt.Errorf("database status: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("database status: %s", resp.Error)
	}
	return nil
}
