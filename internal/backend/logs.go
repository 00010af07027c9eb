package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zanzhit/flameguard/internal/domain/models"
)

// FireLogs returns the fire log collection. A response without a logs field
// yields an empty, non-nil slice.
func (c *Client) FireLogs(ctx context.Context) ([]models.FireLog, error) {
	const op = "backend.FireLogs"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.links.URL(PathFireLogs), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	var resp models.FireLogs
	if err := c.callJSON(ctx, op, req, true, &resp); err != nil {
		return nil, err
	}

	if resp.Logs == nil {
		return []models.FireLog{}, nil
	}

	return resp.Logs, nil
}

func (c *Client) VideoLogs(ctx context.Context) ([]models.VideoLog, error) {
	const op = "backend.VideoLogs"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.links.URL(PathVideoLogs), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	var resp models.VideoLogs
	if err := c.callJSON(ctx, op, req, true, &resp); err != nil {
		return nil, err
	}

	if resp.Logs == nil {
		return []models.VideoLog{}, nil
	}

	return resp.Logs, nil
}
