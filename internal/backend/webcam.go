package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zanzhit/flameguard/internal/domain/models"
)

func (c *Client) StartWebcam(ctx context.Context) (models.WebcamReply, error) {
	const op = "backend.StartWebcam"

	return c.webcam(ctx, op, PathStartWebcam)
}

func (c *Client) StopWebcam(ctx context.Context) (models.WebcamReply, error) {
	const op = "backend.StopWebcam"

	return c.webcam(ctx, op, PathStopWebcam)
}

func (c *Client) webcam(ctx context.Context, op, path string) (models.WebcamReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.links.URL(path), nil)
	if err != nil {
		return models.WebcamReply{}, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	var body any
	if err := c.callJSON(ctx, op, req, true, &body); err != nil {
		return models.WebcamReply{}, err
	}

	reply := models.WebcamReply{Truthy: truthy(body)}

	if m, ok := body.(map[string]any); ok {
		if status, ok := m["status"].(string); ok {
			reply.Status = status
		}
	}

	return reply, nil
}

// truthy follows JSON truthiness: null, false, 0 and "" are false, objects and
// arrays are true even when empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
