// Package webhook posts story submissions to the submission endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mapofsmiles/companion/internal/config"
	"github.com/mapofsmiles/companion/internal/domain"
)

// maxReplySize bounds how much of the endpoint reply is read.
const maxReplySize = 64 << 10

type Client struct {
	url    string
	client *http.Client
}

func NewClient(cfg config.SubmitConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) IsConfigured() bool {
	return config.IsSet(c.url)
}

// Submit posts the submission. A reply that is not JSON is a transport
// failure; a decoded reply is returned whatever its status.
func (c *Client) Submit(ctx context.Context, sub domain.Submission) (*domain.SubmitResponse, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submission request failed: %w", err)
	}
	defer resp.Body.Close()

	var reply domain.SubmitResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplySize)).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode submission reply (HTTP %d): %w", resp.StatusCode, err)
	}
	reply.StatusCode = resp.StatusCode

	return &reply, nil
}
