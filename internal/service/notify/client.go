package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
)

// Client posts saved-image notifications to an external endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a Client. An empty url disables notifications.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a notification endpoint is configured.
func (c *Client) Enabled() bool {
	return c.url != ""
}

// Notify sends the payload as JSON. It is a no-op when disabled.
func (c *Client) Notify(ctx context.Context, payload dto.NotificationPayload) error {
	if !c.Enabled() {
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}
