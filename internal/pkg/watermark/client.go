// Package watermark calls the image watermarking function for uploaded chat
// attachments.
package watermark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request identifies the stored object to watermark
type Request struct {
	Bucket         string `json:"bucket"`
	Path           string `json:"path"`
	ContentType    string `json:"contentType"`
	ConversationID string `json:"conversationId"`
}

// Client posts watermark requests. An empty URL disables it.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client with the given request timeout
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// Enabled reports whether a function URL is configured
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Apply asks the function to watermark req's object
func (c *Client) Apply(ctx context.Context, req Request) error {
	if !c.Enabled() {
		return nil
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode watermark request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build watermark request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("watermark request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("watermark function returned %d", resp.StatusCode)
	}
	return nil
}
