// Package webhook relays stored notifications to a user-configured HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrEmptyPayload is returned when Emit is called without a payload.
var ErrEmptyPayload = errors.New("webhook: empty payload")

// StatusError reports a non-2xx response from the webhook endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: HTTP error status %d", e.StatusCode)
}

// Client posts JSON payloads. Requests are throttled by a token bucket.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client. rps <= 0 disables throttling.
func New(timeout time.Duration, rps int) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// Emit POSTs payload as JSON to url. Any transport failure or non-2xx status is an error.
func (c *Client) Emit(ctx context.Context, url string, payload any) error {
	if payload == nil {
		return ErrEmptyPayload
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
