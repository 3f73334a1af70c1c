// Package nexus queries the feed service for notifications addressed to an
// identity.
package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/pubky-agent/internal/model"
)

// One page per call. The feed is polled every few seconds, so bursts larger
// than the page size are drained across later ticks: the checkpoint only
// advances past what was actually fetched.
const (
	fetchSkip  = 0
	fetchLimit = 30
)

// fetchTimeout bounds a single feed request.
const fetchTimeout = 30 * time.Second

// Client is a thin HTTP client for the nexus notification endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a nexus client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// Notifications fetches one page of notifications for user newer than
// since. The service's since filtering is advisory; callers must re-check
// timestamps before acting. An empty response body is a valid empty result.
func (c *Client) Notifications(ctx context.Context, user string, since int64) ([]model.Notification, error) {
	url := fmt.Sprintf("%s/v0/user/%s/notifications?skip=%d&limit=%d&since=%d",
		c.baseURL, user, fetchSkip, fetchLimit, since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nexus returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var notifications []model.Notification
	if err := json.Unmarshal(body, &notifications); err != nil {
		return nil, fmt.Errorf("decoding notifications: %w", err)
	}

	return notifications, nil
}
