// Package profile reads user display summaries from the profile-store
// collaborator. Display decoration only; a failed lookup never fails the
// caller's operation.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Nick      string `json:"nick"`
	AvatarRef string `json:"avatar_ref"`
}

type Store interface {
	Summary(ctx context.Context, userID string) (*Summary, error)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Summary(ctx context.Context, userID string) (*Summary, error) {
	url := fmt.Sprintf("%s/internal/users/%s/summary", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile: %s returned %d", url, resp.StatusCode)
	}
	var s Summary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
