// Package graph is the client side of the follow-graph collaborator.
// The graph itself lives in another service; this package only reads it.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Graph is what the rest of the service depends on.
type Graph interface {
	IsFollowing(ctx context.Context, a, b string) (bool, error)
	// ContactSets returns the materialized follower and following sets,
	// reconciled against the graph's cached counts (the cache is a hint,
	// a direct query wins on disagreement).
	ContactSets(ctx context.Context, userID string) (followers, following []string, err error)
	// CanMessage reports whether a conversation between a and b may be
	// created: either side following the other is enough.
	CanMessage(ctx context.Context, a, b string) (bool, error)
}

// CountsSource exposes the graph service's denormalized follower and
// following counters. ok is false on a cache miss, which just skips the
// drift check.
type CountsSource interface {
	Counts(ctx context.Context, userID string) (followers, following int, ok bool)
}

type Client struct {
	baseURL string
	http    *http.Client
	counts  CountsSource
	log     *zap.SugaredLogger
}

func NewClient(baseURL string, counts CountsSource, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		counts:  counts,
		log:     log,
	}
}

func (c *Client) IsFollowing(ctx context.Context, a, b string) (bool, error) {
	var out struct {
		Following bool `json:"following"`
	}
	url := fmt.Sprintf("%s/internal/graph/%s/follows/%s", c.baseURL, a, b)
	if err := c.getJSON(ctx, url, &out); err != nil {
		return false, err
	}
	return out.Following, nil
}

func (c *Client) CanMessage(ctx context.Context, a, b string) (bool, error) {
	ok, err := c.IsFollowing(ctx, a, b)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return c.IsFollowing(ctx, b, a)
}

func (c *Client) ContactSets(ctx context.Context, userID string) ([]string, []string, error) {
	followers, err := c.fetchSet(ctx, userID, "followers", false)
	if err != nil {
		return nil, nil, err
	}
	following, err := c.fetchSet(ctx, userID, "following", false)
	if err != nil {
		return nil, nil, err
	}

	// the cached counters drift behind the materialized sets now and
	// then; when they disagree, requery directly instead of trusting
	// either copy
	wantFollowers, wantFollowing, ok := c.counts.Counts(ctx, userID)
	if ok && (wantFollowers != len(followers) || wantFollowing != len(following)) {
		c.log.Warnw("graph counts drifted, requerying",
			"user", userID,
			"cached_followers", wantFollowers, "set_followers", len(followers),
			"cached_following", wantFollowing, "set_following", len(following))
		if followers, err = c.fetchSet(ctx, userID, "followers", true); err != nil {
			return nil, nil, err
		}
		if following, err = c.fetchSet(ctx, userID, "following", true); err != nil {
			return nil, nil, err
		}
	}
	return followers, following, nil
}

// RedisCounts reads the graph service's denormalized counters from the
// shared redis.
type RedisCounts struct {
	rdb *redis.Client
}

func NewRedisCounts(rdb *redis.Client) *RedisCounts {
	return &RedisCounts{rdb: rdb}
}

func (c *RedisCounts) Counts(ctx context.Context, userID string) (followers, following int, ok bool) {
	vals, err := c.rdb.HMGet(ctx, "graph:counts:"+userID, "followers", "following").Result()
	if err != nil || len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscan(vals[0].(string), &followers); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscan(vals[1].(string), &following); err != nil {
		return 0, 0, false
	}
	return followers, following, true
}

func (c *Client) fetchSet(ctx context.Context, userID, kind string, fresh bool) ([]string, error) {
	url := fmt.Sprintf("%s/internal/graph/%s/%s", c.baseURL, userID, kind)
	if fresh {
		url += "?fresh=1"
	}
	var out struct {
		IDs []string `json:"ids"`
	}
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("graph: %s returned %d", url, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("graph: %s returned %d", url, resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 3 * time.Second
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
