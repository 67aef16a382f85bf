package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCounts struct {
	followers int
	following int
	ok        bool
}

func (f fakeCounts) Counts(context.Context, string) (int, int, bool) {
	return f.followers, f.following, f.ok
}

// graphServer serves the follower and following sets, handing out the
// stale copies unless the request carries fresh=1. freshHits counts the
// direct requeries.
func graphServer(t *testing.T, stale, fresh map[string][]string, freshHits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		kind := parts[len(parts)-1]
		ids := stale[kind]
		if r.URL.Query().Get("fresh") == "1" {
			freshHits.Add(1)
			ids = fresh[kind]
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"ids": ids}))
	}))
}

func TestContactSetsRequeriesOnCountDrift(t *testing.T) {
	var freshHits atomic.Int32
	stale := map[string][]string{
		"followers": {"f1"},
		"following": {"g1"},
	}
	fresh := map[string][]string{
		"followers": {"f1", "f2"},
		"following": {"g1"},
	}
	srv := graphServer(t, stale, fresh, &freshHits)
	defer srv.Close()

	// cached counters say two followers, the materialized set has one
	c := NewClient(srv.URL, fakeCounts{followers: 2, following: 1, ok: true}, zap.NewNop().Sugar())
	followers, following, err := c.ContactSets(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, []string{"f1", "f2"}, followers)
	assert.Equal(t, []string{"g1"}, following)
	assert.Equal(t, int32(2), freshHits.Load(), "both sets requeried directly")
}

func TestContactSetsTrustsMatchingCounts(t *testing.T) {
	var freshHits atomic.Int32
	stale := map[string][]string{
		"followers": {"f1"},
		"following": {"g1", "g2"},
	}
	srv := graphServer(t, stale, nil, &freshHits)
	defer srv.Close()

	c := NewClient(srv.URL, fakeCounts{followers: 1, following: 2, ok: true}, zap.NewNop().Sugar())
	followers, following, err := c.ContactSets(context.Background(), "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"f1"}, followers)
	assert.Equal(t, []string{"g1", "g2"}, following)
	assert.Equal(t, int32(0), freshHits.Load())
}

func TestContactSetsSkipsDriftCheckOnCacheMiss(t *testing.T) {
	var freshHits atomic.Int32
	stale := map[string][]string{
		"followers": {"f1", "f2", "f3"},
		"following": nil,
	}
	srv := graphServer(t, stale, nil, &freshHits)
	defer srv.Close()

	c := NewClient(srv.URL, fakeCounts{ok: false}, zap.NewNop().Sugar())
	followers, following, err := c.ContactSets(context.Background(), "carol")
	require.NoError(t, err)

	assert.Len(t, followers, 3)
	assert.Empty(t, following)
	assert.Equal(t, int32(0), freshHits.Load())
}

func TestCanMessageEitherDirection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// only bob follows alice
		follows := strings.Contains(r.URL.Path, "/bob/follows/alice")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]bool{"following": follows}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fakeCounts{}, zap.NewNop().Sugar())
	ok, err := c.CanMessage(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CanMessage(context.Background(), "alice", "carol")
	require.NoError(t, err)
	assert.False(t, ok)
}
