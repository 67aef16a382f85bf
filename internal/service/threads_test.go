package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/social-app/services/dm-service/internal/models"
	"github.com/yourorg/social-app/services/dm-service/internal/profile"
)

type fakeGraph struct {
	followers map[string][]string
	following map[string][]string
}

func (g *fakeGraph) IsFollowing(ctx context.Context, a, b string) (bool, error) {
	for _, id := range g.following[a] {
		if id == b {
			return true, nil
		}
	}
	return false, nil
}

func (g *fakeGraph) CanMessage(ctx context.Context, a, b string) (bool, error) {
	ab, _ := g.IsFollowing(ctx, a, b)
	ba, _ := g.IsFollowing(ctx, b, a)
	return ab || ba, nil
}

func (g *fakeGraph) ContactSets(ctx context.Context, userID string) ([]string, []string, error) {
	return g.followers[userID], g.following[userID], nil
}

type fakeProfiles struct {
	byID map[string]*profile.Summary
}

func (p *fakeProfiles) Summary(ctx context.Context, userID string) (*profile.Summary, error) {
	if s, ok := p.byID[userID]; ok {
		return s, nil
	}
	return &profile.Summary{ID: userID, Name: userID}, nil
}

type fakeMedia struct{}

func (fakeMedia) ResolveURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return "https://cdn.example.com/" + ref, nil
}

func newThreadsFixture(g *fakeGraph) (*Threads, *fakeConvRepo) {
	convs := newFakeConvRepo()
	profiles := &fakeProfiles{byID: map[string]*profile.Summary{}}
	th := NewThreads(convs, g, profiles, fakeMedia{}, zap.NewNop().Sugar())
	return th, convs
}

func seedConversation(t *testing.T, convs *fakeConvRepo, a, b string, unreadA int, lastText string, at time.Time) {
	t.Helper()
	c, err := convs.Resolve(context.Background(), a, b, true)
	require.NoError(t, err)
	require.NoError(t, convs.SetUnread(context.Background(), c.ID.Hex(), a, unreadA))
	require.NoError(t, convs.RecordLastMessage(context.Background(), c.ID.Hex(), &models.LastMessage{
		Text:      lastText,
		SenderID:  b,
		CreatedAt: at,
	}))
}

func TestListMergesGraphAndConversations(t *testing.T) {
	g := &fakeGraph{
		followers: map[string][]string{"me": {"fan"}},
		following: map[string][]string{"me": {"idol", "fan"}},
	}
	th, convs := newThreadsFixture(g)
	// stranger has a conversation but no graph edge
	seedConversation(t, convs, "me", "stranger", 2, "yo", time.Now().UTC())

	inbox, err := th.List(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, inbox.Threads, 3)
	assert.Equal(t, 2, inbox.TotalUnread)

	byContact := map[string]models.Thread{}
	for _, e := range inbox.Threads {
		byContact[e.ContactID] = e
	}

	stranger := byContact["stranger"]
	assert.Equal(t, models.ThreadActive, stranger.Status)
	assert.Equal(t, 2, stranger.Unread)
	assert.Equal(t, "yo", stranger.Preview)
	assert.False(t, stranger.Following)
	assert.False(t, stranger.FollowedBy)

	fan := byContact["fan"]
	assert.Equal(t, models.ThreadPending, fan.Status)
	assert.True(t, fan.Friends, "mutual follow means friends")

	idol := byContact["idol"]
	assert.True(t, idol.Following)
	assert.False(t, idol.FollowedBy)
	assert.False(t, idol.Friends)
}

func TestListSortsByLastActivity(t *testing.T) {
	g := &fakeGraph{
		followers: map[string][]string{"me": {"quiet"}},
		following: map[string][]string{},
	}
	th, convs := newThreadsFixture(g)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	seedConversation(t, convs, "me", "older", 0, "first", base)
	seedConversation(t, convs, "me", "newer", 1, "second", base.Add(time.Hour))

	inbox, err := th.List(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, inbox.Threads, 3)
	assert.Equal(t, "newer", inbox.Threads[0].ContactID)
	assert.Equal(t, "older", inbox.Threads[1].ContactID)
	// no conversation, no activity: sorts last
	assert.Equal(t, "quiet", inbox.Threads[2].ContactID)
	assert.Equal(t, 1, inbox.TotalUnread)
}

func TestListExcludesSelfAndDecorates(t *testing.T) {
	g := &fakeGraph{
		followers: map[string][]string{"me": {"me", "pal"}},
		following: map[string][]string{},
	}
	th, _ := newThreadsFixture(g)
	th.profiles = &fakeProfiles{byID: map[string]*profile.Summary{
		"pal": {ID: "pal", Name: "Pal Friendly", Nick: "pal", AvatarRef: "avatars/pal.png"},
	}}

	inbox, err := th.List(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, inbox.Threads, 1)
	e := inbox.Threads[0]
	assert.Equal(t, "pal", e.ContactID)
	assert.Equal(t, "Pal Friendly", e.Name)
	assert.Equal(t, "https://cdn.example.com/avatars/pal.png", e.AvatarURL)
}

func TestPreviewTruncation(t *testing.T) {
	g := &fakeGraph{}
	th, convs := newThreadsFixture(g)
	long := strings.Repeat("x", models.PreviewLen+60)
	seedConversation(t, convs, "me", "chatty", 0, long, time.Now().UTC())

	inbox, err := th.List(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, inbox.Threads, 1)
	preview := inbox.Threads[0].Preview
	assert.Equal(t, models.PreviewLen+1, len([]rune(preview)), "140 runes plus ellipsis")
	assert.True(t, strings.HasSuffix(preview, "…"))
}
