package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/yourorg/social-app/services/dm-service/internal/apperr"
	"github.com/yourorg/social-app/services/dm-service/internal/graph"
	"github.com/yourorg/social-app/services/dm-service/internal/identity"
	"github.com/yourorg/social-app/services/dm-service/internal/media"
	"github.com/yourorg/social-app/services/dm-service/internal/models"
	"github.com/yourorg/social-app/services/dm-service/internal/profile"
	"github.com/yourorg/social-app/services/dm-service/internal/repository"
)

// Threads builds the per-user inbox: every distinct contact from the
// follow graph and the conversation store, decorated with profile,
// unread and relationship state.
type Threads struct {
	convs    repository.ConversationRepo
	graph    graph.Graph
	profiles profile.Store
	media    media.Resolver
	log      *zap.SugaredLogger
}

func NewThreads(convs repository.ConversationRepo, g graph.Graph, profiles profile.Store, m media.Resolver, log *zap.SugaredLogger) *Threads {
	return &Threads{convs: convs, graph: g, profiles: profiles, media: m, log: log}
}

func (t *Threads) List(ctx context.Context, userRef any) (*models.Inbox, error) {
	userID := identity.Resolve(userRef)
	if userID == "" {
		return nil, apperr.InvalidParticipant("unresolvable user")
	}

	followers, following, err := t.graph.ContactSets(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load contact sets", err)
	}
	followerSet := toSet(followers)
	followingSet := toSet(following)

	convs, err := t.convs.ListForUser(ctx, userID, maxListedConversations)
	if err != nil {
		return nil, apperr.Internal("list conversations", err)
	}

	entries := make(map[string]*models.Thread)
	add := func(contactID string) *models.Thread {
		if contactID == "" || contactID == userID {
			return nil
		}
		if e, ok := entries[contactID]; ok {
			return e
		}
		e := &models.Thread{ContactID: contactID, Status: models.ThreadPending}
		entries[contactID] = e
		return e
	}

	for id := range followerSet {
		add(id)
	}
	for id := range followingSet {
		add(id)
	}
	for _, c := range convs {
		e := add(c.OtherParticipant(userID))
		if e == nil {
			continue
		}
		summary := threadForViewer(c, userID)
		e.ConversationID = summary.ConversationID
		e.Status = models.ThreadActive
		e.Unread = summary.Unread
		e.Preview = summary.Preview
		e.LastActivity = summary.LastActivity
	}

	total := 0
	out := make([]models.Thread, 0, len(entries))
	for _, e := range entries {
		e.Following = followingSet[e.ContactID]
		e.FollowedBy = followerSet[e.ContactID]
		e.Friends = e.Following && e.FollowedBy
		t.decorate(ctx, e)
		total += e.Unread
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].ContactID < out[j].ContactID
	})

	return &models.Inbox{TotalUnread: total, Threads: out}, nil
}

// decorate fills display fields; lookups here never fail the inbox.
func (t *Threads) decorate(ctx context.Context, e *models.Thread) {
	sum, err := t.profiles.Summary(ctx, e.ContactID)
	if err != nil {
		t.log.Warnw("profile summary", "contact", e.ContactID, "err", err)
		return
	}
	e.Name = sum.Name
	e.Nick = sum.Nick
	if sum.AvatarRef != "" {
		url, err := t.media.ResolveURL(ctx, sum.AvatarRef)
		if err != nil {
			t.log.Warnw("avatar resolve", "contact", e.ContactID, "err", err)
			return
		}
		e.AvatarURL = url
	}
}

// threadForViewer summarizes a conversation from one participant's side.
func threadForViewer(c *models.Conversation, viewer string) *models.Thread {
	th := &models.Thread{
		ContactID:      c.OtherParticipant(viewer),
		ConversationID: c.ID.Hex(),
		Status:         models.ThreadActive,
		Unread:         c.UnreadFor(viewer),
		Preview:        c.PreviewText(models.PreviewLen),
		LastActivity:   c.UpdatedAt,
	}
	if c.LastMessage != nil {
		th.LastActivity = c.LastMessage.CreatedAt
	}
	return th
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = true
		}
	}
	return set
}
