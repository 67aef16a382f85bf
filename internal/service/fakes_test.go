package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yourorg/social-app/services/dm-service/internal/models"
	"github.com/yourorg/social-app/services/dm-service/internal/repository"
	"github.com/yourorg/social-app/services/dm-service/internal/ws"
)

// In-memory doubles mirroring the mongo repos' observable behavior,
// including returning detached copies the way a decode does.

type fakeConvRepo struct {
	mu    sync.Mutex
	byKey map[string]*models.Conversation
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{byKey: map[string]*models.Conversation{}}
}

func cloneConv(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}

func (r *fakeConvRepo) Resolve(ctx context.Context, a, b string, allowCreate bool) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := models.PairKey(a, b)
	if c, ok := r.byKey[key]; ok {
		return cloneConv(c), nil
	}
	if !allowCreate {
		return nil, repository.ErrNotFound
	}
	c := models.NewConversation(a, b)
	c.ID = primitive.NewObjectID()
	r.byKey[key] = c
	return cloneConv(c), nil
}

func (r *fakeConvRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.findLocked(id); c != nil {
		return cloneConv(c), nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeConvRepo) findLocked(id string) *models.Conversation {
	for _, c := range r.byKey {
		if c.ID.Hex() == id {
			return c
		}
	}
	return nil
}

func (r *fakeConvRepo) ListForUser(ctx context.Context, userID string, limit int64) ([]*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Conversation
	for _, c := range r.byKey {
		if c.HasParticipant(userID) {
			out = append(out, cloneConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeConvRepo) SetUnread(ctx context.Context, id, participantID string, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.findLocked(id)
	if c == nil {
		return repository.ErrNotFound
	}
	c.UnreadCounts[participantID] = value
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeConvRepo) IncrementUnread(ctx context.Context, id, participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.findLocked(id)
	if c == nil {
		return repository.ErrNotFound
	}
	c.UnreadCounts[participantID]++
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeConvRepo) RecordLastMessage(ctx context.Context, id string, lm *models.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.findLocked(id)
	if c == nil {
		return repository.ErrNotFound
	}
	c.LastMessage = lm
	c.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeMsgRepo struct {
	mu     sync.Mutex
	byConv map[string][]*models.Message
	clock  time.Time
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{
		byConv: map[string][]*models.Message{},
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeMsgRepo) Append(ctx context.Context, m *models.Message) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Millisecond)
	m.ID = primitive.NewObjectID()
	m.CreatedAt = r.clock
	cp := *m
	cp.ReadBy = append([]string(nil), m.ReadBy...)
	r.byConv[m.ConversationID.Hex()] = append(r.byConv[m.ConversationID.Hex()], &cp)
	return m, nil
}

func (r *fakeMsgRepo) Page(ctx context.Context, conversationID string, limit int64, before time.Time) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newestFirst []*models.Message
	for _, m := range r.byConv[conversationID] {
		if before.IsZero() || m.CreatedAt.Before(before) {
			cp := *m
			newestFirst = append(newestFirst, &cp)
		}
	}
	sort.Slice(newestFirst, func(i, j int) bool { return newestFirst[i].CreatedAt.After(newestFirst[j].CreatedAt) })
	if int64(len(newestFirst)) > limit {
		newestFirst = newestFirst[:limit]
	}
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

func (r *fakeMsgRepo) MarkRead(ctx context.Context, conversationID, readerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byConv[conversationID] {
		if m.RecipientID == readerID && !m.ReadByUser(readerID) {
			m.ReadBy = append(m.ReadBy, readerID)
		}
	}
	return nil
}

func (r *fakeMsgRepo) all(conversationID string) []*models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Message(nil), r.byConv[conversationID]...)
}

type fakeNotifRepo struct {
	mu     sync.Mutex
	byUser map[string][]models.Notification
}

func newFakeNotifRepo() *fakeNotifRepo {
	return &fakeNotifRepo{byUser: map[string][]models.Notification{}}
}

func (r *fakeNotifRepo) Push(ctx context.Context, userID string, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := append(r.byUser[userID], *n)
	if len(items) > models.NotificationCap {
		items = items[len(items)-models.NotificationCap:]
	}
	r.byUser[userID] = items
	return nil
}

func (r *fakeNotifRepo) List(ctx context.Context, userID string) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.byUser[userID]...), nil
}

type fakeGate struct {
	allowed map[string]bool // PairKey -> allowed
}

func newFakeGate(pairs ...[2]string) *fakeGate {
	g := &fakeGate{allowed: map[string]bool{}}
	for _, p := range pairs {
		g.allowed[models.PairKey(p[0], p[1])] = true
	}
	return g
}

func (g *fakeGate) CanMessage(ctx context.Context, a, b string) (bool, error) {
	return g.allowed[models.PairKey(a, b)], nil
}

type published struct {
	userID string
	env    ws.Envelope
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *fakePublisher) Publish(ctx context.Context, userID string, env *ws.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{userID: userID, env: *env})
	return nil
}

func (p *fakePublisher) forUser(userID string) []ws.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ws.Envelope
	for _, s := range p.sent {
		if s.userID == userID {
			out = append(out, s.env)
		}
	}
	return out
}
