package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/social-app/services/dm-service/internal/apperr"
	"github.com/yourorg/social-app/services/dm-service/internal/events"
	"github.com/yourorg/social-app/services/dm-service/internal/identity"
	"github.com/yourorg/social-app/services/dm-service/internal/metrics"
	"github.com/yourorg/social-app/services/dm-service/internal/models"
	"github.com/yourorg/social-app/services/dm-service/internal/repository"
	"github.com/yourorg/social-app/services/dm-service/internal/ws"
)

const (
	DefaultPageLimit = 40
	MaxPageLimit     = 200

	// maxListedConversations bounds how many conversations feed the
	// inbox and the total-unread sum.
	maxListedConversations = 200
)

// Gate is the relationship check feeding conversation creation. Checked
// only when a conversation is first created; an existing conversation
// keeps working after an unfollow.
type Gate interface {
	CanMessage(ctx context.Context, a, b string) (bool, error)
}

type PageOpts struct {
	Limit  int64
	Before time.Time
}

type PageResult struct {
	Messages   []*models.Message `json:"messages"`
	HasMore    bool              `json:"has_more"`
	NextCursor *time.Time        `json:"next_cursor,omitempty"`
}

type ConversationView struct {
	Conversation *models.Conversation `json:"conversation"`
	Page         *PageResult          `json:"messages"`
	TotalUnread  int                  `json:"total_unread"`
}

type SendResult struct {
	Message      *models.Message      `json:"message"`
	Conversation *models.Conversation `json:"conversation"`
	TotalUnread  int                  `json:"total_unread"`
}

// Messaging runs the send/read/open pipeline: gate, conversation
// resolution, message append, then the best-effort follow-ups.
type Messaging struct {
	convs  repository.ConversationRepo
	msgs   repository.MessageRepo
	notifs repository.NotificationRepo
	gate   Gate
	pub    events.Publisher
	log    *zap.SugaredLogger
}

func NewMessaging(convs repository.ConversationRepo, msgs repository.MessageRepo, notifs repository.NotificationRepo, gate Gate, pub events.Publisher, log *zap.SugaredLogger) *Messaging {
	return &Messaging{convs: convs, msgs: msgs, notifs: notifs, gate: gate, pub: pub, log: log}
}

// Open resolves (and creates, when the gate allows) the conversation
// between requester and contact, returning it with a first message page.
func (s *Messaging) Open(ctx context.Context, requesterRef, contactRef any, opts PageOpts) (*ConversationView, error) {
	requester, contact, err := resolvePair(requesterRef, contactRef)
	if err != nil {
		return nil, err
	}
	conv, err := s.resolveOrCreate(ctx, requester, contact)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, requester, conv, opts)
}

// Get loads a conversation by id for one of its participants.
func (s *Messaging) Get(ctx context.Context, requesterRef any, conversationID string, opts PageOpts) (*ConversationView, error) {
	requester := identity.Resolve(requesterRef)
	if requester == "" {
		return nil, apperr.InvalidParticipant("unresolvable requester")
	}
	conv, err := s.loadFor(ctx, requester, conversationID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, requester, conv, opts)
}

// Send validates and commits one message, then runs the follow-ups
// (counters, preview, notification, realtime publish) as isolated
// best-effort steps. The returned result always reflects the committed
// message even when a follow-up failed.
func (s *Messaging) Send(ctx context.Context, senderRef, contactRef any, text string) (*SendResult, error) {
	sender, recipient, err := resolvePair(senderRef, contactRef)
	if err != nil {
		return nil, err
	}
	text, err = validateText(text)
	if err != nil {
		return nil, err
	}

	conv, err := s.resolveOrCreate(ctx, sender, recipient)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       sender,
		RecipientID:    recipient,
		Text:           text,
		ReadBy:         []string{sender},
	}
	msg, err = s.msgs.Append(ctx, msg)
	if err != nil {
		return nil, apperr.Internal("append message", err)
	}
	metrics.MessagesSent.Inc()

	// the message is the source of truth from here on; everything below
	// may fail independently without unwinding it
	convID := conv.ID.Hex()
	s.sideEffect("increment unread", func() error {
		return s.convs.IncrementUnread(ctx, convID, recipient)
	})
	s.sideEffect("reset sender unread", func() error {
		return s.convs.SetUnread(ctx, convID, sender, 0)
	})
	last := &models.LastMessage{Text: text, SenderID: sender, CreatedAt: msg.CreatedAt}
	s.sideEffect("record last message", func() error {
		return s.convs.RecordLastMessage(ctx, convID, last)
	})
	s.sideEffect("notification", func() error {
		return s.notifs.Push(ctx, recipient, &models.Notification{
			ID:             uuid.NewString(),
			ActorID:        sender,
			ConversationID: convID,
			Preview:        models.Truncate(text, models.PreviewLen),
			CreatedAt:      msg.CreatedAt,
		})
	})

	// keep the in-memory copy consistent for the response and envelopes
	conv.UnreadCounts[recipient]++
	conv.UnreadCounts[sender] = 0
	conv.LastMessage = last
	conv.UpdatedAt = msg.CreatedAt

	senderTotal := s.totalUnreadLogged(ctx, sender)
	recipientTotal := s.totalUnreadLogged(ctx, recipient)
	s.sideEffect("publish sent event", func() error {
		return s.pub.Publish(ctx, sender, &ws.Envelope{
			Event: ws.EventMessagesUpdate,
			Data: ws.Update{
				Type:           ws.RoleSent,
				ConversationID: convID,
				Message:        msg,
				Thread:         threadForViewer(conv, sender),
				TotalUnread:    senderTotal,
			},
		})
	})
	s.sideEffect("publish incoming event", func() error {
		return s.pub.Publish(ctx, recipient, &ws.Envelope{
			Event: ws.EventMessagesUpdate,
			Data: ws.Update{
				Type:           ws.RoleIncoming,
				ConversationID: convID,
				Message:        msg,
				Thread:         threadForViewer(conv, recipient),
				TotalUnread:    recipientTotal,
			},
		})
	})

	return &SendResult{Message: msg, Conversation: conv, TotalUnread: senderTotal}, nil
}

// MarkRead zeroes the requester's unread state for the conversation and
// returns their new total. Safe to call repeatedly.
func (s *Messaging) MarkRead(ctx context.Context, requesterRef any, conversationID string) (int, error) {
	requester := identity.Resolve(requesterRef)
	if requester == "" {
		return 0, apperr.InvalidParticipant("unresolvable requester")
	}
	conv, err := s.loadFor(ctx, requester, conversationID)
	if err != nil {
		return 0, err
	}
	if err := s.msgs.MarkRead(ctx, conv.ID.Hex(), requester); err != nil {
		return 0, apperr.Internal("mark read", err)
	}
	if err := s.convs.SetUnread(ctx, conv.ID.Hex(), requester, 0); err != nil {
		return 0, apperr.Internal("reset unread", err)
	}
	return s.TotalUnread(ctx, requester)
}

// TotalUnread sums the requester's unread counters across their
// conversations.
func (s *Messaging) TotalUnread(ctx context.Context, userRef any) (int, error) {
	userID := identity.Resolve(userRef)
	if userID == "" {
		return 0, apperr.InvalidParticipant("unresolvable user")
	}
	convs, err := s.convs.ListForUser(ctx, userID, maxListedConversations)
	if err != nil {
		return 0, apperr.Internal("list conversations", err)
	}
	total := 0
	for _, c := range convs {
		total += c.UnreadFor(userID)
	}
	return total, nil
}

// Page returns one page of a conversation's history for a participant.
func (s *Messaging) Page(ctx context.Context, conv *models.Conversation, opts PageOpts) (*PageResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	// over-fetch by one so HasMore is exact rather than "page was full"
	msgs, err := s.msgs.Page(ctx, conv.ID.Hex(), limit+1, opts.Before)
	if err != nil {
		return nil, apperr.Internal("page messages", err)
	}
	res := &PageResult{Messages: msgs}
	if int64(len(msgs)) > limit {
		// the extra row is the oldest one; drop it
		res.Messages = msgs[1:]
		res.HasMore = true
	}
	if len(res.Messages) > 0 {
		oldest := res.Messages[0].CreatedAt
		res.NextCursor = &oldest
	}
	return res, nil
}

func (s *Messaging) view(ctx context.Context, requester string, conv *models.Conversation, opts PageOpts) (*ConversationView, error) {
	page, err := s.Page(ctx, conv, opts)
	if err != nil {
		return nil, err
	}
	total, err := s.TotalUnread(ctx, requester)
	if err != nil {
		return nil, err
	}
	return &ConversationView{Conversation: conv, Page: page, TotalUnread: total}, nil
}

// resolveOrCreate returns the pair's conversation, consulting the gate
// only when none exists yet.
func (s *Messaging) resolveOrCreate(ctx context.Context, a, b string) (*models.Conversation, error) {
	conv, err := s.convs.Resolve(ctx, a, b, false)
	if err == nil {
		return conv, nil
	}
	if err != repository.ErrNotFound {
		return nil, apperr.Internal("resolve conversation", err)
	}
	ok, err := s.gate.CanMessage(ctx, a, b)
	if err != nil {
		return nil, apperr.Internal("relationship check", err)
	}
	if !ok {
		return nil, apperr.Unauthorized("users are not connected")
	}
	conv, err = s.convs.Resolve(ctx, a, b, true)
	if err != nil {
		return nil, apperr.Internal("create conversation", err)
	}
	return conv, nil
}

func (s *Messaging) loadFor(ctx context.Context, requester, conversationID string) (*models.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err == repository.ErrNotFound {
		return nil, apperr.ConversationNotFound("no such conversation")
	}
	if err != nil {
		return nil, apperr.Internal("load conversation", err)
	}
	if !conv.HasParticipant(requester) {
		return nil, apperr.AccessDenied("not a participant")
	}
	return conv, nil
}

func (s *Messaging) sideEffect(step string, fn func() error) {
	if err := fn(); err != nil {
		s.log.Errorw("send follow-up failed", "step", step, "err", err)
	}
}

func (s *Messaging) totalUnreadLogged(ctx context.Context, userID string) int {
	total, err := s.TotalUnread(ctx, userID)
	if err != nil {
		s.log.Errorw("total unread", "user", userID, "err", err)
		return 0
	}
	return total
}

func resolvePair(aRef, bRef any) (string, string, error) {
	a := identity.Resolve(aRef)
	b := identity.Resolve(bRef)
	if a == "" || b == "" {
		return "", "", apperr.InvalidParticipant("unresolvable participant id")
	}
	if a == b {
		return "", "", apperr.SelfConversation("cannot message yourself")
	}
	return a, b, nil
}

func validateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", apperr.InvalidMessageText("message text is empty")
	}
	if utf8.RuneCountInString(trimmed) > models.MaxTextLen {
		return "", apperr.InvalidMessageText("message text exceeds 2000 characters")
	}
	return trimmed, nil
}
