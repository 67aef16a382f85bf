package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KeySeparator joins the sorted participant pair into the unique
// participants_key. Ids never contain it.
const KeySeparator = ":"

// LastMessage is the denormalized inbox preview kept on the conversation.
type LastMessage struct {
	Text      string    `bson:"text" json:"text"`
	SenderID  string    `bson:"sender_id" json:"sender_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type Conversation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participants    []string           `bson:"participants" json:"participants"`
	ParticipantsKey string             `bson:"participants_key" json:"-"`
	UnreadCounts    map[string]int     `bson:"unread_counts" json:"unread_counts"`
	LastMessage     *LastMessage       `bson:"last_message,omitempty" json:"last_message,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// PairKey builds the order-independent identity key for a two-party
// conversation. PairKey(a,b) == PairKey(b,a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + KeySeparator + b
}

// NewConversation returns a fresh conversation for the pair with both
// unread counters at zero.
func NewConversation(a, b string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		Participants:    []string{a, b},
		ParticipantsKey: PairKey(a, b),
		UnreadCounts:    map[string]int{a: 0, b: 0},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Normalize enforces the conversation invariants after a load or before
// a persist: exactly two participants, the key recomputed from them, and
// an unread entry for each current participant (stray keys dropped).
func (c *Conversation) Normalize() error {
	if len(c.Participants) != 2 {
		return fmt.Errorf("conversation %s has %d participants", c.ID.Hex(), len(c.Participants))
	}
	c.ParticipantsKey = PairKey(c.Participants[0], c.Participants[1])
	counts := make(map[string]int, 2)
	for _, p := range c.Participants {
		counts[p] = c.UnreadCounts[p]
		if counts[p] < 0 {
			counts[p] = 0
		}
	}
	c.UnreadCounts = counts
	return nil
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or ""
// when userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func (c *Conversation) UnreadFor(userID string) int {
	return c.UnreadCounts[userID]
}

// PreviewText returns the last-message text truncated for inbox display.
func (c *Conversation) PreviewText(max int) string {
	if c.LastMessage == nil {
		return ""
	}
	return Truncate(c.LastMessage.Text, max)
}

// Truncate cuts s to max runes, appending an ellipsis when it was cut.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
