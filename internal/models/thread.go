package models

import "time"

// PreviewLen caps the inbox preview length in runes.
const PreviewLen = 140

const (
	ThreadActive  = "active"
	ThreadPending = "pending"
)

// Thread is the per-requester inbox entry: one distinct contact with
// their conversation summary and relationship flags. Derived, never
// persisted.
type Thread struct {
	ContactID      string    `json:"contact_id"`
	Name           string    `json:"name,omitempty"`
	Nick           string    `json:"nick,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Status         string    `json:"status"`
	Unread         int       `json:"unread"`
	Preview        string    `json:"preview,omitempty"`
	LastActivity   time.Time `json:"last_activity"`
	Following      bool      `json:"following"`
	FollowedBy     bool      `json:"followed_by"`
	Friends        bool      `json:"friends"`
}

// Inbox is the thread-list response body.
type Inbox struct {
	TotalUnread int      `json:"total_unread"`
	Threads     []Thread `json:"threads"`
}
