package ws

import (
	"github.com/yourorg/social-app/services/dm-service/internal/models"
)

// EventMessagesUpdate is the one realtime event this service emits.
const EventMessagesUpdate = "messages:update"

const (
	RoleSent     = "sent"
	RoleIncoming = "incoming"
)

// Update is the messages:update payload pushed to a participant's
// channel after a committed send.
type Update struct {
	Type           string          `json:"type"` // sent | incoming
	ConversationID string          `json:"conversation_id"`
	Message        *models.Message `json:"message"`
	Thread         *models.Thread  `json:"thread"`
	TotalUnread    int             `json:"total_unread"`
}

// Envelope is the wire format for every ws frame.
type Envelope struct {
	Event string `json:"event"`
	Data  Update `json:"data"`
}
