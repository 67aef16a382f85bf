package models

import "time"

// NotificationCap bounds the per-user notification list; the oldest
// entries are evicted past it.
const NotificationCap = 50

type Notification struct {
	ID             string    `bson:"id" json:"id"`
	ActorID        string    `bson:"actor_id" json:"actor_id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	Preview        string    `bson:"preview" json:"preview"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
