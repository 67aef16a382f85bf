package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxTextLen is the message body limit in characters, counted after
// trimming.
const MaxTextLen = 2000

type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	SenderID       string             `bson:"sender_id" json:"sender_id"`
	RecipientID    string             `bson:"recipient_id" json:"recipient_id"`
	Text           string             `bson:"text" json:"text"`
	ReadBy         []string           `bson:"read_by" json:"read_by"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// ReadByUser reports whether userID is already in the read set.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
