package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourorg/social-app/services/dm-service/internal/models"
)

// MessageRepo owns the ordered message records within a conversation.
type MessageRepo interface {
	Append(ctx context.Context, m *models.Message) (*models.Message, error)
	// Page returns up to limit messages strictly older than before
	// (zero before means "from the newest"), in chronological order.
	Page(ctx context.Context, conversationID string, limit int64, before time.Time) ([]*models.Message, error)
	// MarkRead adds readerID to read_by on every message in the
	// conversation addressed to them that does not carry it yet.
	MarkRead(ctx context.Context, conversationID, readerID string) error
}

type mongoMessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(coll *mongo.Collection) MessageRepo {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("conversation_created_idx"),
	}
	_, _ = coll.Indexes().CreateOne(context.Background(), idx)
	return &mongoMessageRepo{coll: coll}
}

func (r *mongoMessageRepo) Append(ctx context.Context, m *models.Message) (*models.Message, error) {
	m.CreatedAt = time.Now().UTC()
	res, err := r.coll.InsertOne(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return m, nil
}

func (r *mongoMessageRepo) Page(ctx context.Context, conversationID string, limit int64, before time.Time) ([]*models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, ErrNotFound
	}
	filter := bson.M{"conversation_id": oid}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	// fetched newest-first, returned oldest-first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *mongoMessageRepo) MarkRead(ctx context.Context, conversationID, readerID string) error {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return ErrNotFound
	}
	filter := bson.M{
		"conversation_id": oid,
		"recipient_id":    readerID,
		"read_by":         bson.M{"$ne": readerID},
	}
	// $addToSet keeps this idempotent under concurrent reads
	update := bson.M{"$addToSet": bson.M{"read_by": readerID}}
	_, err = r.coll.UpdateMany(ctx, filter, update)
	return err
}
