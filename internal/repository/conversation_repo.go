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

// ConversationRepo owns the two-party conversation entity and its
// per-participant unread counters.
type ConversationRepo interface {
	// Resolve returns the conversation for the unordered pair (a,b),
	// creating it when allowCreate is set. Returns ErrNotFound when the
	// pair has no conversation and creation was not allowed.
	Resolve(ctx context.Context, a, b string, allowCreate bool) (*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string, limit int64) ([]*models.Conversation, error)
	SetUnread(ctx context.Context, id, participantID string, value int) error
	IncrementUnread(ctx context.Context, id, participantID string) error
	RecordLastMessage(ctx context.Context, id string, lm *models.LastMessage) error
}

type mongoConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepo(coll *mongo.Collection) ConversationRepo {
	// unique index on the pair key is the sole mutual exclusion for the
	// create path; concurrent creators converge through the dup-key retry
	// in Resolve.
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "participants_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("participants_key_uniq"),
	}
	_, _ = coll.Indexes().CreateOne(context.Background(), idx)
	return &mongoConversationRepo{coll: coll}
}

func (r *mongoConversationRepo) Resolve(ctx context.Context, a, b string, allowCreate bool) (*models.Conversation, error) {
	key := models.PairKey(a, b)
	conv, err := r.findByKey(ctx, key)
	if err == nil {
		return conv, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	if !allowCreate {
		return nil, ErrNotFound
	}

	fresh := models.NewConversation(a, b)
	res, err := r.coll.InsertOne(ctx, fresh)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost the race: the winner's row is the conversation
			return r.findByKey(ctx, key)
		}
		return nil, err
	}
	fresh.ID = res.InsertedID.(primitive.ObjectID)
	return fresh, nil
}

func (r *mongoConversationRepo) findByKey(ctx context.Context, key string) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"participants_key": key}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mongoConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mongoConversationRepo) ListForUser(ctx context.Context, userID string, limit int64) ([]*models.Conversation, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		if err := c.Normalize(); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (r *mongoConversationRepo) SetUnread(ctx context.Context, id, participantID string, value int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"unread_counts." + participantID: value,
		"updated_at":                     time.Now().UTC(),
	}}
	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoConversationRepo) IncrementUnread(ctx context.Context, id, participantID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{
		"$inc": bson.M{"unread_counts." + participantID: 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoConversationRepo) RecordLastMessage(ctx context.Context, id string, lm *models.LastMessage) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"last_message": lm,
		"updated_at":   time.Now().UTC(),
	}}
	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
