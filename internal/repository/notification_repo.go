package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourorg/social-app/services/dm-service/internal/models"
)

// NotificationRepo keeps a bounded per-user list of in-app
// notifications, newest last, oldest evicted past the cap.
type NotificationRepo interface {
	Push(ctx context.Context, userID string, n *models.Notification) error
	List(ctx context.Context, userID string) ([]models.Notification, error)
}

type mongoNotificationRepo struct {
	coll *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) NotificationRepo {
	return &mongoNotificationRepo{coll: db.Collection("notifications")}
}

func (r *mongoNotificationRepo) Push(ctx context.Context, userID string, n *models.Notification) error {
	update := bson.M{"$push": bson.M{"items": bson.M{
		"$each":  bson.A{n},
		"$slice": -models.NotificationCap,
	}}}
	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update, opts)
	return err
}

func (r *mongoNotificationRepo) List(ctx context.Context, userID string) ([]models.Notification, error) {
	var doc struct {
		Items []models.Notification `bson:"items"`
	}
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}
