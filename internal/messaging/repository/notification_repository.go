package repository

import (
	"context"
	"errors"
	"time"

	"social_network_service/internal/messaging/domain"
	errprocess "social_network_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository definition notification store
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	// ListByRecipient newest first
	ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error)
	// MarkRead 只有收件人可以標記
	MarkRead(ctx context.Context, notificationID, requesterID string) (*domain.Notification, error)
}

type notificationRepository struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepository create a NotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{
		coll: db.Collection("notifications"),
	}
}

// EnsureNotificationIndexes TTL index 負責保留期限後自動清除
func EnsureNotificationIndexes(ctx context.Context, db *mongo.Database, retention time.Duration) error {
	coll := db.Collection("notifications")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		},
		{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

func (r *notificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := r.coll.InsertOne(ctx, n)
	if err != nil {
		return errprocess.Transient("notification insert", err)
	}
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	return retryRead(ctx, func() ([]domain.Notification, error) {
		opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
		cur, err := r.coll.Find(ctx, bson.M{"recipient_id": recipientID}, opts)
		if err != nil {
			return nil, errprocess.Transient("notification list", err)
		}
		notifications := []domain.Notification{}
		if err := cur.All(ctx, &notifications); err != nil {
			return nil, errprocess.Transient("notification list decode", err)
		}
		return notifications, nil
	})
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, requesterID string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.coll.FindOne(ctx, bson.M{"_id": notificationID}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.NotFound("notification not found")
	}
	if err != nil {
		return nil, errprocess.Transient("notification find", err)
	}

	if n.RecipientID != requesterID {
		return nil, errprocess.Forbidden("only the recipient can mark a notification read")
	}
	if n.Read {
		return &n, nil
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": notificationID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return nil, errprocess.Transient("notification mark read", err)
	}

	n.Read = true
	return &n, nil
}
